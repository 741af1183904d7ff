// Package stations implements the charging station CRUD endpoints. Reads are
// public; writes sit behind the bearer-token guard attached in the router.
package stations

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evcharge/station-registry/internal/db/models"
	"github.com/evcharge/station-registry/internal/db/repositories"
	"github.com/evcharge/station-registry/internal/telemetry"
	"github.com/evcharge/station-registry/internal/validation"
)

// LocationPayload carries a coordinate pair. Both fields are pointers so that
// a legitimate zero coordinate (the equator, the prime meridian) is
// distinguishable from an absent one.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// CreateStationRequest is the payload for POST /api/stations.
type CreateStationRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=100"`
	Location      *LocationPayload `json:"location" binding:"required"`
	Status        string           `json:"status" binding:"omitempty,oneof=Active Inactive"`
	PowerOutput   *float64         `json:"powerOutput" binding:"required,gt=0"`
	ConnectorType string           `json:"connectorType" binding:"required"`
}

// UpdateStationRequest is the payload for PUT /api/stations/:id. Every field
// is optional; absent fields leave the stored value untouched, but any field
// that is present must satisfy the same constraints as at creation.
type UpdateStationRequest struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=100"`
	Location      *LocationPayload `json:"location"`
	Status        *string          `json:"status" binding:"omitempty,oneof=Active Inactive"`
	PowerOutput   *float64         `json:"powerOutput" binding:"omitempty,gt=0"`
	ConnectorType *string          `json:"connectorType" binding:"omitempty,min=1"`
}

// Handlers bundles the dependencies of the station endpoints.
type Handlers struct {
	stations *repositories.StationRepository
}

func NewHandlers(stations *repositories.StationRepository) *Handlers {
	return &Handlers{stations: stations}
}

// List handles GET /api/stations.
func (h *Handlers) List(c *gin.Context) {
	stations, err := h.stations.List(c.Request.Context())
	if err != nil {
		slog.Error("failed to list stations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, stations)
}

// Get handles GET /api/stations/:id.
func (h *Handlers) Get(c *gin.Context) {
	station, err := h.stations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		slog.Error("failed to fetch station", "error", err, "station_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if station == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Station not found"})
		return
	}

	c.JSON(http.StatusOK, station)
}

// Create handles POST /api/stations.
func (h *Handlers) Create(c *gin.Context) {
	var req CreateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  validation.Itemize(err),
		})
		return
	}

	station := &models.Station{
		Name:          req.Name,
		Latitude:      *req.Location.Latitude,
		Longitude:     *req.Location.Longitude,
		Status:        req.Status,
		PowerOutput:   *req.PowerOutput,
		ConnectorType: req.ConnectorType,
	}

	if err := h.stations.Create(c.Request.Context(), station); err != nil {
		slog.Error("failed to create station", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	telemetry.StationWritesTotal.WithLabelValues("create").Inc()
	c.JSON(http.StatusCreated, station)
}

// Update handles PUT /api/stations/:id.
func (h *Handlers) Update(c *gin.Context) {
	var req UpdateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  validation.Itemize(err),
		})
		return
	}

	update := &repositories.StationUpdate{
		Name:          req.Name,
		Status:        req.Status,
		PowerOutput:   req.PowerOutput,
		ConnectorType: req.ConnectorType,
	}
	if req.Location != nil {
		update.Location = &models.Location{
			Latitude:  *req.Location.Latitude,
			Longitude: *req.Location.Longitude,
		}
	}

	station, err := h.stations.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		slog.Error("failed to update station", "error", err, "station_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if station == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Station not found"})
		return
	}

	telemetry.StationWritesTotal.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, station)
}

// Delete handles DELETE /api/stations/:id.
func (h *Handlers) Delete(c *gin.Context) {
	err := h.stations.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repositories.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Station not found"})
		return
	}
	if err != nil {
		slog.Error("failed to delete station", "error", err, "station_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	telemetry.StationWritesTotal.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Station deleted successfully"})
}
