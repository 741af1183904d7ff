package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evcharge/station-registry/internal/db/models"
)

// StationUpdate carries a partial station update. Nil fields are left
// untouched; a non-nil Location replaces both coordinates together.
type StationUpdate struct {
	Name          *string
	Location      *models.Location
	Status        *string
	PowerOutput   *float64
	ConnectorType *string
}

// StationRepository handles charging station persistence via sqlx.
type StationRepository struct {
	db *sqlx.DB
}

// NewStationRepository creates a new StationRepository.
func NewStationRepository(db *sqlx.DB) *StationRepository {
	return &StationRepository{db: db}
}

// Create inserts a station with a server-generated id and timestamps. An empty
// status defaults to Inactive.
func (r *StationRepository) Create(ctx context.Context, station *models.Station) error {
	station.ID = uuid.New().String()
	now := time.Now()
	station.CreatedAt = now
	station.UpdatedAt = now
	if station.Status == "" {
		station.Status = models.StatusInactive
	}

	query := `
		INSERT INTO stations (id, name, latitude, longitude, status, power_output, connector_type, created_at, updated_at)
		VALUES (:id, :name, :latitude, :longitude, :status, :power_output, :connector_type, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, station)
	return err
}

// GetByID retrieves a station by id, returning (nil, nil) when absent.
func (r *StationRepository) GetByID(ctx context.Context, stationID string) (*models.Station, error) {
	query := `
		SELECT id, name, latitude, longitude, status, power_output, connector_type, created_at, updated_at
		FROM stations
		WHERE id = $1
	`

	station := &models.Station{}
	err := r.db.GetContext(ctx, station, query, stationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return station, nil
}

// List retrieves all stations, newest first.
func (r *StationRepository) List(ctx context.Context) ([]*models.Station, error) {
	query := `
		SELECT id, name, latitude, longitude, status, power_output, connector_type, created_at, updated_at
		FROM stations
		ORDER BY created_at DESC
	`

	stations := make([]*models.Station, 0)
	if err := r.db.SelectContext(ctx, &stations, query); err != nil {
		return nil, err
	}

	return stations, nil
}

// Update applies a partial update and returns the updated station, or
// (nil, nil) when no station has the given id. The SET clause is built only
// from the fields the caller provided, so absent payload fields are never
// overwritten with zero values.
func (r *StationRepository) Update(ctx context.Context, stationID string, update *StationUpdate) (*models.Station, error) {
	setClauses := []string{}
	args := []interface{}{stationID}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		addSet("name", *update.Name)
	}
	if update.Location != nil {
		addSet("latitude", update.Location.Latitude)
		addSet("longitude", update.Location.Longitude)
	}
	if update.Status != nil {
		addSet("status", *update.Status)
	}
	if update.PowerOutput != nil {
		addSet("power_output", *update.PowerOutput)
	}
	if update.ConnectorType != nil {
		addSet("connector_type", *update.ConnectorType)
	}

	if len(setClauses) == 0 {
		// Nothing to change; behave like a read so the handler still returns the record.
		return r.GetByID(ctx, stationID)
	}

	addSet("updated_at", time.Now())

	query := fmt.Sprintf(`
		UPDATE stations
		SET %s
		WHERE id = $1
		RETURNING id, name, latitude, longitude, status, power_output, connector_type, created_at, updated_at
	`, strings.Join(setClauses, ", "))

	station := &models.Station{}
	err := r.db.GetContext(ctx, station, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return station, nil
}

// Delete removes a station, returning ErrNotFound when no row matched.
func (r *StationRepository) Delete(ctx context.Context, stationID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = $1`, stationID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
