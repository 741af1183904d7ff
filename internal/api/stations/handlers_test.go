package stations

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/evcharge/station-registry/internal/db/repositories"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var stationCols = []string{
	"id", "name", "latitude", "longitude", "status",
	"power_output", "connector_type", "created_at", "updated_at",
}

func stationRow(id, name string, lat, lon float64, status string) []driver.Value {
	now := time.Now()
	return []driver.Value{id, name, lat, lon, status, 22.0, "CCS2", now, now}
}

type stationTestEnv struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
}

// The handlers here are mounted without the auth guard; guard behavior has its
// own tests and the full chain is covered by the router tests.
func newStationTestEnv(t *testing.T) *stationTestEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewHandlers(repositories.NewStationRepository(sqlx.NewDb(db, "postgres")))
	router := gin.New()
	router.GET("/api/stations", h.List)
	router.GET("/api/stations/:id", h.Get)
	router.POST("/api/stations", h.Create)
	router.PUT("/api/stations/:id", h.Update)
	router.DELETE("/api/stations/:id", h.Delete)

	return &stationTestEnv{router: router, mock: mock}
}

func (env *stationTestEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	env.router.ServeHTTP(w, req)
	return w
}

func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var body struct {
		Message string           `json:"message"`
		Errors  []map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, w.Body.String())
	}
	if body.Message != "Validation failed" {
		t.Errorf("message = %q, want %q", body.Message, "Validation failed")
	}
	return body.Errors
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestListStations(t *testing.T) {
	env := newStationTestEnv(t)
	rows := sqlmock.NewRows(stationCols).
		AddRow(stationRow("st-2", "North Lot", 59.33, 18.06, "Active")...).
		AddRow(stationRow("st-1", "South Lot", 59.30, 18.02, "Inactive")...)
	env.mock.ExpectQuery("SELECT.*FROM stations.*ORDER BY created_at DESC").
		WillReturnRows(rows)

	w := env.do(t, http.MethodGet, "/api/stations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var list []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("response is not a JSON array: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	loc, ok := list[0]["location"].(map[string]any)
	if !ok {
		t.Fatalf("station missing nested location: %v", list[0])
	}
	if loc["latitude"] != 59.33 {
		t.Errorf("location.latitude = %v", loc["latitude"])
	}
}

func TestListStations_EmptyIsArray(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectQuery("SELECT.*FROM stations").
		WillReturnRows(sqlmock.NewRows(stationCols))

	w := env.do(t, http.MethodGet, "/api/stations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("empty list serialized as %s, want []", got)
	}
}

func TestGetStation_NotFound(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectQuery("SELECT.*FROM stations.*WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(stationCols))

	w := env.do(t, http.MethodGet, "/api/stations/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Station not found")) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateStation_DefaultsToInactive(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectExec("INSERT INTO stations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	payload := `{"name":"North Lot","location":{"latitude":59.33,"longitude":18.06},"powerOutput":22,"connectorType":"CCS2"}`
	w := env.do(t, http.MethodPost, "/api/stations", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var station map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &station); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if station["status"] != "Inactive" {
		t.Errorf("status = %v, want Inactive default", station["status"])
	}
	if station["id"] == "" || station["id"] == nil {
		t.Error("response missing generated id")
	}
}

func TestCreateStation_ZeroCoordinatesValid(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectExec("INSERT INTO stations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	payload := `{"name":"Null Island","location":{"latitude":0,"longitude":0},"status":"Active","powerOutput":50,"connectorType":"CHAdeMO"}`
	w := env.do(t, http.MethodPost, "/api/stations", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("zero coordinates rejected: %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateStation_InvalidStatus(t *testing.T) {
	env := newStationTestEnv(t)

	payload := `{"name":"North Lot","location":{"latitude":59.33,"longitude":18.06},"status":"Pending","powerOutput":22,"connectorType":"CCS2"}`
	w := env.do(t, http.MethodPost, "/api/stations", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}

	errs := fieldErrors(t, w)
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want exactly the status violation", errs)
	}
	if errs[0]["field"] != "status" {
		t.Errorf("violation field = %v, want status", errs[0]["field"])
	}
}

func TestCreateStation_AllViolationsReported(t *testing.T) {
	env := newStationTestEnv(t)

	// Missing name, missing longitude, non-positive power, missing connector.
	payload := `{"location":{"latitude":59.33},"powerOutput":-5}`
	w := env.do(t, http.MethodPost, "/api/stations", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	errs := fieldErrors(t, w)
	if len(errs) != 4 {
		t.Fatalf("errors = %d entries, want all 4 violations: %s", len(errs), w.Body.String())
	}
	fields := map[string]bool{}
	for _, fe := range errs {
		fields[fe["field"].(string)] = true
	}
	for _, want := range []string{"name", "location.longitude", "powerOutput", "connectorType"} {
		if !fields[want] {
			t.Errorf("missing violation for %q in %v", want, fields)
		}
	}
}

func TestCreateStation_EmptyBody(t *testing.T) {
	env := newStationTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/stations", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Request body cannot be empty")) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdateStation_PartialStatusOnly(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectQuery("UPDATE stations.*SET status = .*RETURNING").
		WithArgs("st-1", "Active", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(stationCols).
			AddRow(stationRow("st-1", "North Lot", 59.33, 18.06, "Active")...))

	w := env.do(t, http.MethodPut, "/api/stations/st-1", `{"status":"Active"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var station map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &station); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if station["status"] != "Active" {
		t.Errorf("status = %v", station["status"])
	}
	if station["name"] != "North Lot" {
		t.Errorf("untouched field changed: name = %v", station["name"])
	}
}

func TestUpdateStation_InvalidStatus(t *testing.T) {
	env := newStationTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/stations/st-1", `{"status":"Pending"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	errs := fieldErrors(t, w)
	if len(errs) != 1 || errs[0]["field"] != "status" {
		t.Errorf("errors = %v, want single status violation", errs)
	}
}

func TestUpdateStation_NotFound(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectQuery("UPDATE stations.*RETURNING").
		WillReturnRows(sqlmock.NewRows(stationCols))

	w := env.do(t, http.MethodPut, "/api/stations/ghost", `{"name":"Renamed"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDeleteStation(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectExec("DELETE FROM stations").
		WithArgs("st-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(t, http.MethodDelete, "/api/stations/st-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Station deleted successfully")) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDeleteStation_NotFound(t *testing.T) {
	env := newStationTestEnv(t)
	env.mock.ExpectExec("DELETE FROM stations").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := env.do(t, http.MethodDelete, "/api/stations/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}
