package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amitRaDev/GMS/config"
	"github.com/amitRaDev/GMS/internal/camera"
	"github.com/amitRaDev/GMS/internal/gate"
	"github.com/amitRaDev/GMS/internal/model"
	"github.com/amitRaDev/GMS/internal/store"
)

func setupRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// One pooled connection, or every connection sees its own empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Vehicle{}, &model.JobCard{}, &model.GateLog{},
		&model.Camera{}, &model.Image{}, &model.PushSubscription{},
	))

	appStore := store.NewGormStore(db)
	gateSvc := gate.NewService(appStore, appStore, nil, nil)
	cameraSvc := camera.NewService(appStore, gateSvc)
	handler := NewHandler(appStore, gateSvc, cameraSvc, nil, nil, nil, nil)
	// Tests fire requests back to back; keep the limiter out of the way.
	cfg := &config.ServerConfig{RateLimitPerSec: 10000}
	return NewRouter(handler, cfg), appStore
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitGateEvent_RequestPhase(t *testing.T) {
	router, appStore := setupRouter(t)

	w := postJSON(t, router, "/api/gate/event", gin.H{
		"vehicleNumber": "mh 12 ab 1234",
		"direction":     "IN",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var decision gate.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, gate.ActionEntryRequest, decision.Action)
	assert.True(t, decision.RequiresAction)

	// Request phase never creates anything.
	vehicle, err := appStore.FindVehicleByNumber(context.Background(), "MH12AB1234")
	require.NoError(t, err)
	assert.Nil(t, vehicle)
}

func TestSubmitGateEvent_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	w := postJSON(t, router, "/api/gate/event", gin.H{"direction": "IN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, "/api/gate/event", gin.H{
		"vehicleNumber": "MH12AB1234",
		"direction":     "SIDEWAYS",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmEntry_UnknownVehicle(t *testing.T) {
	router, appStore := setupRouter(t)

	w := postJSON(t, router, "/api/gate/confirm-entry", gin.H{"vehicleNumber": "MH12AB1234"})
	require.Equal(t, http.StatusOK, w.Code)

	var decision gate.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.True(t, decision.Success)
	assert.Equal(t, gate.ActionEntryAllowedNoJob, decision.Action)
	assert.False(t, decision.HasJobCard)

	// The vehicle record is created so a job card can be attached.
	vehicle, err := appStore.FindVehicleByNumber(context.Background(), "MH12AB1234")
	require.NoError(t, err)
	require.NotNil(t, vehicle)
}

func TestGateLifecycleOverHTTP(t *testing.T) {
	router, _ := setupRouter(t)

	// A job card is opened at the desk before the vehicle arrives.
	w := postJSON(t, router, "/api/job-cards", gin.H{
		"vehicleNumber":      "KA05MN2277",
		"serviceDescription": "Brake pad replacement",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var job model.JobCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	jobID := job.ID
	require.Equal(t, model.StatusIdle, job.Status)

	// Arrival is confirmed, the job goes ONGOING.
	w = postJSON(t, router, "/api/gate/confirm-entry", gin.H{"vehicleNumber": "KA05MN2277"})
	require.Equal(t, http.StatusOK, w.Code)

	var entered gate.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entered))
	require.Equal(t, gate.ActionEntryConfirmed, entered.Action)

	// Still ONGOING, so the exit must be denied.
	w = postJSON(t, router, "/api/gate/confirm-exit", gin.H{"vehicleNumber": "KA05MN2277"})
	require.Equal(t, http.StatusOK, w.Code)
	var denied gate.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &denied))
	assert.False(t, denied.Success)
	assert.Equal(t, gate.ActionCannotExit, denied.Action)

	// Complete the job through the status endpoint, then exit.
	w = putJSON(t, router, "/api/job-cards/"+jobID+"/status", gin.H{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/api/gate/confirm-exit", gin.H{"vehicleNumber": "KA05MN2277"})
	require.Equal(t, http.StatusOK, w.Code)
	var exited gate.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exited))
	assert.True(t, exited.Success)
	assert.Equal(t, gate.ActionExitConfirmed, exited.Action)

	// The ledger saw the whole story.
	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/gate-logs?vehicleNumber=KA05MN2277", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var page store.GateLogPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.GreaterOrEqual(t, page.Total, int64(4))
}

func TestForceCloseJob_Unknown(t *testing.T) {
	router, _ := setupRouter(t)

	w := postJSON(t, router, "/api/gate/force-close/no-such-job", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func putJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}
