package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdeck/fleetdeck/internal/models"
)

const testProbeToken = "test-probe-token"

// setupAPI builds the control and data engines over a fresh in-memory store
// and returns them with a valid admin JWT.
func setupAPI(t *testing.T) (ctrl, data *gin.Engine, token string) {
	t.Helper()
	setupTestDB(t)

	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")
	SetProbeToken(testProbeToken)
	require.NoError(t, SetAdminCredentials("admin", "hunter2"))

	ctrl = gin.New()
	RegisterControlRoutes(ctrl)

	data = gin.New()
	RegisterDataRoutes(data)

	token, err := GenerateJWT("admin")
	require.NoError(t, err)
	return ctrl, data, token
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLogin(t *testing.T) {
	ctrl, _, _ := setupAPI(t)

	w := doJSON(t, ctrl, http.MethodPost, "/api/login", "", gin.H{"username": "admin", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "Bearer", body["type"])

	w = doJSON(t, ctrl, http.MethodPost, "/api/login", "", gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	ctrl, _, _ := setupAPI(t)

	w := doJSON(t, ctrl, http.MethodGet, "/api/servers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListServersEndpoint(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := models.Server{Name: "srv", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, DB.Create(&s).Error)
	}

	w := doJSON(t, ctrl, http.MethodGet, "/api/servers", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(10), body["pageSize"])
	assert.Len(t, body["servers"], 3)
}

func TestListServersEndpoint_Paged(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := models.Server{Name: "srv", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, DB.Create(&s).Error)
	}

	w := doJSON(t, ctrl, http.MethodGet, "/api/servers?page=2&pageSize=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(5), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(2), body["pageSize"])
	assert.Len(t, body["servers"], 2)
}

func TestCreateServerEndpoint(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	w := doJSON(t, ctrl, http.MethodPost, "/api/servers", token, gin.H{
		"name":       "web-01",
		"ip_address": "10.0.0.1",
		"country":    "US",
		"platform":   "linux",
		"status":     "active",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, "web-01", data["name"])
}

func TestCreateServerEndpoint_Validation(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	// platform outside the enum
	w := doJSON(t, ctrl, http.MethodPost, "/api/servers", token, gin.H{"name": "x", "platform": "beos"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// name missing
	w = doJSON(t, ctrl, http.MethodPost, "/api/servers", token, gin.H{"platform": "linux"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusTransitionEndpoint(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	s := models.Server{Name: "app-01", Status: models.StatusActive}
	require.NoError(t, CreateServer(&s))

	w := doJSON(t, ctrl, http.MethodPatch, "/api/servers/"+s.ID+"/status", token, gin.H{"status": "maintenance"})
	require.Equal(t, http.StatusOK, w.Code)

	// invalid status value
	w = doJSON(t, ctrl, http.MethodPatch, "/api/servers/"+s.ID+"/status", token, gin.H{"status": "hibernating"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// log records the maintenance transition
	w = doJSON(t, ctrl, http.MethodGet, "/api/servers/"+s.ID+"/activities", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	acts := decode(t, w)["data"].([]any)
	require.NotEmpty(t, acts)
	newest := acts[0].(map[string]any)
	assert.Equal(t, "maintenance", newest["type"])
	assert.Equal(t, "offline", newest["status"])
}

func TestDeleteServerEndpoint(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	s := models.Server{Name: "old-01"}
	require.NoError(t, CreateServer(&s))

	w := doJSON(t, ctrl, http.MethodDelete, "/api/servers/"+s.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, ctrl, http.MethodDelete, "/api/servers/"+s.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	now := time.Now()
	for _, c := range []string{"US", "US", "DE"} {
		s := models.Server{Name: "srv", Country: c, Platform: models.PlatformLinux, Status: models.StatusActive, CreatedAt: now.Add(-time.Hour)}
		require.NoError(t, DB.Create(&s).Error)
	}

	w := doJSON(t, ctrl, http.MethodGet, "/api/stats?range=24h", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(3), data["totalServers"])
	assert.Equal(t, float64(3), data["newServersCount"])

	countryStats := data["countryStats"].([]any)
	require.Len(t, countryStats, 2)
	top := countryStats[0].(map[string]any)
	assert.Equal(t, "US", top["country"])
	assert.Equal(t, float64(2), top["count"])
	assert.Equal(t, float64(67), top["percentage"])
}

func TestStatsEndpoint_ExplicitWindow(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s := models.Server{Name: "srv", Country: "US", CreatedAt: created}
	require.NoError(t, DB.Create(&s).Error)

	w := doJSON(t, ctrl, http.MethodGet,
		"/api/stats?start=2025-03-01T00:00:00Z&end=2025-03-31T00:00:00Z", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), data["newServersCount"])
}

func TestStatsEndpoint_BadWindow(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	w := doJSON(t, ctrl, http.MethodGet, "/api/stats?range=90d", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, ctrl, http.MethodGet, "/api/stats?start=notatime&end=2025-03-31T00:00:00Z", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapEndpoint(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	lat1, lng1 := 10.00001, 20.00002
	lat2, lng2 := 10.00004, 20.00001
	for _, coords := range [][2]*float64{{&lat1, &lng1}, {&lat2, &lng2}, {nil, nil}} {
		s := models.Server{Name: "srv", Latitude: coords[0], Longitude: coords[1]}
		require.NoError(t, DB.Create(&s).Error)
	}

	w := doJSON(t, ctrl, http.MethodGet, "/api/servers/map", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	groups := body["groups"].([]any)
	require.Len(t, groups, 1, "servers rounding to the same coordinate merge; unlocated ones are skipped")
	group := groups[0].(map[string]any)
	assert.Len(t, group["servers"], 2)

	viewport := body["viewport"].(map[string]any)
	assert.Equal(t, mapFitOptions.MaxZoom, viewport["zoom"], "single group clamps to max zoom")
}

func TestMapEndpoint_EmptyInventory(t *testing.T) {
	ctrl, _, token := setupAPI(t)

	w := doJSON(t, ctrl, http.MethodGet, "/api/servers/map", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Empty(t, body["groups"])
	viewport := body["viewport"].(map[string]any)
	assert.Equal(t, float64(0), viewport["center_lat"])
	assert.Equal(t, float64(0), viewport["center_lng"])
	assert.Equal(t, mapFitOptions.MinZoom, viewport["zoom"])
}

func TestProbeReportEndpoint(t *testing.T) {
	_, data, _ := setupAPI(t)

	report := gin.H{"name": "edge-01", "ip_address": "192.168.1.50", "cpu_usage": 40.0}

	// wrong token
	w := doJSON(t, data, http.MethodPost, "/api/probe/report", "bad-token", report)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token
	w = doJSON(t, data, http.MethodPost, "/api/probe/report", testProbeToken, report)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["id"])

	// missing ip_address
	w = doJSON(t, data, http.MethodPost, "/api/probe/report", testProbeToken, gin.H{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ctrl, data, _ := setupAPI(t)

	w := doJSON(t, ctrl, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, data, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
