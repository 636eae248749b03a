// Package server provides the FleetDeck Gin-based REST API.
// Routes are split into two groups:
//   - Control-plane (port 8686): JWT-protected; serves the admin inventory API.
//   - Data-plane   (port 8787): Bearer-token-protected; receives probe reports.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdeck/fleetdeck/internal/geo"
	"github.com/fleetdeck/fleetdeck/internal/models"
	"github.com/fleetdeck/fleetdeck/internal/stats"
)

// defaultPageSize applies when the list endpoint gets no pageSize parameter.
var defaultPageSize = 10

// SetDefaultPageSize overrides the list endpoint's default page size.
func SetDefaultPageSize(n int) {
	if n > 0 {
		defaultPageSize = n
	}
}

// mapFitOptions tune the /api/servers/map viewport fit; set from config.
var mapFitOptions = geo.DefaultFitOptions

// SetMapFitOptions stores the viewport fit parameters.
func SetMapFitOptions(opts geo.FitOptions) {
	mapFitOptions = opts
}

// RegisterControlRoutes wires up the control-plane API on the given engine.
// Call this on the engine bound to port 8686.
//
//	Public:   POST /api/login, GET /api/health
//	Protected (JWT): all other /api/* routes
func RegisterControlRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", handleLogin)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", JWTMiddleware())
	{
		// Inventory
		auth.GET("/servers", handleListServers)
		auth.POST("/servers", handleCreateServer)
		auth.PUT("/servers/:id", handleUpdateServer)
		auth.DELETE("/servers/:id", handleDeleteServer)
		auth.PATCH("/servers/:id/status", handleChangeStatus)

		// Activity log
		auth.GET("/servers/:id/activities", handleListActivities)
		auth.DELETE("/servers/:id/activities", handleClearActivities)

		// Derived views
		auth.GET("/stats", handleStats)
		auth.GET("/servers/map", handleMap)
	}
}

// RegisterDataRoutes wires up the data-plane API on the given engine.
// Call this on the engine bound to port 8787.
// All routes require a valid Bearer probe token.
func RegisterDataRoutes(r *gin.Engine) {
	api := r.Group("/api", ProbeTokenMiddleware())
	{
		api.POST("/probe/report", handleProbeReport)
	}

	// Data-plane health (no auth — used by load-balancers / k8s probes)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if !checkAdminCredentials(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": 86400, // seconds
		"type":       "Bearer",
	})
}

// handleListServers returns one page of the inventory, newest first.
//
//	GET /api/servers?page=1&pageSize=10
//	Response: { "total": n, "servers": [...], "page": p, "pageSize": s }
func handleListServers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = defaultPageSize
	}

	total, servers, err := ListServers(page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if servers == nil {
		servers = []models.Server{}
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"servers":  servers,
		"page":     page,
		"pageSize": pageSize,
	})
}

// serverPayload is the request body for create and update. Pointer fields on
// update mean "leave unchanged".
type serverPayload struct {
	Name         *string  `json:"name"`
	IPAddress    *string  `json:"ip_address"`
	Country      *string  `json:"country"`
	OS           *string  `json:"os"`
	OSVersion    *string  `json:"os_version"`
	Platform     *string  `json:"platform" binding:"omitempty,oneof=linux windows macos"`
	Architecture *string  `json:"architecture" binding:"omitempty,oneof=x86_64 arm64 i386"`
	Status       *string  `json:"status" binding:"omitempty,oneof=active inactive maintenance"`
	Region       *string  `json:"region"`
	City         *string  `json:"city"`
	ZipCode      *string  `json:"zip_code"`
	ISP          *string  `json:"isp"`
	ASN          *string  `json:"asn"`
	Organization *string  `json:"organization"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	CPUUsage     *float64 `json:"cpu_usage"`
	MemoryUsage  *float64 `json:"memory_usage"`
	DiskUsage    *float64 `json:"disk_usage"`
	NetworkUsage *float64 `json:"network_usage"`
}

// updates builds the column update map for UpdateServer.
func (p *serverPayload) updates() map[string]any {
	u := map[string]any{}
	set := func(col string, v any, present bool) {
		if present {
			u[col] = v
		}
	}
	set("name", deref(p.Name), p.Name != nil)
	set("ip_address", deref(p.IPAddress), p.IPAddress != nil)
	set("country", deref(p.Country), p.Country != nil)
	set("os", deref(p.OS), p.OS != nil)
	set("os_version", deref(p.OSVersion), p.OSVersion != nil)
	set("platform", deref(p.Platform), p.Platform != nil)
	set("architecture", deref(p.Architecture), p.Architecture != nil)
	set("status", deref(p.Status), p.Status != nil)
	set("region", deref(p.Region), p.Region != nil)
	set("city", deref(p.City), p.City != nil)
	set("zip_code", deref(p.ZipCode), p.ZipCode != nil)
	set("isp", deref(p.ISP), p.ISP != nil)
	set("asn", deref(p.ASN), p.ASN != nil)
	set("organization", deref(p.Organization), p.Organization != nil)
	if p.Latitude != nil {
		u["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		u["longitude"] = *p.Longitude
	}
	if p.CPUUsage != nil {
		u["cpu_usage"] = *p.CPUUsage
	}
	if p.MemoryUsage != nil {
		u["memory_usage"] = *p.MemoryUsage
	}
	if p.DiskUsage != nil {
		u["disk_usage"] = *p.DiskUsage
	}
	if p.NetworkUsage != nil {
		u["network_usage"] = *p.NetworkUsage
	}
	return u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// handleCreateServer inserts a new inventory record.
func handleCreateServer(c *gin.Context) {
	var p serverPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if p.Name == nil || *p.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	s := models.Server{
		Name:         *p.Name,
		IPAddress:    deref(p.IPAddress),
		Country:      deref(p.Country),
		OS:           deref(p.OS),
		OSVersion:    deref(p.OSVersion),
		Platform:     models.ServerPlatform(deref(p.Platform)),
		Architecture: models.ServerArch(deref(p.Architecture)),
		Status:       models.ServerStatus(deref(p.Status)),
		Region:       deref(p.Region),
		City:         deref(p.City),
		ZipCode:      deref(p.ZipCode),
		ISP:          deref(p.ISP),
		ASN:          deref(p.ASN),
		Organization: deref(p.Organization),
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
	}
	if s.Status == "" {
		s.Status = models.StatusInactive
	}
	if p.CPUUsage != nil {
		s.CPUUsage = *p.CPUUsage
	}
	if p.MemoryUsage != nil {
		s.MemoryUsage = *p.MemoryUsage
	}
	if p.DiskUsage != nil {
		s.DiskUsage = *p.DiskUsage
	}
	if p.NetworkUsage != nil {
		s.NetworkUsage = *p.NetworkUsage
	}

	if err := CreateServer(&s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": s})
}

// handleUpdateServer applies a partial update to an existing record.
func handleUpdateServer(c *gin.Context) {
	var p serverPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := UpdateServer(c.Param("id"), p.updates())
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s})
}

// handleDeleteServer removes a server record by ID.
func handleDeleteServer(c *gin.Context) {
	id := c.Param("id")
	if err := DeleteServer(id); err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleChangeStatus transitions a server to a new status.
//
//	PATCH /api/servers/:id/status
//	Body: { "status": "maintenance" }
func handleChangeStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required,oneof=active inactive maintenance"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: active, inactive, maintenance"})
		return
	}

	s, err := ChangeStatus(c.Param("id"), models.ServerStatus(body.Status))
	if err == ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s})
}

// handleListActivities returns a server's activity log, newest first.
func handleListActivities(c *gin.Context) {
	acts, err := ListActivities(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if acts == nil {
		acts = []models.ServerActivity{}
	}
	c.JSON(http.StatusOK, gin.H{"data": acts})
}

// handleClearActivities deletes a server's activity log.
func handleClearActivities(c *gin.Context) {
	if err := ClearActivities(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": c.Param("id")})
}

// handleStats computes aggregate inventory statistics.
//
//	GET /api/stats?range=24h|7d|30d
//	GET /api/stats?start=2025-01-01T00:00:00Z&end=2025-02-01T00:00:00Z
//
// Without a window, newServersCount is 0 and the filter bounds are omitted.
func handleStats(c *gin.Context) {
	tr, err := timeRangeFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Cached responses bypass the store entirely.
	if cached, ok := statsCacheGet(c, tr); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
		return
	}

	servers, err := AllServers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	computeStart := time.Now()
	result := stats.Compute(servers, tr, time.Now())
	statsComputations.Observe(time.Since(computeStart).Seconds())

	statsCachePut(c, tr, gin.H{"data": result})
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// timeRangeFromQuery parses the optional window parameters. An explicit
// start/end pair wins over a preset; both absent means no filtering.
func timeRangeFromQuery(c *gin.Context) (*stats.TimeRange, error) {
	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr != "" || endStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, errBadWindow("start", startStr)
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, errBadWindow("end", endStr)
		}
		return &stats.TimeRange{Start: &start, End: &end}, nil
	}

	preset := c.Query("range")
	if preset == "" {
		return nil, nil
	}
	if !stats.ValidPreset(preset) {
		return nil, errBadWindow("range", preset)
	}
	return &stats.TimeRange{Preset: preset}, nil
}

type badWindowError struct{ param, value string }

func (e badWindowError) Error() string {
	return "invalid " + e.param + " parameter: " + e.value
}

func errBadWindow(param, value string) error {
	return badWindowError{param: param, value: value}
}

// handleMap returns the geo groups plus the viewport that fits them.
//
//	GET /api/servers/map
func handleMap(c *gin.Context) {
	servers, err := AllServers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	groups := geo.GroupByLocation(servers)
	if groups == nil {
		groups = []geo.Group{}
	}
	c.JSON(http.StatusOK, gin.H{
		"groups":   groups,
		"viewport": geo.FitViewport(groups, mapFitOptions),
	})
}

// handleProbeReport accepts a resource-usage report from a probe (data-plane only).
func handleProbeReport(c *gin.Context) {
	var report ProbeReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if report.IPAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip_address is required"})
		return
	}

	s, err := UpsertProbeReport(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	probeReportsReceived.Inc()
	c.JSON(http.StatusOK, gin.H{"id": s.ID, "name": s.Name})
}
