package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/michraz/internal/middleware"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.1.0"
	// HealthCheckTimeout is the timeout for database health checks
	HealthCheckTimeout = 2 * time.Second
)

// Dependency states reported by the readiness check.
const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	statusDisabled     = "disabled"
	statusLoaded       = "loaded"
	statusNotLoaded    = "not_loaded"
)

// Pinger checks a backing store. *database.Database implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker reports whether a dependency has finished warming up.
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	startTime time.Time
	db        Pinger
	dataset   ReadinessChecker
	env       string
}

// NewHealthHandler creates a new HealthHandler instance. db may be nil when
// no database is configured.
func NewHealthHandler(db Pinger, dataset ReadinessChecker, env string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		dataset:   dataset,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Dataset  string `json:"dataset"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

// Health handles GET /health endpoint.
// It never checks dependencies and is used for liveness probes.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// Returns 200 when the tender dataset is loaded and the database, if
// configured, answers a ping. Returns 503 otherwise.
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := ReadyResponse{
		Status:   "ready",
		Database: statusDisabled,
		Dataset:  statusLoaded,
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
		defer cancel()

		resp.Database = statusConnected
		if err := h.db.Ping(ctx); err != nil {
			if log := middleware.GetLogger(c); log != nil {
				log.Error("Database health check failed", err, map[string]interface{}{
					"timeout": HealthCheckTimeout.String(),
				})
			}
			resp.Database = statusDisconnected
			resp.Status = "not_ready"
		}
	}

	if h.dataset != nil && !h.dataset.Ready() {
		resp.Dataset = statusNotLoaded
		resp.Status = "not_ready"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, and uptime.
func (h *HealthHandler) Info(c *gin.Context) {
	uptime := time.Since(h.startTime)

	c.JSON(http.StatusOK, InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(uptime),
	})
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
