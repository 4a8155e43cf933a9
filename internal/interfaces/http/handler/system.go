package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/invoicely/backend/internal/infrastructure/persistence"
	"github.com/invoicely/backend/internal/interfaces/http/dto"
)

// SystemHandler handles system endpoints
type SystemHandler struct {
	BaseHandler
	db        *persistence.Database
	redis     *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. The redis client may be nil
// when the server runs with the in-memory blacklist.
func NewSystemHandler(db *persistence.Database, redisClient *redis.Client) *SystemHandler {
	return &SystemHandler{
		db:        db,
		redis:     redisClient,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic build and uptime information
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Invoicely Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	h.Success(c, info)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping reports that the API is responsive
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Stats    map[string]any `json:"stats,omitempty"`
}

// Health checks database connectivity and reports connection pool stats
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Database: "up"}

	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("UNHEALTHY", "Database is unreachable"))
			return
		}
		resp.Stats, _ = h.db.ConnectionStats()
	}

	h.Success(c, resp)
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Ready checks that every dependency the server needs is reachable.
// Redis is reported as "disabled" when the server runs without it.
func (h *SystemHandler) Ready(c *gin.Context) {
	resp := ReadinessResponse{Status: "ready", Database: "up", Redis: "disabled"}

	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			resp.Status = "not_ready"
			resp.Database = "down"
		}
	}

	if h.redis != nil {
		resp.Redis = "up"
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			resp.Status = "not_ready"
			resp.Redis = "down"
		}
	}

	if resp.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("NOT_READY", "One or more dependencies are unreachable"))
		return
	}

	h.Success(c, resp)
}
