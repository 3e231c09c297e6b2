// Package api serves the dashboard's data feed over HTTP: the latest
// assessment of every reservoir, on-demand refreshes, operator feedback and
// the model metrics panel. Prometheus metrics are served at /metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rewired-gh/hydrowatch/internal/logger"
	"github.com/rewired-gh/hydrowatch/internal/models"
	"github.com/rewired-gh/hydrowatch/internal/storage"
)

// Monitor is the subset of the monitor the facade reads from.
type Monitor interface {
	Reservoirs() []models.Reservoir
	Reservoir(id string) (models.Reservoir, bool)
	Latest(id string) (*models.Assessment, bool)
	RefreshReservoir(ctx context.Context, id string) (*models.Assessment, error)
}

// Access is the subset of the data access layer the facade calls directly.
type Access interface {
	SubmitFeedbackAsync(fb models.Feedback)
	FetchModelMetrics(ctx context.Context) models.Outcome[map[string]models.ModelMetric]
}

// History reads persisted records.
type History interface {
	LatestReading(reservoirID string) (*storage.ReadingRecord, error)
	LatestReport(reservoirID string) (*storage.ReportRecord, error)
}

// Handler holds the facade's dependencies
type Handler struct {
	monitor Monitor
	access  Access
	history History
}

// NewHandler creates a new Handler
func NewHandler(monitor Monitor, access Access, history History) *Handler {
	return &Handler{
		monitor: monitor,
		access:  access,
		history: history,
	}
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: http.StatusText(status), Message: message})
}

// NewRouter builds the gin engine with every facade route registered
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers the facade routes on router
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.GET("/reservoirs", h.ListReservoirs)
	api.GET("/reservoirs/:id", h.GetAssessment)
	api.GET("/reservoirs/:id/reading", h.GetStoredReading)
	api.GET("/reservoirs/:id/report", h.GetStoredReport)
	api.POST("/reservoirs/:id/refresh", h.Refresh)
	api.POST("/feedback", h.SubmitFeedback)
	api.GET("/models/metrics", h.ModelMetrics)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d in %v", c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReservoirSummary is one row of the reservoir list
type ReservoirSummary struct {
	Reservoir  models.Reservoir         `json:"reservoir"`
	RiskLevel  models.RiskLevel         `json:"risk_level,omitempty"`
	Degraded   bool                     `json:"degraded"`
	AssessedAt *time.Time               `json:"assessed_at"`
	Reading    *models.SatelliteReading `json:"reading,omitempty"`
}

// ListReservoirs returns every configured reservoir with its latest risk
func (h *Handler) ListReservoirs(c *gin.Context) {
	reservoirs := h.monitor.Reservoirs()
	out := make([]ReservoirSummary, 0, len(reservoirs))
	for _, r := range reservoirs {
		row := ReservoirSummary{Reservoir: r}
		if a, ok := h.monitor.Latest(r.ID); ok {
			at := a.AssessedAt
			reading := a.Reading.Value
			row.RiskLevel = a.RiskLevel()
			row.Degraded = a.Degraded()
			row.AssessedAt = &at
			row.Reading = &reading
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}

// GetAssessment returns the latest cached assessment of a reservoir
func (h *Handler) GetAssessment(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.monitor.Reservoir(id); !ok {
		abort(c, http.StatusNotFound, "unknown reservoir "+id)
		return
	}
	a, ok := h.monitor.Latest(id)
	if !ok {
		abort(c, http.StatusNotFound, "no assessment yet for "+id)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetStoredReading returns the last persisted reading of a reservoir
func (h *Handler) GetStoredReading(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.history.LatestReading(id)
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusNotFound, "no stored reading for "+id)
		return
	}
	if err != nil {
		logger.Error("Failed to load reading for %s: %v", id, err)
		abort(c, http.StatusInternalServerError, "failed to load reading")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservoir_id": rec.ReservoirID,
		"season":       rec.Season,
		"reading":      rec.Reading,
		"source":       rec.Source,
		"recorded_at":  rec.RecordedAt,
	})
}

// GetStoredReport returns the last persisted report of a reservoir
func (h *Handler) GetStoredReport(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.history.LatestReport(id)
	if errors.Is(err, storage.ErrNotFound) {
		abort(c, http.StatusNotFound, "no stored report for "+id)
		return
	}
	if err != nil {
		logger.Error("Failed to load report for %s: %v", id, err)
		abort(c, http.StatusInternalServerError, "failed to load report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservoir_id": rec.ReservoirID,
		"report":       rec.Report,
		"source":       rec.Source,
		"created_at":   rec.CreatedAt,
	})
}

// Refresh runs one refresh of a reservoir and returns the new assessment
func (h *Handler) Refresh(c *gin.Context) {
	id := c.Param("id")
	a, err := h.monitor.RefreshReservoir(c.Request.Context(), id)
	if err != nil {
		abort(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, a)
}

// SubmitFeedback accepts operator feedback and forwards it in the background
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var fb models.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		abort(c, http.StatusBadRequest, "invalid feedback body: "+err.Error())
		return
	}
	if err := fb.Validate(); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}

	h.access.SubmitFeedbackAsync(fb)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// ModelMetrics returns the model status table with its provenance
func (h *Handler) ModelMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.access.FetchModelMetrics(c.Request.Context()))
}
