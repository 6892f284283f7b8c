package api

import (
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/safetycheck/safetycheck/internal/adapter"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/pipeline"
	"github.com/safetycheck/safetycheck/internal/schema"
)

// Body size ceilings. Text analysis stays small; uploads get more room.
const (
	maxAnalyzeBody = 1 << 20  // 1 MiB
	maxUploadBody  = 10 << 20 // 10 MiB
)

var allowedImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Handler serves the analysis API.
type Handler struct {
	pipeline *pipeline.Pipeline
	logger   logger.Logger
}

// NewHandler creates the API handler.
func NewHandler(p *pipeline.Pipeline, log logger.Logger) *Handler {
	return &Handler{pipeline: p, logger: log}
}

// identity derives the caller identity: the API key header when present,
// the client IP otherwise, so anonymous callers still get per-IP quotas.
func identity(c *gin.Context) pipeline.Identity {
	origin := clientIP(c)
	key := c.GetHeader("X-API-Key")
	if key == "" {
		key = origin
	}
	return pipeline.Identity{Key: key, Origin: origin}
}

func clientIP(c *gin.Context) string {
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

// Analyze handles POST /api/analyze.
func (h *Handler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAnalyzeBody)

	var req schema.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status := http.StatusBadRequest
		msg := "invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			msg = "request body too large"
		}
		fail(c, status, msg)
		return
	}
	if err := req.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	id := identity(c)
	var outcome *pipeline.Outcome
	var err error
	if req.URL != "" {
		outcome, err = h.pipeline.AnalyzeURL(c.Request.Context(), id, req.URL)
	} else {
		outcome, err = h.pipeline.AnalyzeText(c.Request.Context(), id, req.Text, schema.Platform(req.PlatformHint))
	}
	if err != nil {
		h.failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, schema.AnalyzeResponse{
		Success: true,
		Data:    outcome.Result,
		Cached:  outcome.Cached,
	})
}

// AnalyzeUpload handles POST /api/analyze/upload: a multipart image plus
// optional text context.
func (h *Handler) AnalyzeUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		fail(c, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		fail(c, http.StatusBadRequest, "unsupported image type")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read image file")
		return
	}
	if len(data) == 0 {
		fail(c, http.StatusBadRequest, "image file is empty")
		return
	}

	text := c.Request.FormValue("text")
	if len(text) > schema.MaxRequestTextLen {
		fail(c, http.StatusBadRequest, "text too long")
		return
	}

	outcome, err := h.pipeline.AnalyzeUpload(c.Request.Context(), identity(c), data, ext, text)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, schema.AnalyzeResponse{
		Success: true,
		Data:    outcome.Result,
		Cached:  outcome.Cached,
	})
}

// Health handles GET /health with the adapter liveness aggregate.
func (h *Handler) Health(c *gin.Context) {
	results := h.pipeline.HealthCheck(c.Request.Context())

	status := "healthy"
	adapters := make(map[string]bool, len(results))
	for platform, healthy := range results {
		adapters[string(platform)] = healthy
		if !healthy {
			status = "degraded"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "adapters": adapters})
}

// Stats handles GET /api/stats: the caller's remaining quota windows.
// Aggregate service counters live on the Prometheus endpoint; this is the
// per-caller view.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"quota": h.pipeline.QuotaUsage(identity(c))},
	})
}

// ClearCache handles DELETE /api/cache.
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.pipeline.ClearCache(c.Request.Context()); err != nil {
		h.logger.Error("cache clear failed", logger.Error(err))
		fail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// failFromError maps pipeline errors onto the caller-visible taxonomy.
// Anything unrecognized gets a generic message; internal detail is only
// logged.
func (h *Handler) failFromError(c *gin.Context, err error) {
	var noAdapter *pipeline.NoAdapterError
	switch {
	case errors.Is(err, pipeline.ErrTooManyRequests):
		fail(c, http.StatusTooManyRequests, "too many requests")
	case errors.As(err, &noAdapter):
		fail(c, http.StatusUnprocessableEntity, "unsupported platform")
	case adapter.IsURLParse(err):
		fail(c, http.StatusBadRequest, err.Error())
	case adapter.IsContentExtraction(err):
		fail(c, http.StatusNotFound, "content unavailable")
	case adapter.IsRateLimit(err):
		fail(c, http.StatusServiceUnavailable, "source temporarily unavailable, try again later")
	default:
		h.logger.Error("analysis failed",
			logger.String("request_id", c.GetString("request_id")),
			logger.Error(err))
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, schema.AnalyzeResponse{Success: false, Error: msg})
}
