package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/xesinsight/internal/analysis"
	"github.com/gyaneshwarpardhi/xesinsight/internal/config"
	"github.com/gyaneshwarpardhi/xesinsight/internal/engine"
	"github.com/gyaneshwarpardhi/xesinsight/internal/metrics"
	"github.com/gyaneshwarpardhi/xesinsight/internal/upload"
	"github.com/gyaneshwarpardhi/xesinsight/internal/xes"
)

const (
	// multipartSlack covers form boundaries and headers around the file part.
	multipartSlack = 1 << 20

	msgInvalidFile = "Invalid or missing XES file."
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /upload-xes", h.uploadXES)
	h.mux.HandleFunc("POST /upload-xes/{$}", h.uploadXES)
	h.mux.HandleFunc("GET /v1/config", h.showConfig)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return requestIDMiddleware(loggingMiddleware(corsMiddleware(loader, h.mux)))
}

// POST /upload-xes/ — multipart upload, field "file".
func (h *Handler) uploadXES(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Config()
	limit := cfg.Server.MaxUploadBytes()
	if r.ContentLength > limit+multipartSlack {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", cfg.Server.MaxUploadMB))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.UploadsTotal.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", cfg.Server.MaxUploadMB))
			return
		}
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, msgInvalidFile)
		return
	}
	defer file.Close()

	if !upload.Allowed(header.Filename, cfg.Server.AllowedExtensions) {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, msgInvalidFile)
		return
	}

	data, err := upload.Read(header.Filename, file, limit)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		if errors.Is(err, upload.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("could not read upload: %s", err))
		return
	}

	rep, err := h.eng.Analyze(r.Context(), &engine.Upload{Name: header.Filename, Data: data})
	if err != nil {
		status, label := classify(err)
		metrics.UploadsTotal.WithLabelValues(label).Inc()
		msg := err.Error()
		if status == http.StatusInternalServerError {
			slog.Error("analysis failed", "file", header.Filename, "request_id", RequestID(r.Context()), "err", err)
			msg = fmt.Sprintf("Internal server error: %s", err)
		}
		writeError(w, status, msg)
		return
	}
	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, rep)
}

// classify maps an analysis error to an HTTP status and a metrics label.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, xes.ErrMalformedLog),
		errors.Is(err, xes.ErrInvalidTrace),
		errors.Is(err, analysis.ErrSchema):
		return http.StatusBadRequest, "invalid"
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusTooManyRequests, "rejected"
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, engine.ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "error"
	}
}

// GET /v1/config — active configuration.
func (h *Handler) showConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Config())
}

// POST /v1/config/reload — hot-reload config from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.eng.SwapOptions(engine.OptionsFrom(cfg.Analysis))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":     true,
		"trace_policy": cfg.Analysis.TracePolicy,
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if analysis queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
