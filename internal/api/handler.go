// Package api exposes the pipeline over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/userpipe/internal/pipeline"
	"github.com/kalambet/userpipe/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Runner executes pipeline batches.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
	Reject(err error) pipeline.Response
}

// ResultReader is the read-only view of stored results.
type ResultReader interface {
	GetResult(ctx context.Context, id int64) (storage.Result, error)
	ListResults(ctx context.Context, limit, offset int) ([]storage.Result, error)
	CountResults(ctx context.Context) (int, error)
}

// Deps holds everything the HTTP and MCP surfaces need.
type Deps struct {
	Pipeline Runner
	Results  ResultReader
	Logger   *slog.Logger
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	r.Get("/pipeline", handlePipelineStatus)
	r.Post("/pipeline", handleRunPipeline(deps))
	r.Get("/results", handleListResults(deps))
	r.Get("/results/{id}", handleGetResult(deps))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "not_found", "no route for %s %s", r.Method, r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method %s not allowed on %s", r.Method, r.URL.Path)
	})

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "Pipeline running",
		"endpoint": "POST /pipeline",
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"endpoint": "POST /pipeline",
	})
}

func handleRunPipeline(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		req, err := pipeline.DecodeRequest(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, deps.Pipeline.Reject(err))
			return
		}

		resp, err := deps.Pipeline.Run(r.Context(), req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, resp)
			return
		}

		w.Header().Set("X-Run-ID", resp.RunID)
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
