// Package server exposes the analyst over HTTP. Analysis runs stream back
// as newline-delimited JSON progress events, flushed per event so a client
// can render progress before the run completes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dogukank/dbanalyst/internal/analyst"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Runner starts one analysis session. *analyst.Analyst is the production
// implementation.
type Runner interface {
	Run(ctx context.Context, question string) <-chan analyst.Event
}

// New returns the HTTP handler for the analyst backend.
func New(runner Runner, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/analyze", handleAnalyze(runner, log))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type analyzeRequest struct {
	UserQuery string `json:"user_query"`
}

func handleAnalyze(runner Runner, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.UserQuery) == "" {
			httpError(w, http.StatusBadRequest, "user_query is required and must not be empty")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		log.Info("analysis request received", "question", req.UserQuery)

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")

		// The request context cancels the run when the client disconnects,
		// so an abandoned stream stops spending model calls.
		enc := json.NewEncoder(w)
		for ev := range runner.Run(r.Context(), req.UserQuery) {
			if err := enc.Encode(ev); err != nil {
				log.Warn("client went away mid-stream", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func httpError(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"type":    "error",
		"content": fmt.Sprintf(format, args...),
	})
}
