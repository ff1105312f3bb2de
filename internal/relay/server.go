// Package relay is a small HTTP front for the model backend. It exposes the
// generate capability over POST /api/v1/chat so thin clients can reach the
// model without speaking the backend's native protocol.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyxlabs/nyx/internal/infrastructure/ai"
)

// Generator produces one full response for one prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewRouter builds the chi router for the relay.
func NewRouter(gen Generator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/v1/chat", handleChat(gen, logger))
	return r
}

func handleChat(gen Generator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Prompt is missing"})
			return
		}

		response, err := gen.Generate(r.Context(), req.Prompt)
		if err != nil {
			if errors.Is(err, ai.ErrBackendUnreachable) {
				logger.Warn("backend unreachable", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{
					Detail: "Could not connect to Ollama service: " + err.Error(),
				})
				return
			}
			logger.Error("generate failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Detail: "An unexpected error occurred: " + err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{Response: response})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
