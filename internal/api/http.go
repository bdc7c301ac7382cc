package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/memoraxx/internal/dispatch"
	"github.com/kalambet/memoraxx/internal/metrics"
	"github.com/kalambet/memoraxx/internal/storage"
)

const maxDispatchBodySize = 1 << 20 // 1MB

// Deps holds what the HTTP handler needs. Archive and Metrics are optional.
type Deps struct {
	Session *Session
	Archive InteractionStore
	Metrics *metrics.Metrics
	Token   string
}

// DispatchRequest is the body of POST /v1/dispatch.
type DispatchRequest struct {
	Input string `json:"input"`
}

// DispatchResponse reports how one line was routed and what it produced.
type DispatchResponse struct {
	Kind       string `json:"kind"`
	Command    string `json:"command,omitempty"`
	Message    string `json:"message,omitempty"`
	Exit       bool   `json:"exit,omitempty"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	Tool       string `json:"tool,omitempty"`
	TokenCount int    `json:"token_count,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// NewHandler builds the loopback API router. /health stays open; every
// other route sits behind the bearer token when one is set.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/v1/dispatch", handleDispatch(deps))
		r.Get("/v1/memory", handleGetMemory(deps))
		r.Delete("/v1/memory", handleClearMemory(deps))
		r.Get("/v1/interactions", handleListInteractions(deps))
		r.Get("/v1/interactions/{id}", handleGetInteraction(deps))
		if deps.Metrics != nil {
			r.Handle("/metrics", deps.Metrics.Handler())
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleDispatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxDispatchBodySize)
		defer r.Body.Close()

		var req DispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Input) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "input is required")
			return
		}

		out, err := deps.Session.Dispatch(r.Context(), req.Input)
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "session busy: %v", err)
			return
		}

		resp := DispatchResponse{
			Kind:    out.Kind.String(),
			Message: out.Message,
			Exit:    out.Exit,
		}
		if out.Command != nil {
			resp.Command = out.Command.Name
		}
		if out.Kind == dispatch.KindQuery {
			res := out.Result
			resp.Response = res.Text
			resp.Attempts = res.Attempts
			resp.Tool = res.Tool
			resp.TokenCount = res.TokenCount
			resp.DurationMS = res.Duration.Milliseconds()
			if res.Err != nil {
				resp.Error = res.Err.Error()
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGetMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, snapshot(deps.Session.Memory()))
	}
}

func handleClearMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Session.ClearMemory(r.Context()); err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "session busy: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archive == nil {
			httpError(w, http.StatusNotFound, "not_found", "interaction archive is disabled")
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		var (
			items []storage.Interaction
			err   error
		)
		if q := r.URL.Query().Get("q"); q != "" {
			items, err = deps.Archive.SearchInteractions(q, limit, offset)
		} else {
			items, err = deps.Archive.ListInteractions(limit, offset)
		}
		if err != nil {
			slog.Error("listing interactions", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions")
			return
		}
		if items == nil {
			items = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleGetInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Archive == nil {
			httpError(w, http.StatusNotFound, "not_found", "interaction archive is disabled")
			return
		}

		id := chi.URLParam(r, "id")
		item, err := deps.Archive.GetInteraction(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction %s not found", id)
			return
		}
		if err != nil {
			slog.Error("getting interaction", "id", id, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
