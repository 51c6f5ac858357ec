// Package api provides the leaderboard HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/objecthunter/internal/session"
	"github.com/ayusman/objecthunter/internal/store"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 100

// RoundHandler handles HTTP requests for recorded rounds.
type RoundHandler struct {
	store *store.Store
}

// NewRoundHandler creates a new RoundHandler with the given store.
func NewRoundHandler(s *store.Store) *RoundHandler {
	return &RoundHandler{store: s}
}

// ServeHTTP routes /api/rounds and /api/rounds/{id}.
func (h *RoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/rounds"), "/")

	if id == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type roundResponse struct {
	ID         string         `json:"id"`
	Player     string         `json:"player"`
	Difficulty string         `json:"difficulty"`
	Score      int            `json:"score"`
	DurationMs int64          `json:"duration_ms"`
	SkipsUsed  int            `json:"skips_used"`
	Completed  bool           `json:"completed"`
	StartedAt  string         `json:"started_at"`
	EndedAt    string         `json:"ended_at"`
	Finds      []findResponse `json:"finds,omitempty"`
}

type findResponse struct {
	Sequence   int     `json:"sequence"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	FoundAt    string  `json:"found_at"`
}

type listRoundsResponse struct {
	Rounds []roundResponse `json:"rounds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(rd *store.Round) roundResponse {
	return roundResponse{
		ID:         rd.ID,
		Player:     rd.Player,
		Difficulty: rd.Difficulty,
		Score:      rd.Score,
		DurationMs: rd.Duration.Milliseconds(),
		SkipsUsed:  rd.SkipsUsed,
		Completed:  rd.Completed,
		StartedAt:  rd.StartedAt.Format(time.RFC3339),
		EndedAt:    rd.EndedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/rounds?difficulty=&limit= and returns the leaderboard.
func (h *RoundHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	difficulty := ""
	if v := q.Get("difficulty"); v != "" {
		d, err := session.ParseDifficulty(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		difficulty = d.String()
	}

	limit := store.DefaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxListLimit)
	}

	rounds, err := h.store.Rounds().List(difficulty, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rounds")
		return
	}

	response := listRoundsResponse{Rounds: make([]roundResponse, 0, len(rounds))}
	for _, rd := range rounds {
		response.Rounds = append(response.Rounds, toResponse(rd))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/rounds/{id} and returns the round with its finds.
func (h *RoundHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rd, err := h.store.Rounds().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Round not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get round")
		return
	}

	finds, err := h.store.Rounds().Finds(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get finds")
		return
	}

	response := toResponse(rd)
	for _, f := range finds {
		response.Finds = append(response.Finds, findResponse{
			Sequence:   f.Sequence,
			Label:      f.Label,
			Confidence: f.Confidence,
			FoundAt:    f.FoundAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/rounds/{id}.
func (h *RoundHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Rounds().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Round not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete round")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
