package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/scorer"
)

// ScorerHandlers serves the hypothesis scorer's batch endpoint.
type ScorerHandlers struct {
	Scorer      *scorer.Scorer
	ServiceName string
}

// Routes mounts the scorer endpoints.
func (h *ScorerHandlers) Routes(r chi.Router) {
	r.Post("/batch_model", h.BatchModel)
	r.Get("/health", h.Health)
}

type batchRequest struct {
	Contexts   [][]string          `json:"contexts"`
	Hypotheses []dialog.Hypothesis `json:"hypotheses"`
}

type batchResponse struct {
	Batch []float64 `json:"batch"`
}

// BatchModel scores a batch of hypotheses. The response always carries
// one score per hypothesis; a degraded model shows up as zeros, never as
// an error status.
func (h *ScorerHandlers) BatchModel(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[batchRequest](w, r)
	if !ok {
		return
	}

	scores := h.Scorer.ScoreBatch(r.Context(), req.Contexts, req.Hypotheses)
	writeJSON(w, http.StatusOK, []batchResponse{{Batch: scores}})
}

// Health reports liveness.
func (h *ScorerHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": h.ServiceName,
	})
}
