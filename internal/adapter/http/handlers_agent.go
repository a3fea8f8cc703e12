package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/orchestrator"
	"github.com/parleybot/parley/internal/pipeline"
)

// AgentHandlers serves the orchestrator's turn endpoint.
type AgentHandlers struct {
	Orchestrator *orchestrator.Orchestrator
	Topology     *pipeline.Config
	ServiceName  string
}

// Routes mounts the agent endpoints.
func (h *AgentHandlers) Routes(r chi.Router) {
	r.Post("/v1/respond", h.Respond)
	r.Get("/health", h.Health)
}

type respondRequest struct {
	Dialog []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"dialog"`
}

type respondResponse struct {
	TurnID     string                        `json:"turn_id"`
	Text       string                        `json:"text"`
	Confidence float64                       `json:"confidence"`
	SkillName  string                        `json:"skill_name,omitempty"`
	Anno       map[string]map[string]float64 `json:"annotations,omitempty"`
}

// Respond runs one turn. Degraded pipelines still answer 200 with the
// neutral reply; a 4xx only happens when the request body itself is
// unreadable.
func (h *AgentHandlers) Respond(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[respondRequest](w, r)
	if !ok {
		return
	}

	dctx := dialog.Context{Utterances: make([]dialog.Utterance, len(req.Dialog))}
	for i, u := range req.Dialog {
		speaker := u.Speaker
		if speaker == "" {
			speaker = dialog.SpeakerHuman
		}
		dctx.Utterances[i] = dialog.Utterance{Speaker: speaker, Text: u.Text}
	}

	winner, turnID := h.Orchestrator.Respond(r.Context(), dctx)

	writeJSON(w, http.StatusOK, respondResponse{
		TurnID:     turnID,
		Text:       winner.Text,
		Confidence: winner.FinalConfidence,
		SkillName:  winner.SkillName,
		Anno:       winner.Annotations,
	})
}

// Health reports liveness and a summary of the loaded topology.
func (h *AgentHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": h.ServiceName,
		"stages":  h.Topology.StageCount(),
		"skills":  len(h.Topology.Skills),
	})
}
