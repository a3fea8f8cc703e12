package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleybot/parley/internal/domain/dialog"
	"github.com/parleybot/parley/internal/skillrt"
)

// SkillHandlers serves a skill's batched respond endpoint through the
// skill runtime.
type SkillHandlers struct {
	Runtime *skillrt.Runtime
}

// Routes mounts the skill endpoints.
func (h *SkillHandlers) Routes(r chi.Router) {
	r.Post("/respond", h.Respond)
	r.Get("/healthcheck", h.Healthcheck)
}

type skillRequest struct {
	DialogContexts [][]struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"dialog_contexts"`
	RandomSeed *int64 `json:"random_seed,omitempty"`
}

// Respond produces one result tuple per input context. Per-item failures
// surface as the neutral tuple at that item's position; the endpoint
// itself only rejects unreadable bodies.
func (h *SkillHandlers) Respond(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[skillRequest](w, r)
	if !ok {
		return
	}

	contexts := make([]dialog.Context, len(req.DialogContexts))
	for i, wired := range req.DialogContexts {
		uts := make([]dialog.Utterance, len(wired))
		for j, u := range wired {
			uts[j] = dialog.Utterance{Speaker: u.Speaker, Text: u.Text}
		}
		contexts[i] = dialog.Context{Utterances: uts}
	}

	results := h.Runtime.Batch(r.Context(), contexts, req.RandomSeed)
	writeJSON(w, http.StatusOK, results)
}

// Healthcheck reports readiness to dependents polling this skill.
func (h *SkillHandlers) Healthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"skill":  h.Runtime.Name(),
	})
}
