package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-api-mailer/internal/application/draft"
)

// DraftHandler exposes the LLM drafting helpers.
type DraftHandler struct {
	svc draft.Service
}

func NewDraftHandler(svc draft.Service) *DraftHandler { return &DraftHandler{svc: svc} }

type improveBody struct {
	Description string `json:"description"`
	Context     string `json:"context"`
}

// Improve serves POST /email/improve.
func (h *DraftHandler) Improve(w http.ResponseWriter, r *http.Request) {
	var body improveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, DraftsEnvelope{Result: h.svc.Improve(r.Context(), body.Description, body.Context)})
}

// ImproveDescription serves POST /llm/improve-description, which answers with a bare list.
func (h *DraftHandler) ImproveDescription(w http.ResponseWriter, r *http.Request) {
	var body improveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Improve(r.Context(), body.Description, body.Context))
}

func (h *DraftHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, _ := strconv.Atoi(q.Get("numSubjects"))
	subjects := h.svc.Subjects(r.Context(), q.Get("tone"), q.Get("emailContent"), n)
	writeJSON(w, http.StatusOK, SubjectsEnvelope{Subjects: subjects})
}
