package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"shagym.org/internal/ai"
	"shagym.org/internal/policy"
)

type assistRequest struct {
	Task string `json:"task"`
}

type assistDraftRequest struct {
	Title string `json:"title"`
}

type assistResponse struct {
	Text string `json:"text"`
}

// assistComplaint runs a role-scoped assistant task against a complaint the
// actor can see. Assistant failures never affect workflow state.
func (a *API) assistComplaint(w http.ResponseWriter, r *http.Request, id string) {
	if a.assistant == nil {
		writeError(w, r, http.StatusServiceUnavailable, "assistant disabled")
		return
	}

	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req assistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c, err := a.workflow.GetComplaint(r.Context(), id)
	if err != nil {
		handleWorkflowError(w, r, err)
		return
	}
	if !policy.Visible(actor.Role, actor.ID, c) {
		writeError(w, r, http.StatusNotFound, "complaint not found")
		return
	}

	text, err := a.assistant.Assist(r.Context(), ai.Task(strings.TrimSpace(req.Task)), actor, c)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrTaskNotAllowed):
			writeError(w, r, http.StatusForbidden, err.Error())
		case errors.Is(err, ai.ErrUnknownTask):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusBadGateway, "assistant unavailable")
		}
		return
	}

	a.audit(r.Context(), "complaint.assist", map[string]any{
		"complaint_id": id,
		"task":         req.Task,
	})

	writeJSON(w, http.StatusOK, assistResponse{Text: text})
}

// handleAssistDraft drafts a complaint description from a title. Available
// to any authenticated user before the complaint exists.
func (a *API) handleAssistDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.assistant == nil {
		writeError(w, r, http.StatusServiceUnavailable, "assistant disabled")
		return
	}

	if _, err := a.currentUser(r); err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req assistDraftRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}

	text, err := a.assistant.DraftDescription(r.Context(), title)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, assistResponse{Text: text})
}
