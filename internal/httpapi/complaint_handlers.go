package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"shagym.org/internal/policy"
	"shagym.org/internal/stream"
	"shagym.org/internal/workflow"
)

type createComplaintRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type transitionRequest struct {
	To              string                `json:"to"`
	Fields          workflow.FieldUpdates `json:"fields"`
	ExpectedVersion uint64                `json:"expected_version"`
}

type chatPostRequest struct {
	Text string `json:"text"`
}

type listComplaintsResponse struct {
	Items []workflow.Complaint `json:"items"`
	AsOf  time.Time            `json:"as_of"`
}

func (a *API) handleComplaintsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listComplaints(w, r)
	case http.MethodPost:
		a.createComplaint(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleComplaintResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/complaints/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id := path
	sub := ""
	if i := strings.IndexByte(path, '/'); i >= 0 {
		id, sub = path[:i], path[i+1:]
	}
	if id == "" || strings.Contains(sub, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch sub {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getComplaint(w, r, id)
	case "actions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listActions(w, r, id)
	case "transition":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.transition(w, r, id)
	case "chat":
		switch r.Method {
		case http.MethodGet:
			a.getChat(w, r, id)
		case http.MethodPost:
			a.postChat(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case "assist":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.assistComplaint(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createComplaint(w http.ResponseWriter, r *http.Request) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createComplaintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c, err := a.workflow.CreateComplaint(r.Context(), req.Title, req.Description, actor)
	if err != nil {
		handleWorkflowError(w, r, err)
		return
	}

	a.audit(r.Context(), "complaint.created", map[string]any{
		"complaint_id": c.ID,
		"title":        c.Title,
	})

	w.Header().Set("Location", "/v1/complaints/"+c.ID)
	writeJSON(w, http.StatusCreated, c)
}

// listComplaints returns the actor's visible set, newest first.
func (a *API) listComplaints(w http.ResponseWriter, r *http.Request) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	all, err := a.workflow.ListComplaints(r.Context())
	if err != nil {
		handleWorkflowError(w, r, err)
		return
	}

	visible := policy.VisibleComplaints(actor.Role, actor.ID, all)
	for i, j := 0, len(visible)-1; i < j; i, j = i+1, j-1 {
		visible[i], visible[j] = visible[j], visible[i]
	}

	writeJSON(w, http.StatusOK, listComplaintsResponse{
		Items: visible,
		AsOf:  time.Now().UTC(),
	})
}

// getComplaint hides complaints outside the actor's visibility window
// behind 404 so their existence does not leak.
func (a *API) getComplaint(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
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
	writeJSON(w, http.StatusOK, c)
}

func (a *API) listActions(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
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

	actions := policy.AllowedActions(actor.Role, c)
	canChat := a.chat != nil && a.chat.CanParticipate(actor, c)
	writeJSON(w, http.StatusOK, map[string]any{
		"actions":  actions,
		"can_chat": canChat,
	})
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	to, ok := workflow.ParseStatus(strings.TrimSpace(req.To))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown target status")
		return
	}

	c, err := a.workflow.ApplyTransition(r.Context(), id, to, actor, req.Fields, req.ExpectedVersion)
	if err != nil {
		handleWorkflowError(w, r, err)
		return
	}

	if a.stream != nil {
		a.stream.Publish(stream.ComplaintEvent{
			ComplaintID: c.ID,
			Status:      c.Status,
			Actor:       actor.Name,
			Timestamp:   time.Now().UTC(),
		})
	}

	a.audit(r.Context(), "complaint.transition", map[string]any{
		"complaint_id": c.ID,
		"status":       string(c.Status),
		"version":      c.Version,
	})

	writeJSON(w, http.StatusOK, c)
}

func (a *API) getChat(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	c, err := a.workflow.GetComplaint(r.Context(), id)
	if err != nil {
		handleWorkflowError(w, r, err)
		return
	}
	if a.chat == nil || !a.chat.CanParticipate(actor, c) {
		writeError(w, r, http.StatusForbidden, "chat not permitted")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":     c.Chat,
		"participants": a.chat.Participants(c, actor),
	})
}

func (a *API) postChat(w http.ResponseWriter, r *http.Request, id string) {
	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req chatPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := a.workflow.AppendChatMessage(r.Context(), id, actor, req.Text)
	if err != nil {
		handleWorkflowError(w, r, err)
		return
	}

	a.audit(r.Context(), "complaint.chat.message", map[string]any{
		"complaint_id": id,
	})

	writeJSON(w, http.StatusCreated, msg)
}

func handleWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidInput), errors.Is(err, workflow.ErrPreconditionNotMet):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrConcurrentModification):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrUnauthorized), errors.Is(err, workflow.ErrChatNotPermitted):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, workflow.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
