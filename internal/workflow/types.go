package workflow

import (
	"errors"
	"time"
)

// Role is the fixed set of workflow actors. Roles never aggregate; a user
// holds exactly one.
type Role string

const (
	RoleComplainer   Role = "Complainer"
	RoleInspector    Role = "Inspector"
	RoleCommissioner Role = "Commissioner"
	RoleProsecutor   Role = "Prosecutor"
)

// Roles lists every recognized role in presentation order.
var Roles = []Role{RoleComplainer, RoleInspector, RoleCommissioner, RoleProsecutor}

// ParseRole maps a wire value to a Role. Unknown values fail closed.
func ParseRole(raw string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// Status is the complaint's workflow stage. The display strings are part of
// the persisted format and must not change.
type Status string

const (
	StatusSubmitted               Status = "Submitted"
	StatusAssignedToInspector     Status = "Assigned to Inspector"
	StatusInvestigationInProgress Status = "Investigation in Progress"
	StatusReportSubmitted         Status = "Report Submitted"
	// StatusReadyForProsecution is a recognized stage with no transition
	// into it. Kept until product decides whether it should be reachable.
	StatusReadyForProsecution Status = "Ready for Prosecution"
	StatusActionTaken         Status = "Action Taken"
	StatusClosed              Status = "Closed"
)

// Statuses lists every recognized status.
var Statuses = []Status{
	StatusSubmitted,
	StatusAssignedToInspector,
	StatusInvestigationInProgress,
	StatusReportSubmitted,
	StatusReadyForProsecution,
	StatusActionTaken,
	StatusClosed,
}

// ParseStatus maps a wire value to a Status.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// User is an immutable registry record. The engine trusts the User it is
// given; identity verification happens before a request reaches this package.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// HistoryEntry is an immutable audit record of one accepted transition.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"` // display name
}

// ChatMessage is one entry of a complaint's conversation thread.
type ChatMessage struct {
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// Complaint is the central aggregate. Status always equals the status of the
// last history entry; only ApplyTransition may change either.
type Complaint struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Status             Status         `json:"status"`
	SubmittedBy        string         `json:"submitted_by"`
	AssignedTo         string         `json:"assigned_to,omitempty"`
	InvestigationNotes string         `json:"investigation_notes,omitempty"`
	InspectorReport    string         `json:"inspector_report,omitempty"`
	ProsecutorDecision string         `json:"prosecutor_decision,omitempty"`
	History            []HistoryEntry `json:"history"`
	Chat               []ChatMessage  `json:"chat,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`

	// Version increases on every mutation and guards optimistic writes.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy so callers never hold references into the store.
func (c Complaint) Clone() Complaint {
	out := c
	out.History = make([]HistoryEntry, len(c.History))
	copy(out.History, c.History)
	if len(c.Chat) > 0 {
		out.Chat = make([]ChatMessage, len(c.Chat))
		copy(out.Chat, c.Chat)
	} else {
		out.Chat = nil
	}
	return out
}

// FieldUpdates carries the optional field effects of a transition request.
type FieldUpdates struct {
	AssignTo           string `json:"assign_to,omitempty"`
	InvestigationNotes string `json:"investigation_notes,omitempty"`
	InspectorReport    string `json:"inspector_report,omitempty"`
	ProsecutorDecision string `json:"prosecutor_decision,omitempty"`
}

var (
	ErrInvalidTransition      = errors.New("workflow: invalid transition")
	ErrUnauthorized           = errors.New("workflow: unauthorized")
	ErrPreconditionNotMet     = errors.New("workflow: precondition not met")
	ErrNotFound               = errors.New("workflow: not found")
	ErrConcurrentModification = errors.New("workflow: concurrent modification")
	ErrChatNotPermitted       = errors.New("workflow: chat not permitted")
	ErrInvalidInput           = errors.New("workflow: invalid input")
)
