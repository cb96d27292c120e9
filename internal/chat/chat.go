// Package chat decides who may read and write a complaint's conversation
// thread and who its participant set is.
package chat

import "shagym.org/internal/workflow"

// Directory resolves user ids; satisfied by registry.Registry.
type Directory interface {
	Lookup(id string) (workflow.User, error)
}

// Resolver implements the chat eligibility rules. It satisfies
// workflow.ChatGate so the engine enforces eligibility at send time.
type Resolver struct {
	directory Directory
}

// NewResolver constructs a Resolver backed by the given directory.
func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// CanParticipate reports whether the actor may read/write the thread.
//
// The first check lets only a Commissioner past an unassigned complaint,
// yet the dispatch below has no Commissioner branch, so Commissioners can
// never actually chat. That is the shipped behavior; do not "fix" it here
// without a product decision.
func (r *Resolver) CanParticipate(actor workflow.User, c workflow.Complaint) bool {
	if c.AssignedTo == "" && actor.Role != workflow.RoleCommissioner {
		return false
	}
	switch actor.Role {
	case workflow.RoleComplainer:
		return c.AssignedTo != ""
	case workflow.RoleInspector:
		return actor.ID == c.AssignedTo
	case workflow.RoleProsecutor:
		switch c.Status {
		case workflow.StatusReportSubmitted, workflow.StatusReadyForProsecution, workflow.StatusActionTaken:
			return true
		}
		return false
	default:
		return false
	}
}

// Participants returns the thread's participant set for display: the filer
// and the assigned inspector when resolvable, plus a prosecutor when the
// current actor is one or one has already written to the thread.
// Membership here grants nothing; CanParticipate gates every send.
func (r *Resolver) Participants(c workflow.Complaint, current workflow.User) []workflow.User {
	var out []workflow.User
	if u, err := r.directory.Lookup(c.SubmittedBy); err == nil {
		out = append(out, u)
	}
	if c.AssignedTo != "" {
		if u, err := r.directory.Lookup(c.AssignedTo); err == nil {
			out = append(out, u)
		}
	}

	prosecutor, found := r.prosecutorInThread(c)
	if !found && current.Role == workflow.RoleProsecutor {
		prosecutor, found = current, true
	}
	if found {
		for _, p := range out {
			if p.ID == prosecutor.ID {
				return out
			}
		}
		out = append(out, prosecutor)
	}
	return out
}

// prosecutorInThread finds the first chat sender who resolves to a
// prosecutor in the registry.
func (r *Resolver) prosecutorInThread(c workflow.Complaint) (workflow.User, bool) {
	for _, msg := range c.Chat {
		u, err := r.directory.Lookup(msg.SenderID)
		if err != nil {
			continue
		}
		if u.Role == workflow.RoleProsecutor {
			return u, true
		}
	}
	return workflow.User{}, false
}
