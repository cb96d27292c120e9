// Package policy computes per-role complaint visibility and the advisory
// action surface. Nothing here authorizes anything: the transition engine
// re-checks every request independently.
package policy

import "shagym.org/internal/workflow"

// visibility is keyed by role so adding a role is a data change, not a new
// branch scattered across the codebase. Unknown roles fail closed.
var visibility = map[workflow.Role]func(actorID string, c workflow.Complaint) bool{
	workflow.RoleComplainer: func(actorID string, c workflow.Complaint) bool {
		return c.SubmittedBy == actorID
	},
	workflow.RoleInspector: func(actorID string, c workflow.Complaint) bool {
		// A complaint leaves the inspector's view once the report is in.
		return c.AssignedTo == actorID &&
			(c.Status == workflow.StatusAssignedToInspector || c.Status == workflow.StatusInvestigationInProgress)
	},
	workflow.RoleCommissioner: func(string, workflow.Complaint) bool {
		return true
	},
	workflow.RoleProsecutor: func(_ string, c workflow.Complaint) bool {
		return c.Status == workflow.StatusReportSubmitted || c.Status == workflow.StatusReadyForProsecution
	},
}

// Visible reports whether the actor may see the complaint at all.
func Visible(role workflow.Role, actorID string, c workflow.Complaint) bool {
	pred, ok := visibility[role]
	if !ok {
		return false
	}
	return pred(actorID, c)
}

// VisibleComplaints filters the full set down to what the actor may see,
// preserving the input order.
func VisibleComplaints(role workflow.Role, actorID string, all []workflow.Complaint) []workflow.Complaint {
	out := make([]workflow.Complaint, 0, len(all))
	for _, c := range all {
		if Visible(role, actorID, c) {
			out = append(out, c)
		}
	}
	return out
}

// Action describes one transition the role could perform from the
// complaint's current status. Advisory only.
type Action struct {
	To               workflow.Status `json:"to"`
	RequiresAssignee bool            `json:"requires_assignee,omitempty"`
	RequiresReport   bool            `json:"requires_report,omitempty"`
	RequiresDecision bool            `json:"requires_decision,omitempty"`
}

// AllowedActions lists the transition rows leaving the complaint's current
// status whose actor constraint the role could in principle satisfy.
// Identity constraints (assignee, filer) are evaluated against the role
// only; the engine checks the actual actor on execution.
func AllowedActions(role workflow.Role, c workflow.Complaint) []Action {
	var out []Action
	for _, r := range workflow.RulesFrom(c.Status) {
		if r.Actor != role {
			continue
		}
		out = append(out, Action{
			To:               r.To,
			RequiresAssignee: r.Requires == workflow.RequireAssignee,
			RequiresReport:   r.Requires == workflow.RequireInspectorReport,
			RequiresDecision: r.Requires == workflow.RequireProsecutorDecision,
		})
	}
	return out
}
