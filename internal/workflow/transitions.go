package workflow

// Requirement names the field a transition row demands before it is accepted.
type Requirement int

const (
	RequireNone Requirement = iota
	RequireAssignee
	RequireInspectorReport
	RequireProsecutorDecision
)

// Rule is one row of the transition table. Authorization is part of the row:
// the actor must hold Actor's role and, where flagged, be the complaint's
// assignee or original filer.
type Rule struct {
	From            Status
	To              Status
	Actor           Role
	ActorIsAssignee bool
	ActorIsFiler    bool
	Requires        Requirement
}

// Rules is the fixed transition table. The filer's withdraw edge (any
// non-Closed status straight to Closed) is synthesized by rulesFor rather
// than enumerated per status.
var Rules = []Rule{
	{From: StatusSubmitted, To: StatusAssignedToInspector, Actor: RoleCommissioner, Requires: RequireAssignee},
	{From: StatusAssignedToInspector, To: StatusInvestigationInProgress, Actor: RoleInspector, ActorIsAssignee: true},
	{From: StatusInvestigationInProgress, To: StatusReportSubmitted, Actor: RoleInspector, ActorIsAssignee: true, Requires: RequireInspectorReport},
	{From: StatusReportSubmitted, To: StatusActionTaken, Actor: RoleProsecutor, Requires: RequireProsecutorDecision},
	{From: StatusActionTaken, To: StatusClosed, Actor: RoleCommissioner},
}

func withdrawRule(from Status) Rule {
	return Rule{From: from, To: StatusClosed, Actor: RoleComplainer, ActorIsFiler: true}
}

// rulesFor returns every candidate rule for the requested edge.
func rulesFor(from, to Status) []Rule {
	var out []Rule
	for _, r := range Rules {
		if r.From == from && r.To == to {
			out = append(out, r)
		}
	}
	if to == StatusClosed && from != StatusClosed {
		out = append(out, withdrawRule(from))
	}
	return out
}

// RulesFrom returns the rows leaving the given status, withdraw included.
// Consumed by the access policy to list actions; the engine never trusts
// that listing and re-checks every request itself.
func RulesFrom(from Status) []Rule {
	var out []Rule
	for _, r := range Rules {
		if r.From == from {
			out = append(out, r)
		}
	}
	if from != StatusClosed {
		out = append(out, withdrawRule(from))
	}
	return out
}

// permits reports whether the actor satisfies the row's identity constraint.
func (r Rule) permits(actor User, c Complaint) bool {
	if actor.Role != r.Actor {
		return false
	}
	if r.ActorIsAssignee && actor.ID != c.AssignedTo {
		return false
	}
	if r.ActorIsFiler && actor.ID != c.SubmittedBy {
		return false
	}
	return true
}
