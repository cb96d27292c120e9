// Package ai offers the complaint assistant: role-scoped prompt templates
// over a pluggable text generator. Assistant failures never touch workflow
// state; callers surface them and move on.
package ai

import (
	"context"
	"errors"
	"fmt"

	"shagym.org/internal/workflow"
)

// Task identifies one assistant action.
type Task string

const (
	TaskDraftComplaint  Task = "DRAFT_COMPLAINT"
	TaskSuggestRoutes   Task = "SUGGEST_LEGAL_ROUTES"
	TaskExplainStatus   Task = "CHECK_STATUS_EXPLANATION"
	TaskInterpretation  Task = "LEGAL_INTERPRETATION"
	TaskProactiveAdvice Task = "PROACTIVE_SUGGESTIONS"
)

var (
	ErrUnknownTask    = errors.New("ai: unknown task")
	ErrTaskNotAllowed = errors.New("ai: task not available for role")
)

// tasksByRole scopes the assistant surface per role. Commissioners get no
// assistant actions.
var tasksByRole = map[workflow.Role][]Task{
	workflow.RoleComplainer: {TaskDraftComplaint, TaskSuggestRoutes, TaskExplainStatus, TaskProactiveAdvice},
	workflow.RoleInspector:  {TaskInterpretation},
	workflow.RoleProsecutor: {TaskInterpretation},
}

// TasksForRole lists the assistant actions the role may invoke.
func TasksForRole(role workflow.Role) []Task {
	tasks := tasksByRole[role]
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func roleAllows(role workflow.Role, task Task) bool {
	for _, t := range tasksByRole[role] {
		if t == task {
			return true
		}
	}
	return false
}

// Generator produces text for a prompt. Implemented by Gemini; tests plug
// in fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Assistant binds the prompt templates to a generator.
type Assistant struct {
	gen Generator
}

// NewAssistant constructs an Assistant.
func NewAssistant(gen Generator) *Assistant {
	return &Assistant{gen: gen}
}

// Assist runs a complaint-scoped task for the given actor.
func (a *Assistant) Assist(ctx context.Context, task Task, actor workflow.User, c workflow.Complaint) (string, error) {
	if !roleAllows(actor.Role, task) {
		return "", fmt.Errorf("%w: %s for %s", ErrTaskNotAllowed, task, actor.Role)
	}
	prompt, err := buildPrompt(task, actor, c)
	if err != nil {
		return "", err
	}
	return a.gen.Generate(ctx, prompt)
}

// DraftDescription drafts a formal complaint description from a bare title,
// used before the complaint exists.
func (a *Assistant) DraftDescription(ctx context.Context, title string) (string, error) {
	return a.gen.Generate(ctx, draftPrompt(title))
}

func draftPrompt(title string) string {
	return fmt.Sprintf(`Based on the complaint title %q, draft a detailed and formal complaint description. The description should be suitable for an official submission. Be clear, concise, and professional. Include placeholders like [Date], [Time], [Location], and [Names of people involved] for the user to fill in specific details.`, title)
}

func buildPrompt(task Task, actor workflow.User, c workflow.Complaint) (string, error) {
	switch task {
	case TaskDraftComplaint:
		return draftPrompt(c.Title), nil
	case TaskSuggestRoutes:
		return fmt.Sprintf("I am a complainer. My complaint is about '%s' with the description: '%s'. The current status is '%s'. Based on this, what are the potential legal routes or next steps I can take? Be concise and provide actionable advice. Format the response using markdown.",
			c.Title, c.Description, c.Status), nil
	case TaskExplainStatus:
		return fmt.Sprintf("My complaint about '%s' has a status of '%s'. Explain what this status means in simple terms and what is happening with my complaint right now.",
			c.Title, c.Status), nil
	case TaskProactiveAdvice:
		return fmt.Sprintf("Given my complaint ('%s') and its current status ('%s'), what should I proactively do next to support my case or prepare for the next stage?",
			c.Title, c.Status), nil
	case TaskInterpretation:
		report := ""
		if c.InspectorReport != "" {
			report = fmt.Sprintf(" The inspector's report states: '%s'.", c.InspectorReport)
		}
		return fmt.Sprintf("As a %s, I am handling a complaint titled '%s' with the description '%s'.%s Provide a brief legal interpretation of this situation, highlighting key legal points or regulations that might apply. Focus on aspects relevant to my role. Format the response using markdown.",
			actor.Role, c.Title, c.Description, report), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTask, task)
	}
}
