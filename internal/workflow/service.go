package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"shagym.org/internal/ids"
	"shagym.org/internal/obs"
)

// Service defines the complaint workflow operations.
type Service interface {
	CreateComplaint(ctx context.Context, title, description string, filer User) (Complaint, error)
	GetComplaint(ctx context.Context, id string) (Complaint, error)
	ListComplaints(ctx context.Context) ([]Complaint, error)
	ApplyTransition(ctx context.Context, id string, to Status, actor User, fields FieldUpdates, expectedVersion uint64) (Complaint, error)
	AppendChatMessage(ctx context.Context, id string, sender User, text string) (ChatMessage, error)
}

// Directory resolves user ids against the read-only registry.
type Directory interface {
	Lookup(id string) (User, error)
}

// ChatGate decides whether an actor may write to a complaint's thread.
// The engine enforces it at send time regardless of what the caller already
// checked.
type ChatGate interface {
	CanParticipate(actor User, c Complaint) bool
}

// Persister mirrors accepted mutations to durable storage. Failures are
// reported but never roll back the in-memory state.
type Persister interface {
	LoadAll(ctx context.Context) ([]Complaint, error)
	Save(ctx context.Context, c Complaint) error
}

// InMemory implements Service with in-process concurrency safety. The single
// mutex linearizes all writes, which covers the single-writer-per-complaint
// requirement; the per-complaint Version additionally rejects stale
// read-modify-write callers.
type InMemory struct {
	mu         sync.RWMutex
	complaints map[string]*Complaint
	order      []string // insertion order of complaint ids

	directory Directory
	gate      ChatGate
	persister Persister
	now       func() time.Time
}

// Option configures InMemory.
type Option func(*InMemory)

// WithChatGate installs the chat eligibility resolver.
func WithChatGate(g ChatGate) Option {
	return func(s *InMemory) { s.gate = g }
}

// WithPersister installs the durable mirror.
func WithPersister(p Persister) Option {
	return func(s *InMemory) { s.persister = p }
}

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option {
	return func(s *InMemory) { s.now = now }
}

// NewInMemory creates an empty workflow store.
func NewInMemory(directory Directory, opts ...Option) *InMemory {
	s := &InMemory{
		complaints: make(map[string]*Complaint),
		directory:  directory,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads previously persisted complaints. Called once at startup,
// before the store is shared.
func (s *InMemory) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("restore complaints: %w", err)
	}
	s.Preload(loaded)
	return nil
}

// Preload inserts complaints wholesale, skipping ids that already exist.
// Used for restore and for the demo fixtures; never called once the store
// is serving requests.
func (s *InMemory) Preload(complaints []Complaint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range complaints {
		c := complaints[i].Clone()
		if _, ok := s.complaints[c.ID]; ok {
			continue
		}
		s.complaints[c.ID] = &c
		s.order = append(s.order, c.ID)
	}
}

func (s *InMemory) CreateComplaint(ctx context.Context, title, description string, filer User) (Complaint, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return Complaint{}, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if filer.Role != RoleComplainer {
		return Complaint{}, fmt.Errorf("%w: only a complainer may file", ErrUnauthorized)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c := &Complaint{
		ID:          ids.NewComplaintID(),
		Title:       title,
		Description: description,
		Status:      StatusSubmitted,
		SubmittedBy: filer.ID,
		CreatedAt:   now,
		History: []HistoryEntry{
			{Status: StatusSubmitted, Timestamp: now, Actor: filer.Name},
		},
		Version: 1,
	}
	s.complaints[c.ID] = c
	s.order = append(s.order, c.ID)

	s.persist(ctx, *c)
	return c.Clone(), nil
}

func (s *InMemory) GetComplaint(ctx context.Context, id string) (Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return Complaint{}, ErrNotFound
	}
	return c.Clone(), nil
}

// ListComplaints returns every complaint in creation order. Per-role
// filtering belongs to the access policy, not the store.
func (s *InMemory) ListComplaints(ctx context.Context) ([]Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Complaint, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.complaints[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// ApplyTransition validates and applies one status change. Field updates,
// the status change and the history append are all applied under the same
// lock; a reader never observes one without the others.
func (s *InMemory) ApplyTransition(ctx context.Context, id string, to Status, actor User, fields FieldUpdates, expectedVersion uint64) (Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.complaints[id]
	if !ok {
		s.reject("not_found")
		return Complaint{}, ErrNotFound
	}

	candidates := rulesFor(c.Status, to)
	if len(candidates) == 0 {
		s.reject("invalid_transition")
		return Complaint{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}

	var rule *Rule
	for i := range candidates {
		if candidates[i].permits(actor, *c) {
			rule = &candidates[i]
			break
		}
	}
	if rule == nil {
		s.reject("unauthorized")
		return Complaint{}, fmt.Errorf("%w: %s may not perform %s -> %s", ErrUnauthorized, actor.Role, c.Status, to)
	}

	if expectedVersion > 0 && expectedVersion != c.Version {
		s.reject("concurrent_modification")
		return Complaint{}, fmt.Errorf("%w: expected version %d, have %d", ErrConcurrentModification, expectedVersion, c.Version)
	}

	if err := s.applyEffects(c, *rule, fields); err != nil {
		s.reject("precondition_not_met")
		return Complaint{}, err
	}

	from := c.Status
	c.Status = to
	c.History = append(c.History, HistoryEntry{
		Status:    to,
		Timestamp: s.historyTimestamp(c),
		Actor:     actor.Name,
	})
	c.Version++

	obs.ObserveTransition(string(from), string(to))
	s.persist(ctx, *c)
	return c.Clone(), nil
}

// applyEffects checks the row's precondition and applies its field effects.
// Called with the store lock held, before the status is touched.
func (s *InMemory) applyEffects(c *Complaint, rule Rule, fields FieldUpdates) error {
	switch rule.Requires {
	case RequireAssignee:
		assignee := strings.TrimSpace(fields.AssignTo)
		if assignee == "" {
			return fmt.Errorf("%w: an inspector id is required", ErrPreconditionNotMet)
		}
		if s.directory == nil {
			return fmt.Errorf("%w: assignee %s", ErrNotFound, assignee)
		}
		user, err := s.directory.Lookup(assignee)
		if err != nil {
			return fmt.Errorf("%w: assignee %s", ErrNotFound, assignee)
		}
		if user.Role != RoleInspector {
			return fmt.Errorf("%w: %s is not an inspector", ErrPreconditionNotMet, assignee)
		}
		c.AssignedTo = assignee
	case RequireInspectorReport:
		report := strings.TrimSpace(fields.InspectorReport)
		if report == "" {
			return fmt.Errorf("%w: inspector report is required", ErrPreconditionNotMet)
		}
		c.InspectorReport = report
		c.InvestigationNotes = strings.TrimSpace(fields.InvestigationNotes)
	case RequireProsecutorDecision:
		decision := strings.TrimSpace(fields.ProsecutorDecision)
		if decision == "" {
			return fmt.Errorf("%w: prosecutor decision is required", ErrPreconditionNotMet)
		}
		c.ProsecutorDecision = decision
	}
	return nil
}

// AppendChatMessage adds one message to the complaint thread. Eligibility is
// re-checked here at send time; the append never changes workflow status.
func (s *InMemory) AppendChatMessage(ctx context.Context, id string, sender User, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.complaints[id]
	if !ok {
		return ChatMessage{}, ErrNotFound
	}
	if s.gate == nil || !s.gate.CanParticipate(sender, *c) {
		return ChatMessage{}, ErrChatNotPermitted
	}

	ts := s.now()
	if n := len(c.Chat); n > 0 && !ts.After(c.Chat[n-1].Timestamp) {
		ts = c.Chat[n-1].Timestamp.Add(time.Microsecond)
	}
	msg := ChatMessage{
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
		Timestamp:  ts,
	}
	c.Chat = append(c.Chat, msg)
	c.Version++

	s.persist(ctx, *c)
	return msg, nil
}

// historyTimestamp keeps history timestamps strictly increasing even when
// the clock does not move between two transitions.
func (s *InMemory) historyTimestamp(c *Complaint) time.Time {
	ts := s.now()
	if n := len(c.History); n > 0 && !ts.After(c.History[n-1].Timestamp) {
		ts = c.History[n-1].Timestamp.Add(time.Microsecond)
	}
	return ts
}

// persist mirrors the mutation. Durability is best-effort; the in-memory
// aggregate stays authoritative when the save fails.
func (s *InMemory) persist(ctx context.Context, c Complaint) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, c.Clone()); err != nil {
		obs.ObservePersistenceFailure()
		obs.LogRequest(map[string]any{
			"ts":           time.Now().UTC().Format(time.RFC3339Nano),
			"level":        "error",
			"msg":          "complaint save failed",
			"complaint_id": c.ID,
			"error":        err.Error(),
		})
	}
}

func (s *InMemory) reject(kind string) {
	obs.ObserveTransitionFailure(kind)
}
