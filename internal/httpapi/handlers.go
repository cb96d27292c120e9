package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"shagym.org/internal/ai"
	"shagym.org/internal/audit"
	"shagym.org/internal/chat"
	"shagym.org/internal/obs"
	"shagym.org/internal/otp"
	"shagym.org/internal/registry"
	"shagym.org/internal/stream"
	"shagym.org/internal/workflow"
)

// ReadyProbe checks downstream readiness (e.g. DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the complaint workflow.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	workflow  workflow.Service
	users     *registry.Registry
	chat      *chat.Resolver
	otp       *otp.Service
	assistant *ai.Assistant
	stream    *stream.Stream

	rateBurst  int
	ratePerSec int
}

// Config carries the collaborators for New. Assistant and Stream are
// optional; the matching endpoints degrade cleanly when absent.
type Config struct {
	Ready     ReadyProbe
	Version   string
	Workflow  workflow.Service
	Users     *registry.Registry
	Chat      *chat.Resolver
	OTP       *otp.Service
	Assistant *ai.Assistant
	Stream    *stream.Stream
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		workflow:   cfg.Workflow,
		users:      cfg.Users,
		chat:       cfg.Chat,
		otp:        cfg.OTP,
		assistant:  cfg.Assistant,
		stream:     cfg.Stream,
		rateBurst:  50,
		ratePerSec: 25,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth (demo OTP flow)
	a.mux.HandleFunc("/v1/auth/otp", a.handleAuthOTP)
	a.mux.HandleFunc("/v1/auth/verify", a.handleAuthVerify)

	// directory
	a.mux.HandleFunc("/v1/users", a.handleUsers)

	// complaints
	a.mux.HandleFunc("/v1/complaints", a.handleComplaintsCollection)
	a.mux.HandleFunc("/v1/complaints/", a.handleComplaintResource)

	// assistant drafting, available before a complaint exists
	a.mux.HandleFunc("/v1/assist/draft", a.handleAssistDraft)

	// live status events
	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "shagym-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "shagym-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	items := a.users.List()
	if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
		role, ok := workflow.ParseRole(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		items = a.users.ListByRole(role)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) audit(ctx context.Context, event string, fields map[string]any) {
	_ = audit.LogEvent(ctx, event, fields)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
