package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"shagym.org/internal/policy"
	"shagym.org/internal/stream"
	"shagym.org/internal/workflow"
)

// Stream handles Server-Sent Events for complaint status changes. Events
// are filtered per subscriber: a client only sees transitions on
// complaints its role may view, same as the REST surface.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}

	actor, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The server's write timeout would sever a long-lived stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		if !a.eventVisible(ctx, actor, event) {
			continue
		}
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}

// eventVisible applies the subscriber's visibility window to a published
// event. Complaints that cannot be resolved are withheld.
func (a *API) eventVisible(ctx context.Context, actor workflow.User, evt stream.ComplaintEvent) bool {
	c, err := a.workflow.GetComplaint(ctx, evt.ComplaintID)
	if err != nil {
		return false
	}
	return policy.Visible(actor.Role, actor.ID, c)
}
