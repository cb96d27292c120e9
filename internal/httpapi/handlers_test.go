package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shagym.org/internal/ai"
	"shagym.org/internal/auth"
	"shagym.org/internal/chat"
	"shagym.org/internal/otp"
	"shagym.org/internal/registry"
	"shagym.org/internal/stream"
	"shagym.org/internal/workflow"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type fakeGenerator struct{ reply string }

func (f fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.reply, nil
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("SHAGYM_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	users := registry.NewSeeded()
	resolver := chat.NewResolver(users)
	svc := workflow.NewInMemory(users, workflow.WithChatGate(resolver))

	api := New(Config{
		Ready:     ReadyProbe{},
		Version:   "test",
		Workflow:  svc,
		Users:     users,
		Chat:      resolver,
		OTP:       otp.NewService(),
		Assistant: ai.NewAssistant(fakeGenerator{reply: "assistant says hello"}),
		Stream:    stream.New(),
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) decode(resp *http.Response, dst any) {
	c.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.t.Fatalf("decode response: %v", err)
	}
}

// login drives the demo OTP flow end to end and returns a bearer token.
func (c *apiClient) login(userID string) string {
	c.t.Helper()

	resp := c.do(http.MethodPost, "/v1/auth/otp", map[string]any{"phone": "+7700" + userID}, "")
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("otp request: status %d", resp.StatusCode)
	}
	var otpBody otpResponse
	c.decode(resp, &otpBody)
	if len(otpBody.Code) != 6 {
		c.t.Fatalf("expected 6-digit code, got %q", otpBody.Code)
	}

	resp = c.do(http.MethodPost, "/v1/auth/verify", map[string]any{
		"phone":   "+7700" + userID,
		"code":    otpBody.Code,
		"user_id": userID,
	}, "")
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("verify request: status %d", resp.StatusCode)
	}
	var verifyBody verifyResponse
	c.decode(resp, &verifyBody)
	if verifyBody.Token == "" {
		c.t.Fatal("expected token in verify response")
	}
	return verifyBody.Token
}

func TestHealthz(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/healthz", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	c.decode(resp, &body)
	if body["service"] != "shagym-api" {
		t.Fatalf("unexpected service name: %v", body["service"])
	}
}

func TestComplaintsRequireAuth(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/v1/complaints", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	c := newTestAPI(t)

	resp := c.do(http.MethodPost, "/v1/auth/otp", map[string]any{"phone": "+77001"}, "")
	var otpBody otpResponse
	c.decode(resp, &otpBody)

	resp = c.do(http.MethodPost, "/v1/auth/verify", map[string]any{
		"phone":   "+77001",
		"code":    "000000",
		"user_id": "user-1",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	c := newTestAPI(t)

	aliceTok := c.login("user-1")
	bobTok := c.login("user-2")
	charlieTok := c.login("user-3")
	dianaTok := c.login("user-4")

	// Alice files.
	resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
		"title":       "Noise",
		"description": "Construction noise before 7 AM.",
	}, aliceTok)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	var created workflow.Complaint
	c.decode(resp, &created)
	if created.Status != workflow.StatusSubmitted {
		t.Fatalf("unexpected status: %s", created.Status)
	}

	// Diana must not see it yet.
	resp = c.do(http.MethodGet, "/v1/complaints/"+created.ID, nil, dianaTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("prosecutor visibility: expected 404, got %d", resp.StatusCode)
	}

	// Charlie assigns Bob.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to":     "Assigned to Inspector",
		"fields": map[string]any{"assign_to": "user-2"},
	}, charlieTok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d", resp.StatusCode)
	}
	var assigned workflow.Complaint
	c.decode(resp, &assigned)
	if assigned.AssignedTo != "user-2" {
		t.Fatalf("expected assignee user-2, got %s", assigned.AssignedTo)
	}

	// Eve (not assigned) cannot start the investigation.
	eveTok := c.login("user-5")
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to": "Investigation in Progress",
	}, eveTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unassigned inspector: expected 403, got %d", resp.StatusCode)
	}

	// Bob works the case.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to": "Investigation in Progress",
	}, bobTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start investigation: expected 200, got %d", resp.StatusCode)
	}

	// Alice can chat now that an inspector is assigned.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/chat", map[string]any{
		"text": "Any update?",
	}, aliceTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("chat: expected 201, got %d", resp.StatusCode)
	}

	// Charlie can see everything but may never chat.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/chat", map[string]any{
		"text": "Status?",
	}, charlieTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("commissioner chat: expected 403, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to":     "Report Submitted",
		"fields": map[string]any{"inspector_report": "Confirmed violation."},
	}, bobTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit report: expected 200, got %d", resp.StatusCode)
	}

	// Now Diana sees it and acts.
	resp = c.do(http.MethodGet, "/v1/complaints/"+created.ID, nil, dianaTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prosecutor visibility after report: expected 200, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to":     "Action Taken",
		"fields": map[string]any{"prosecutor_decision": "Fined."},
	}, dianaTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("decision: expected 200, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to": "Closed",
	}, charlieTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", resp.StatusCode)
	}

	// Closed is terminal.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to": "Closed",
	}, aliceTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("transition on closed: expected 409, got %d", resp.StatusCode)
	}

	// Full history came back on the final read.
	resp = c.do(http.MethodGet, "/v1/complaints/"+created.ID, nil, charlieTok)
	var final workflow.Complaint
	c.decode(resp, &final)
	if len(final.History) != 6 {
		t.Fatalf("expected 6 history entries, got %d", len(final.History))
	}
	if final.Status != workflow.StatusClosed {
		t.Fatalf("expected Closed, got %s", final.Status)
	}
}

func TestVersionConflictOverHTTP(t *testing.T) {
	c := newTestAPI(t)
	aliceTok := c.login("user-1")
	charlieTok := c.login("user-3")

	resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
		"title":       "Pothole",
		"description": "Large pothole on Elm Street.",
	}, aliceTok)
	var created workflow.Complaint
	c.decode(resp, &created)

	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to":               "Assigned to Inspector",
		"fields":           map[string]any{"assign_to": "user-2"},
		"expected_version": created.Version + 7,
	}, charlieTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestListComplaintsVisibilityAndOrder(t *testing.T) {
	c := newTestAPI(t)
	aliceTok := c.login("user-1")
	dianaTok := c.login("user-4")

	for _, title := range []string{"First", "Second"} {
		resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
			"title":       title,
			"description": "desc",
		}, aliceTok)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: status %d", title, resp.StatusCode)
		}
	}

	resp := c.do(http.MethodGet, "/v1/complaints", nil, aliceTok)
	var aliceList listComplaintsResponse
	c.decode(resp, &aliceList)
	if len(aliceList.Items) != 2 {
		t.Fatalf("expected 2 complaints, got %d", len(aliceList.Items))
	}
	if aliceList.Items[0].Title != "Second" {
		t.Fatalf("expected newest first, got %q", aliceList.Items[0].Title)
	}

	resp = c.do(http.MethodGet, "/v1/complaints", nil, dianaTok)
	var dianaList listComplaintsResponse
	c.decode(resp, &dianaList)
	if len(dianaList.Items) != 0 {
		t.Fatalf("prosecutor should see nothing before reports, got %d", len(dianaList.Items))
	}
}

func TestActionsEndpoint(t *testing.T) {
	c := newTestAPI(t)
	aliceTok := c.login("user-1")
	charlieTok := c.login("user-3")

	resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
		"title":       "Noise",
		"description": "desc",
	}, aliceTok)
	var created workflow.Complaint
	c.decode(resp, &created)

	resp = c.do(http.MethodGet, "/v1/complaints/"+created.ID+"/actions", nil, charlieTok)
	var body struct {
		Actions []map[string]any `json:"actions"`
		CanChat bool             `json:"can_chat"`
	}
	c.decode(resp, &body)
	if len(body.Actions) != 1 {
		t.Fatalf("expected 1 commissioner action, got %d", len(body.Actions))
	}
	if body.CanChat {
		t.Fatal("commissioner must not be able to chat")
	}
}

func TestAssistEndpoint(t *testing.T) {
	c := newTestAPI(t)
	aliceTok := c.login("user-1")
	charlieTok := c.login("user-3")

	resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
		"title":       "Noise",
		"description": "desc",
	}, aliceTok)
	var created workflow.Complaint
	c.decode(resp, &created)

	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/assist", map[string]any{
		"task": "SUGGEST_LEGAL_ROUTES",
	}, aliceTok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assist: expected 200, got %d", resp.StatusCode)
	}
	var body assistResponse
	c.decode(resp, &body)
	if body.Text != "assistant says hello" {
		t.Fatalf("unexpected assistant reply: %q", body.Text)
	}

	// Commissioners have no assistant tasks.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/assist", map[string]any{
		"task": "SUGGEST_LEGAL_ROUTES",
	}, charlieTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodPost, "/v1/assist/draft", map[string]any{
		"title": "Broken streetlight",
	}, aliceTok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d", resp.StatusCode)
	}
}

func TestUsersRoleFilter(t *testing.T) {
	c := newTestAPI(t)
	tok := c.login("user-1")

	var body struct {
		Items []workflow.User `json:"items"`
	}

	resp := c.do(http.MethodGet, "/v1/users", nil, tok)
	c.decode(resp, &body)
	if len(body.Items) != 5 {
		t.Fatalf("expected all 5 users without a filter, got %d", len(body.Items))
	}

	resp = c.do(http.MethodGet, "/v1/users?role=Inspector", nil, tok)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("role filter: expected 200, got %d", resp.StatusCode)
	}
	c.decode(resp, &body)
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 inspectors, got %d", len(body.Items))
	}
	if body.Items[0].ID != "user-2" || body.Items[1].ID != "user-5" {
		t.Fatalf("unexpected inspectors: %s, %s", body.Items[0].ID, body.Items[1].ID)
	}

	resp = c.do(http.MethodGet, "/v1/users?role=Janitor", nil, tok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown role: expected 400, got %d", resp.StatusCode)
	}
}

func TestChatRejectedBeforeAssignment(t *testing.T) {
	c := newTestAPI(t)
	aliceTok := c.login("user-1")

	resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
		"title":       "Dumping",
		"description": "Trash near the playground.",
	}, aliceTok)
	var created workflow.Complaint
	c.decode(resp, &created)

	// No inspector yet, so there is no one to talk to.
	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/chat", map[string]any{
		"text": "Anyone there?",
	}, aliceTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("chat before assignment: expected 403, got %d", resp.StatusCode)
	}

	resp = c.do(http.MethodGet, "/v1/complaints/"+created.ID+"/chat", nil, aliceTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("read chat before assignment: expected 403, got %d", resp.StatusCode)
	}
}

func TestStreamRequiresAuth(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodGet, "/v1/stream", nil, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

// openStream connects to /v1/stream and feeds the raw SSE lines into a
// channel which closes when the connection does.
func (c *apiClient) openStream(ctx context.Context, token string) <-chan string {
	c.t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/stream", nil)
	if err != nil {
		c.t.Fatalf("new stream request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("open stream: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.t.Fatalf("open stream: expected 200, got %d", resp.StatusCode)
	}

	lines := make(chan string, 32)
	go func() {
		defer resp.Body.Close()
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// awaitStreamOpen blocks until the opening comment arrives.
func awaitStreamOpen(t *testing.T, lines <-chan string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before it opened")
			}
			if strings.HasPrefix(line, ":") {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for stream to open")
		}
	}
}

// awaitEvent waits up to timeout for a data line and reports whether one
// arrived.
func awaitEvent(t *testing.T, lines <-chan string, timeout time.Duration) (string, bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return "", false
			}
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(line, "data: "), true
			}
		case <-deadline:
			return "", false
		}
	}
}

func TestStreamDeliversOnlyVisibleEvents(t *testing.T) {
	c := newTestAPI(t)
	aliceTok := c.login("user-1")
	charlieTok := c.login("user-3")
	dianaTok := c.login("user-4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aliceLines := c.openStream(ctx, aliceTok)
	dianaLines := c.openStream(ctx, dianaTok)
	awaitStreamOpen(t, aliceLines)
	awaitStreamOpen(t, dianaLines)

	resp := c.do(http.MethodPost, "/v1/complaints", map[string]any{
		"title":       "Noise",
		"description": "Construction noise before 7 AM.",
	}, aliceTok)
	var created workflow.Complaint
	c.decode(resp, &created)

	resp = c.do(http.MethodPost, "/v1/complaints/"+created.ID+"/transition", map[string]any{
		"to":     "Assigned to Inspector",
		"fields": map[string]any{"assign_to": "user-2"},
	}, charlieTok)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d", resp.StatusCode)
	}

	// The filer gets the event.
	payload, ok := awaitEvent(t, aliceLines, 2*time.Second)
	if !ok {
		t.Fatal("filer never received the transition event")
	}
	var evt struct {
		ComplaintID string `json:"complaint_id"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.ComplaintID != created.ID {
		t.Fatalf("expected event for %s, got %s", created.ID, evt.ComplaintID)
	}
	if evt.Status != string(workflow.StatusAssignedToInspector) {
		t.Fatalf("unexpected event status: %s", evt.Status)
	}

	// The complaint is not yet visible to the prosecutor, so that stream
	// stays quiet.
	if payload, ok := awaitEvent(t, dianaLines, 300*time.Millisecond); ok {
		t.Fatalf("prosecutor received a hidden event: %s", payload)
	}
}
