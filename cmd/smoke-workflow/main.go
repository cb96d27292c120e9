// Command smoke-workflow drives a full complaint lifecycle against a running
// API instance: file, assign, investigate, report, decide, close.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var client = &http.Client{Timeout: 10 * time.Second}

func main() {
	base := os.Getenv("SHAGYM_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	tokens := map[string]string{}
	for _, id := range []string{"user-1", "user-2", "user-3", "user-4"} {
		tokens[id] = login(base, id)
	}

	var created struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Version uint64 `json:"version"`
	}
	call(http.MethodPost, base+"/v1/complaints", tokens["user-1"], map[string]any{
		"title":       "Smoke test complaint",
		"description": "Filed by the smoke tool.",
	}, http.StatusCreated, &created)
	if created.Status != "Submitted" {
		log.Fatalf("unexpected status after filing: %s", created.Status)
	}

	steps := []struct {
		actor  string
		to     string
		fields map[string]any
	}{
		{"user-3", "Assigned to Inspector", map[string]any{"assign_to": "user-2"}},
		{"user-2", "Investigation in Progress", nil},
		{"user-2", "Report Submitted", map[string]any{"inspector_report": "Smoke report."}},
		{"user-4", "Action Taken", map[string]any{"prosecutor_decision": "Smoke decision."}},
		{"user-3", "Closed", nil},
	}
	for _, step := range steps {
		body := map[string]any{"to": step.to}
		if step.fields != nil {
			body["fields"] = step.fields
		}
		var resp struct {
			Status  string `json:"status"`
			History []any  `json:"history"`
		}
		call(http.MethodPost, base+"/v1/complaints/"+created.ID+"/transition",
			tokens[step.actor], body, http.StatusOK, &resp)
		if resp.Status != step.to {
			log.Fatalf("expected status %q, got %q", step.to, resp.Status)
		}
	}

	var final struct {
		Status  string `json:"status"`
		History []any  `json:"history"`
	}
	call(http.MethodGet, base+"/v1/complaints/"+created.ID, tokens["user-3"], nil, http.StatusOK, &final)
	if final.Status != "Closed" || len(final.History) != 6 {
		log.Fatalf("unexpected final state: status=%s history=%d", final.Status, len(final.History))
	}

	fmt.Printf("✅ workflow smoke test passed: complaint=%s\n", created.ID)
}

func login(base, userID string) string {
	phone := "+7700" + userID

	var otpResp struct {
		Code string `json:"code"`
	}
	call(http.MethodPost, base+"/v1/auth/otp", "", map[string]any{"phone": phone}, http.StatusOK, &otpResp)

	var verifyResp struct {
		Token string `json:"token"`
	}
	call(http.MethodPost, base+"/v1/auth/verify", "", map[string]any{
		"phone":   phone,
		"code":    otpResp.Code,
		"user_id": userID,
	}, http.StatusOK, &verifyResp)

	if verifyResp.Token == "" {
		log.Fatalf("login %s: empty token", userID)
	}
	return verifyResp.Token
}

func call(method, url, token string, body any, wantStatus int, dst any) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal body for %s: %v", url, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		log.Fatalf("new request %s: %v", url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, raw)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			log.Fatalf("decode %s: %v", url, err)
		}
	}
}
