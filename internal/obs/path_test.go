package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/v1/complaints":                "/v1/complaints",
		"/v1/complaints/cmp-abc":        "/v1/complaints/:id",
		"/v1/complaints/cmp-abc/chat":   "/v1/complaints/:id/chat",
		"/v1/complaints/cmp-abc/extra":  "/v1/complaints/cmp-abc/extra",
		"/v1/complaints/cmp-abc?x=1":    "/v1/complaints/:id",
		"/v1/complaints/cmp-abc/assist": "/v1/complaints/:id/assist",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
