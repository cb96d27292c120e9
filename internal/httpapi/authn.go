package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"shagym.org/internal/auth"
	"shagym.org/internal/workflow"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/otp",
	"/v1/auth/verify",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		// The registry is authoritative for role and name; the token only
		// proves identity for the demo login flow.
		user, err := a.users.Lookup(claims.Subject)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user.ID, user.Name, string(user.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser resolves the authenticated actor from the request context.
func (a *API) currentUser(r *http.Request) (workflow.User, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return workflow.User{}, errors.New("not authenticated")
	}
	return a.users.Lookup(id)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
