package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"shagym.org/internal/auth"
	"shagym.org/internal/otp"
)

type otpRequest struct {
	Phone string `json:"phone"`
}

// otpResponse returns the code in the body. Demo flow only: a real
// deployment delivers it over SMS and never echoes it back.
type otpResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type verifyRequest struct {
	Phone  string `json:"phone"`
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

type verifyResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      any       `json:"user"`
}

const tokenTTL = 12 * time.Hour

func (a *API) handleAuthOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		writeError(w, r, http.StatusBadRequest, "phone is required")
		return
	}

	code, expiresAt, err := a.otp.SendCode(phone)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	a.audit(r.Context(), "auth.otp.issued", map[string]any{
		"phone":      phone,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, otpResponse{Code: code, ExpiresAt: expiresAt})
}

func (a *API) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	phone := strings.TrimSpace(req.Phone)
	userID := strings.TrimSpace(req.UserID)
	if phone == "" || req.Code == "" || userID == "" {
		writeError(w, r, http.StatusBadRequest, "phone, code and user_id are required")
		return
	}

	if err := a.otp.Verify(phone, req.Code); err != nil {
		switch {
		case errors.Is(err, otp.ErrExpired):
			writeError(w, r, http.StatusUnauthorized, "code expired")
		case errors.Is(err, otp.ErrNoCode), errors.Is(err, otp.ErrInvalidCode):
			writeError(w, r, http.StatusUnauthorized, "invalid code")
		default:
			writeError(w, r, http.StatusInternalServerError, "verification failed")
		}
		a.audit(r.Context(), "auth.login.denied", map[string]any{"phone": phone, "user_id": userID})
		return
	}

	user, err := a.users.Lookup(userID)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unknown user")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Name, string(user.Role), tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	a.audit(r.Context(), "auth.login.success", map[string]any{
		"user_id":    user.ID,
		"role":       string(user.Role),
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, verifyResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}
