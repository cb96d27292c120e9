// Package otp implements the one-time-code login simulator. It verifies
// possession of a phone number before a session token is issued; the
// workflow core never sees any of this.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

const (
	codeDigits = 6
	defaultTTL = 5 * time.Minute
)

var (
	ErrNoCode      = errors.New("otp: no code issued for this number")
	ErrExpired     = errors.New("otp: code expired")
	ErrInvalidCode = errors.New("otp: invalid code")
)

type pending struct {
	digest  [32]byte
	expires time.Time
}

// Service issues and verifies short-lived numeric codes. Codes are stored
// as digests; the plaintext exists only in the SendCode response.
type Service struct {
	mu    sync.Mutex
	codes map[string]pending
	ttl   time.Duration
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithTTL overrides the default 5 minute code lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Test use only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an empty OTP store.
func NewService(opts ...Option) *Service {
	s := &Service{
		codes: make(map[string]pending),
		ttl:   defaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCode issues a fresh code for the phone number, replacing any earlier
// one. A real deployment would hand the code to an SMS gateway; here it is
// returned to the caller so the demo login can display it.
func (s *Service) SendCode(phone string) (code string, expiresAt time.Time, err error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", time.Time{}, errors.New("otp: phone number is required")
	}

	code, err = randomCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt = s.now().Add(s.ttl)
	s.codes[phone] = pending{digest: sha256.Sum256([]byte(code)), expires: expiresAt}
	return code, expiresAt, nil
}

// Verify checks the code for the number and consumes it on success.
// Expired entries are removed on sight.
func (s *Service) Verify(phone, code string) error {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.codes[phone]
	if !ok {
		return ErrNoCode
	}
	if s.now().After(stored.expires) {
		delete(s.codes, phone)
		return ErrExpired
	}
	digest := sha256.Sum256([]byte(code))
	if subtle.ConstantTimeCompare(digest[:], stored.digest[:]) != 1 {
		return ErrInvalidCode
	}
	delete(s.codes, phone)
	return nil
}

func randomCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
