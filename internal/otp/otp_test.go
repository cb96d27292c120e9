package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndVerify(t *testing.T) {
	s := NewService()

	code, expires, err := s.SendCode("+15550001111")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, expires.After(time.Now()))

	require.NoError(t, s.Verify("+15550001111", code))

	// Codes are consumed on success.
	assert.ErrorIs(t, s.Verify("+15550001111", code), ErrNoCode)
}

func TestVerifyWrongCode(t *testing.T) {
	s := NewService()

	code, _, err := s.SendCode("+15550002222")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	assert.ErrorIs(t, s.Verify("+15550002222", wrong), ErrInvalidCode)

	// A wrong attempt does not consume the code.
	require.NoError(t, s.Verify("+15550002222", code))
}

func TestVerifyExpired(t *testing.T) {
	now := time.Now()
	s := NewService(WithTTL(time.Minute), WithClock(func() time.Time { return now }))

	code, _, err := s.SendCode("+15550003333")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.Verify("+15550003333", code), ErrExpired)

	// The expired entry is pruned; a retry reports no code at all.
	assert.ErrorIs(t, s.Verify("+15550003333", code), ErrNoCode)
}

func TestSendCodeRequiresPhone(t *testing.T) {
	s := NewService()
	_, _, err := s.SendCode("  ")
	assert.Error(t, err)
}

func TestReissueReplacesCode(t *testing.T) {
	s := NewService()

	first, _, err := s.SendCode("+15550004444")
	require.NoError(t, err)
	second, _, err := s.SendCode("+15550004444")
	require.NoError(t, err)

	if first != second {
		assert.ErrorIs(t, s.Verify("+15550004444", first), ErrInvalidCode)
	}
	require.NoError(t, s.Verify("+15550004444", second))
}
