package auth

import (
	"context"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Setenv("SHAGYM_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	token, err := GenerateToken("user-2", "Bob (Inspector)", "Inspector", 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-2" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != "Inspector" {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.Name != "Bob (Inspector)" {
		t.Fatalf("unexpected name: %s", claims.Name)
	}
}

func TestGenerateTokenRequiresRole(t *testing.T) {
	t.Setenv("SHAGYM_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	if _, err := GenerateToken("user-1", "Alice", "", time.Minute); err == nil {
		t.Fatal("expected error for empty role")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Setenv("SHAGYM_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	defer ResetSecretForTests()

	token, err := GenerateToken("user-1", "Alice", "Complainer", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := ParseAndValidate(token + "x"); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithUser(ctx, "user-7", "Frank", "Prosecutor")

	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	name, ok := UserNameFromContext(ctx)
	if !ok || name != "Frank" {
		t.Fatalf("unexpected name: %s, ok=%v", name, ok)
	}
	role, ok := RoleFromContext(ctx)
	if !ok || role != "Prosecutor" {
		t.Fatalf("unexpected role: %s, ok=%v", role, ok)
	}

	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected missing user id in empty context")
	}
}
