package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 0)
	userID := uuid.New()

	token, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token.TokenType != "bearer" {
		t.Errorf("Expected token_type bearer, got %s", token.TokenType)
	}
	if token.ExpiresIn != int(DefaultTokenTTL.Seconds()) {
		t.Errorf("Expected expires_in %d, got %d", int(DefaultTokenTTL.Seconds()), token.ExpiresIn)
	}

	parsed, err := issuer.Parse(token.AccessToken)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed != userID {
		t.Errorf("Expected user ID %s, got %s", userID, parsed)
	}
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", 0)
	other := NewTokenIssuer("secret-b", 0)

	token, err := issuer.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := other.Parse(token.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Nanosecond)

	token, err := issuer.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := issuer.Parse(token.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 0)

	if _, err := issuer.Parse("not.a.jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Expected ErrTokenInvalid, got %v", err)
	}
}
