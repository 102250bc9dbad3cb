package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAuthenticate(t *testing.T) {
	hash, err := HashToken("secret-token")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	authenticator := NewAuthenticator([]User{
		{Name: "admin", TokenHash: hash, Admin: true},
	})

	identity, err := authenticator.Authenticate("secret-token")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.Name != "admin" || !identity.Admin {
		t.Errorf("unexpected identity: %+v", identity)
	}

	if _, err := authenticator.Authenticate("wrong-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := authenticator.Authenticate(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestLoadAuthenticator(t *testing.T) {
	hash, err := HashToken("broker-token")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "users.yaml")
	content := "users:\n  - name: broker\n    token_hash: \"" + hash + "\"\n    admin: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write users file: %v", err)
	}

	authenticator, err := LoadAuthenticator(path)
	if err != nil {
		t.Fatalf("LoadAuthenticator failed: %v", err)
	}

	identity, err := authenticator.Authenticate("broker-token")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.Name != "broker" || identity.Admin {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestLoadAuthenticatorRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	if err := os.WriteFile(path, []byte("users: []\n"), 0o600); err != nil {
		t.Fatalf("failed to write users file: %v", err)
	}

	if _, err := LoadAuthenticator(path); err == nil {
		t.Error("expected error for empty users file")
	}
}
