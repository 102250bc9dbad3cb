package auth

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ErrInvalidToken is returned when a bearer token matches no known user.
var ErrInvalidToken = errors.New("invalid token")

// Identity is an authenticated API user.
type Identity struct {
	Name  string
	Admin bool
}

// User is one entry of the users file. Tokens are stored as bcrypt hashes.
type User struct {
	Name      string `yaml:"name"`
	TokenHash string `yaml:"token_hash"`
	Admin     bool   `yaml:"admin"`
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// Authenticator resolves bearer tokens against the users file.
type Authenticator struct {
	users []User
}

// NewAuthenticator builds an authenticator from an in-memory user list.
func NewAuthenticator(users []User) *Authenticator {
	return &Authenticator{users: users}
}

// LoadAuthenticator reads the users file from path.
func LoadAuthenticator(path string) (*Authenticator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var file usersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	if len(file.Users) == 0 {
		return nil, fmt.Errorf("users file %s contains no users", path)
	}

	for i, u := range file.Users {
		if u.Name == "" || u.TokenHash == "" {
			return nil, fmt.Errorf("users file %s: entry %d is missing name or token_hash", path, i)
		}
	}
	return &Authenticator{users: file.Users}, nil
}

// Authenticate resolves a bearer token to an identity. The token is compared
// against every stored hash, so the users file is expected to stay small.
func (a *Authenticator) Authenticate(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	for _, u := range a.users {
		if bcrypt.CompareHashAndPassword([]byte(u.TokenHash), []byte(token)) == nil {
			return &Identity{Name: u.Name, Admin: u.Admin}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HashToken produces a bcrypt hash suitable for the users file.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}
	return string(hash), nil
}
