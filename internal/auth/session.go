package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnrirwin/gemlisting/internal/crypto"
	"github.com/johnrirwin/gemlisting/internal/logging"
)

// RoleAdmin is the role claim that unlocks admin submissions
const RoleAdmin = "admin"

// ErrNotAuthenticated is returned when no usable session token exists
var ErrNotAuthenticated = errors.New("not authenticated: please log in again")

// Session is the token plus the claims the client reads from it. The token
// is not verified locally; the backend remains the authority.
type Session struct {
	Token     string
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// IsAdmin reports whether the session carries the admin role
func (s *Session) IsAdmin() bool {
	return s != nil && strings.EqualFold(s.Role, RoleAdmin)
}

// TokenSource yields the current session
type TokenSource interface {
	Session() (*Session, error)
}

// FileTokenStore keeps the bearer token in a local file, sealed when a key is configured
type FileTokenStore struct {
	path   string
	sealer *crypto.Sealer
	logger *logging.Logger
	now    func() time.Time
}

// NewFileTokenStore creates a token store at path
func NewFileTokenStore(path string, sealer *crypto.Sealer, logger *logging.Logger) *FileTokenStore {
	return &FileTokenStore{
		path:   path,
		sealer: sealer.For("session"),
		logger: logger,
		now:    time.Now,
	}
}

// Save writes the token, replacing any previous one
func (s *FileTokenStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := ParseSession(token, s.now()); err != nil {
		return err
	}

	payload, err := s.sealer.Seal([]byte(token))
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the token file
func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Session reads and decodes the stored token
func (s *FileTokenStore) Session() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	opened, err := s.sealer.Open(raw)
	if err != nil {
		s.logger.Warn("Stored session could not be opened", logging.WithField("error", err.Error()))
		return nil, ErrNotAuthenticated
	}

	return ParseSession(string(opened), s.now())
}

// StaticTokenSource serves a fixed token, e.g. from an environment variable
type StaticTokenSource struct {
	token string
	now   func() time.Time
}

// NewStaticTokenSource wraps token
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: strings.TrimSpace(token), now: time.Now}
}

func (s *StaticTokenSource) Session() (*Session, error) {
	return ParseSession(s.token, s.now())
}

// ParseSession decodes the claims of an access token without verifying its signature.
// Missing or expired tokens are ErrNotAuthenticated.
func ParseSession(token string, now time.Time) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed token", ErrNotAuthenticated)
	}

	session := &Session{Token: token}
	session.UserID, _ = claims["sub"].(string)
	if session.UserID == "" {
		session.UserID, _ = claims["userId"].(string)
	}
	session.Email, _ = claims["email"].(string)
	session.Role, _ = claims["role"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry claim", ErrNotAuthenticated)
	}
	if exp != nil {
		session.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return nil, fmt.Errorf("%w: token expired", ErrNotAuthenticated)
		}
	}

	return session, nil
}
