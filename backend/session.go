package backend

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/fundtrade"
)

const sessionFile = "ftc-session"

// Session identifies the caller of the service. It is passed explicitly to
// every call that acts on behalf of a user.
type Session struct {
	UserID string
	Token  string
}

// Validate checks a user is set.
func (s Session) Validate() error {
	if s.UserID == "" {
		return &fundtrade.Error{Kind: fundtrade.KindValidation, Op: "session", Msg: "no user, set customer_id or log in first"}
	}
	return nil
}

// DefaultSessionPath is where sessions are kept when no path is configured.
func DefaultSessionPath() string { return filepath.Join(os.TempDir(), sessionFile) }

// LoadSession reads a session saved by SaveSession: one "Key: value" per line.
func LoadSession(path string) (Session, error) {
	if path == "" {
		path = DefaultSessionPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("session not found. Please run 'ftc login' first: %w", err)
	}

	var s Session
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 2)
		if len(parts) != 2 {
			continue
		}
		switch strings.TrimSpace(parts[0]) {
		case "User":
			s.UserID = strings.TrimSpace(parts[1])
		case "Token":
			s.Token = strings.TrimSpace(parts[1])
		}
	}
	if s.UserID == "" {
		return Session{}, errors.New("session file has no user")
	}
	return s, nil
}

// SaveSession writes s to path, readable by the owner only.
func SaveSession(path string, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if path == "" {
		path = DefaultSessionPath()
	}
	content := fmt.Sprintf("User: %s\nToken: %s\n", s.UserID, s.Token)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("cannot save session: %w", err)
	}
	return nil
}
