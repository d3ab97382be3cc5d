package session

import (
	"regexp"
	"strings"
	"time"

	"bitvote/internal/apperror"
)

// Session is a dining group identified by its join code.
type Session struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Members     []string  `json:"members"`
	LastUpdated time.Time `json:"lastUpdated"`
	Protected   bool      `json:"protected"`

	PasscodeHash string `json:"-"`
}

// GroupData is the client-supplied body of a session save. On a protected
// session Passcode must be the current passcode; NewPasscode rotates it.
type GroupData struct {
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	Passcode    string   `json:"passcode,omitempty"`
	NewPasscode string   `json:"newPasscode,omitempty"`
}

// JoinResult is returned to a member joining a session.
type JoinResult struct {
	Session *Session `json:"session"`
	Token   string   `json:"token"`
	Role    string   `json:"role"`
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{3,16}$`)

var (
	ErrNotFound        = apperror.New(apperror.KindNotFound, "SESSION_NOT_FOUND", "session not found")
	ErrInvalidCode     = apperror.New(apperror.KindInvalidInput, "INVALID_CODE", "code must be 3 to 16 letters or digits")
	ErrMissingName     = apperror.New(apperror.KindInvalidInput, "MISSING_NAME", "groupData.name is required")
	ErrMissingUser     = apperror.New(apperror.KindInvalidInput, "MISSING_USER", "userId is required")
	ErrInvalidPasscode = apperror.New(apperror.KindUnauthorized, "INVALID_PASSCODE", "invalid passcode")
)

// NormalizeCode is the canonical form of a session code. Every store keyed by
// session uses it so codes match regardless of case.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// dedupe trims members and drops blanks and repeats, keeping first-seen order.
func dedupe(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
