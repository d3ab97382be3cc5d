package session

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"bitvote/internal/apperror"
	"bitvote/internal/auth"
	"bitvote/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs member tokens.
type TokenIssuer interface {
	GenerateMemberToken(userID, sessionID, role string) (string, error)
}

// VoteCleaner removes the votes of a deleted session.
type VoteCleaner interface {
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}

type Service struct {
	repo      Repository
	tokens    TokenIssuer
	votes     VoteCleaner
	publisher realtime.Publisher
	log       *zap.Logger
	now       func() time.Time
	newCode   func() string
}

const maxCodeAttempts = 5

// ErrNoTokens is returned by Join when the service was built without an issuer.
var ErrNoTokens = errors.New("session: no token issuer configured")

// NewService builds the session store. tokens, votes and publisher may be nil;
// without tokens the service can store and purge sessions but not admit members.
func NewService(repo Repository, tokens TokenIssuer, votes VoteCleaner, publisher realtime.Publisher, log *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		tokens:    tokens,
		votes:     votes,
		publisher: publisher,
		log:       log.Named("session"),
		now:       time.Now,
		newCode:   generateCode,
	}
}

// --------------------------------------------------
// Save creates or overwrites a session (last write wins).
// Overwriting a protected session needs its passcode.
// --------------------------------------------------
func (s *Service) Save(ctx context.Context, code string, data GroupData) (*Session, error) {
	code = NormalizeCode(code)

	name := strings.TrimSpace(data.Name)
	if name == "" {
		return nil, ErrMissingName
	}

	var existing *Session
	if code == "" {
		generated, err := s.freeCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	} else {
		if !codePattern.MatchString(code) {
			return nil, ErrInvalidCode
		}
		stored, err := s.repo.Get(ctx, code)
		switch {
		case err == nil:
			existing = stored
		case !errors.Is(err, errNoSession):
			return nil, apperror.Persistence(err, "failed to save session")
		}
	}

	sess := &Session{
		Code:        code,
		Name:        name,
		Members:     dedupe(data.Members),
		LastUpdated: s.now().UTC(),
	}

	hash, err := passcodeHash(existing, data)
	if err != nil {
		return nil, err
	}
	sess.PasscodeHash = hash

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, apperror.Persistence(err, "failed to save session")
	}
	sess.Protected = sess.PasscodeHash != ""

	s.log.Info("session saved",
		zap.String("code", code),
		zap.Int("members", len(sess.Members)),
		zap.Bool("overwrite", existing != nil),
	)
	return sess, nil
}

// passcodeHash decides the hash stored by a save. A protected session keeps
// its hash unless the caller proves the current passcode, and only then may
// NewPasscode replace it.
func passcodeHash(existing *Session, data GroupData) (string, error) {
	if existing != nil && existing.PasscodeHash != "" {
		if data.Passcode == "" ||
			bcrypt.CompareHashAndPassword([]byte(existing.PasscodeHash), []byte(data.Passcode)) != nil {
			return "", ErrInvalidPasscode
		}
		if data.NewPasscode == "" {
			return existing.PasscodeHash, nil
		}
		return hashPasscode(data.NewPasscode)
	}

	passcode := data.Passcode
	if data.NewPasscode != "" {
		passcode = data.NewPasscode
	}
	if passcode == "" {
		return "", nil
	}
	return hashPasscode(passcode)
}

func hashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindInvalidInput, "INVALID_PASSCODE", "passcode cannot be used")
	}
	return string(hash), nil
}

// freeCode generates a code no stored session uses yet.
func (s *Service) freeCode(ctx context.Context) (string, error) {
	for range maxCodeAttempts {
		code := s.newCode()
		_, err := s.repo.Get(ctx, code)
		if errors.Is(err, errNoSession) {
			return code, nil
		}
		if err != nil {
			return "", apperror.Persistence(err, "failed to save session")
		}
	}
	return "", apperror.New(apperror.KindConflict, "CODE_EXHAUSTED", "could not allocate a session code, try again")
}

func (s *Service) Get(ctx context.Context, code string) (*Session, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, apperror.InvalidInput("code is required")
	}

	sess, err := s.repo.Get(ctx, code)
	if errors.Is(err, errNoSession) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperror.Persistence(err, "failed to load session")
	}
	return sess, nil
}

// --------------------------------------------------
// Join adds a member and issues their token. The first
// member of a session is its host.
// --------------------------------------------------
func (s *Service) Join(ctx context.Context, code, userID, passcode string) (*JoinResult, error) {
	if s.tokens == nil {
		return nil, apperror.Wrap(ErrNoTokens, apperror.KindPersistence, "TOKEN_FAILURE", "failed to issue member token")
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}

	sess, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if sess.PasscodeHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(sess.PasscodeHash), []byte(passcode)) != nil {
			return nil, ErrInvalidPasscode
		}
	}

	joined := !slices.Contains(sess.Members, userID)
	if joined {
		sess.Members = append(sess.Members, userID)
	}
	sess.LastUpdated = s.now().UTC()

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, apperror.Persistence(err, "failed to join session")
	}

	role := auth.RoleMember
	if sess.Members[0] == userID {
		role = auth.RoleHost
	}

	token, err := s.tokens.GenerateMemberToken(userID, sess.Code, role)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindPersistence, "TOKEN_FAILURE", "failed to issue member token")
	}

	if joined {
		s.publish(ctx, realtime.Event{Type: realtime.EventMemberJoined, SessionID: sess.Code, UserID: userID})
	}

	return &JoinResult{Session: sess, Token: token, Role: role}, nil
}

// --------------------------------------------------
// Delete ends a session and drops its votes
// --------------------------------------------------
func (s *Service) Delete(ctx context.Context, code string) error {
	code = NormalizeCode(code)

	err := s.repo.Delete(ctx, code)
	if errors.Is(err, errNoSession) {
		return ErrNotFound
	}
	if err != nil {
		return apperror.Persistence(err, "failed to delete session")
	}

	if s.votes != nil {
		if _, err := s.votes.DeleteSession(ctx, code); err != nil {
			s.log.Error("failed to delete session votes", zap.String("code", code), zap.Error(err))
		}
	}

	s.publish(ctx, realtime.Event{Type: realtime.EventSessionEnded, SessionID: code})
	return nil
}

// Purge removes sessions not updated within olderThan and returns them.
func (s *Service) Purge(ctx context.Context, olderThan time.Duration) ([]Session, error) {
	cutoff := s.now().UTC().Add(-olderThan)

	purged, err := s.repo.Purge(ctx, cutoff)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to purge sessions")
	}
	return purged, nil
}

func (s *Service) publish(ctx context.Context, ev realtime.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("session event not delivered",
			zap.String("type", ev.Type),
			zap.String("code", ev.SessionID),
			zap.Error(err),
		)
	}
}

// generateCode returns six upper-case characters taken from a random UUID.
func generateCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:6])
}
