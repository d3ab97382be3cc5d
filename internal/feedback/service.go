package feedback

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"bitvote/internal/apperror"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Feedback, error) {
	f := &Feedback{
		ID:        uuid.NewString(),
		SessionID: strings.TrimSpace(req.SessionID),
		UserID:    strings.TrimSpace(req.UserID),
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: s.now().UTC(),
	}

	if f.SessionID == "" || f.UserID == "" {
		return nil, apperror.InvalidInput("sessionId and userId are required")
	}
	if f.Rating < 1 || f.Rating > 5 {
		return nil, apperror.InvalidInput("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(f.Comment) > maxCommentLength {
		return nil, apperror.InvalidInput("comment is too long")
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, apperror.Persistence(err, "failed to save feedback")
	}
	return f, nil
}

func (s *Service) List(ctx context.Context, sessionID string) ([]Feedback, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperror.InvalidInput("sessionId is required")
	}

	items, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to load feedback")
	}
	return items, nil
}
