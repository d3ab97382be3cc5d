package vote

import (
	"fmt"
	"strings"

	"bitvote/internal/apperror"
	"bitvote/internal/session"
)

// Vote is a request by UserID to back RestaurantID within SessionID.
type Vote struct {
	RestaurantID string `json:"restaurantId"`
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
}

func (v Vote) normalized() Vote {
	return Vote{
		RestaurantID: strings.TrimSpace(v.RestaurantID),
		SessionID:    session.NormalizeCode(v.SessionID),
		UserID:       strings.TrimSpace(v.UserID),
	}
}

func (v Vote) valid() bool {
	return v.RestaurantID != "" && v.SessionID != "" && v.UserID != ""
}

// Tally is the vote count of one restaurant within a session. VotedBy is in
// vote order.
type Tally struct {
	RestaurantID string   `json:"restaurantId"`
	Votes        int      `json:"votes"`
	VotedBy      []string `json:"votedBy"`
}

// ExistingVoteError is returned by repositories when the user already has a
// vote in the session.
type ExistingVoteError struct {
	RestaurantID string
}

func (e *ExistingVoteError) Error() string {
	return "vote already recorded for " + e.RestaurantID
}

var (
	ErrMissingFields = apperror.InvalidInput("restaurantId, sessionId and userId are required")
	ErrAlreadyVoted  = apperror.New(apperror.KindConflict, "ALREADY_VOTED", "user has already voted in this session")
	ErrNoVotes       = apperror.New(apperror.KindNotFound, "NO_VOTES", "no votes in this session yet")
)

func alreadyVoted(restaurantID string) error {
	return apperror.New(apperror.KindConflict, ErrAlreadyVoted.Code,
		fmt.Sprintf("user has already voted for %s in this session", restaurantID))
}
