// Package realtime delivers session events to connected websocket clients,
// optionally relayed between API instances through Redis pub/sub.
package realtime

import "context"

const (
	EventVoteCast     = "vote.cast"
	EventMemberJoined = "member.joined"
	EventSessionEnded = "session.ended"
)

// Event is the JSON message pushed to every client of a session.
type Event struct {
	Type         string   `json:"type"`
	SessionID    string   `json:"sessionId"`
	RestaurantID string   `json:"restaurantId,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	Votes        int      `json:"votes,omitempty"`
	VotedBy      []string `json:"votedBy,omitempty"`
}

// Publisher delivers an event to all listeners of its session.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
