package models

import "time"

// Activity is the wire shape of one registry entry as returned by GET /activities.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft is how many more participants fit before max_participants.
func (a Activity) SpotsLeft() int {
	left := a.MaxParticipants - len(a.Participants)
	if left < 0 {
		return 0
	}
	return left
}

// Activities maps activity name to its record.
type Activities map[string]Activity

// Confirmation is the success body of signup and unregister.
type Confirmation struct {
	Message string `json:"message"`
}

// RosterEventType names a participant list mutation.
type RosterEventType string

const (
	RosterEventSignedUp     RosterEventType = "signed_up"
	RosterEventUnregistered RosterEventType = "unregistered"
)

// RosterEvent records one successful signup or unregister.
type RosterEvent struct {
	ID         string          `json:"id"`
	Type       RosterEventType `json:"type"`
	Activity   string          `json:"activity"`
	Email      string          `json:"email"`
	OccurredAt time.Time       `json:"occurred_at"`
}
