package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubjectRegistered EventType = "subject_registered"
	EventSessionStarted    EventType = "session_started"
	EventSessionRotated    EventType = "session_rotated"
	EventSessionEnded      EventType = "session_ended"
)

// Event is a session lifecycle event. It never carries token values.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	ReplacedExisting bool      `json:"replaced_existing"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// SessionRotatedPayload payload.
type SessionRotatedPayload struct {
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
