package learndb

import "time"

type SessionMode string

const (
	ModeSandbox   SessionMode = "sandbox"
	ModeChallenge SessionMode = "challenge"
	ModeTutorial  SessionMode = "tutorial"
)

// Session is a server-side sandbox database bound to this client.
type Session struct {
	ID             string      `json:"session_id"`
	CreatedAt      time.Time   `json:"created_at"`
	LastActivityAt time.Time   `json:"last_activity_at"`
	Mode           SessionMode `json:"current_mode"`
}
