package audit

import "time"

// Event captures one identity action. Kept transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    string
	Username  string
	Action    Action
	Detail    string
}

type Action string

const (
	ActionUserRegistered Action = "user_registered"
	ActionLoginSucceeded Action = "login_succeeded"
	ActionLoginFailed    Action = "login_failed"
	ActionUserSuspended  Action = "user_suspended"
	ActionUserActivated  Action = "user_activated"
)
