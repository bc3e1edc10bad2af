package models

import "time"

// Score is the derived wellness metric for a user, always in [0,100].
// History is retained in storage but only the latest entry matters.
type Score struct {
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}
