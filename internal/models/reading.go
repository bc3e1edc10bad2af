package models

import "time"

// Reading is one normalized wearable data point for a user at a point in
// time. Optional metrics use pointers so that "absent" survives the trip
// through persistence instead of collapsing to zero.
type Reading struct {
	UserID     string    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
	HRV        *float64  `json:"hrv,omitempty"`
	SleepScore *float64  `json:"sleep_score,omitempty"`
	Steps      *int64    `json:"steps,omitempty"`
}
