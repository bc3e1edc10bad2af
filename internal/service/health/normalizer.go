package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vitalink/internal/models"
)

// ErrMissingUserID marks a payload that cannot be attributed to a user.
// Such payloads are dropped, never partially persisted.
var ErrMissingUserID = errors.New("user_id is required")

// webhookPayload mirrors the device push format: optional metrics arrive
// nested under their source objects.
type webhookPayload struct {
	UserID   string   `json:"user_id"`
	HRVRMSSD *float64 `json:"hrv_rmssd"`
	Sleep    *struct {
		Score *float64 `json:"score"`
	} `json:"sleep"`
	Activity *struct {
		Steps *int64 `json:"steps"`
	} `json:"activity"`
}

// Normalize maps a raw device payload into a canonical Reading. Absent
// optional fields stay nil so downstream scoring never mistakes "not
// reported" for zero. The timestamp is assigned here: device-reported times
// are not trusted for ordering.
func Normalize(raw []byte) (*models.Reading, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		return nil, ErrMissingUserID
	}

	reading := &models.Reading{
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		HRV:       payload.HRVRMSSD,
	}
	if payload.Sleep != nil {
		reading.SleepScore = payload.Sleep.Score
	}
	if payload.Activity != nil {
		reading.Steps = payload.Activity.Steps
	}
	return reading, nil
}
