package health

import "vitalink/internal/models"

// Score bounds and linear penalty terms. Additional metrics (labs,
// nutrition) are expected to land here as further penalties.
const (
	baseScore         = 100
	lowHRVThreshold   = 50
	lowHRVPenalty     = 20
	lowSleepThreshold = 80
	lowSleepPenalty   = 30
)

// ComputeScore derives the wellness score from a single reading. Pure and
// deterministic; absent metrics contribute no penalty. The result is clamped
// to a minimum of zero.
func ComputeScore(r *models.Reading) int {
	score := baseScore
	if r.HRV != nil && *r.HRV < lowHRVThreshold {
		score -= lowHRVPenalty
	}
	if r.SleepScore != nil && *r.SleepScore < lowSleepThreshold {
		score -= lowSleepPenalty
	}
	if score < 0 {
		score = 0
	}
	return score
}
