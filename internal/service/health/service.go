package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vitalink/internal/models"
)

// Window sizes shared with retrieval callers: 10 readings feed an assistant
// query, 30 back the trend view.
const (
	AssistantWindow = 10
	TrendWindow     = 30
)

// Service persists readings and scores and owns score recomputation.
type Service struct {
	db *sql.DB
}

// NewService builds a new health service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// UpsertReading writes a reading keyed by (user_id, ts); a later write for
// the same key replaces the earlier one.
func (s *Service) UpsertReading(ctx context.Context, r *models.Reading) error {
	if r == nil {
		return errors.New("reading is required")
	}
	if r.UserID == "" {
		return ErrMissingUserID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (user_id, ts, hrv, sleep_score, steps)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, ts) DO UPDATE SET
			hrv = excluded.hrv,
			sleep_score = excluded.sleep_score,
			steps = excluded.steps`,
		r.UserID, r.Timestamp, r.HRV, r.SleepScore, r.Steps,
	)
	if err != nil {
		return fmt.Errorf("upsert reading: %w", err)
	}
	return nil
}

// LatestReading returns the newest reading for the user, or sql.ErrNoRows.
func (s *Service) LatestReading(ctx context.Context, userID string) (*models.Reading, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, ts, hrv, sleep_score, steps
		 FROM readings WHERE user_id = ?
		 ORDER BY ts DESC LIMIT 1`, userID,
	)
	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query latest reading: %w", err)
	}
	return reading, nil
}

// RecentReadings returns up to limit readings for the user, newest first.
// An empty result is valid: new users simply have no history yet.
func (s *Service) RecentReadings(ctx context.Context, userID string, limit int) ([]*models.Reading, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if limit <= 0 {
		limit = AssistantWindow
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, ts, hrv, sleep_score, steps
		 FROM readings WHERE user_id = ?
		 ORDER BY ts DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent readings: %w", err)
	}
	defer rows.Close()

	readings := make([]*models.Reading, 0, limit)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return readings, nil
}

// UpsertScore appends a score computation for the user. History is kept;
// only the newest row matters for display.
func (s *Service) UpsertScore(ctx context.Context, sc *models.Score) error {
	if sc == nil {
		return errors.New("score is required")
	}
	if sc.UserID == "" {
		return ErrMissingUserID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (user_id, score, created_at) VALUES (?, ?, ?)`,
		sc.UserID, sc.Score, sc.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// LatestScore returns the newest score for the user, or sql.ErrNoRows.
func (s *Service) LatestScore(ctx context.Context, userID string) (*models.Score, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	var sc models.Score
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, score, created_at
		 FROM scores WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&sc.UserID, &sc.Score, &sc.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query latest score: %w", err)
	}
	return &sc, nil
}

// RecomputeScore derives and persists a fresh score from the user's single
// latest reading. sql.ErrNoRows propagates when the user has no readings.
func (s *Service) RecomputeScore(ctx context.Context, userID string) (int, error) {
	latest, err := s.LatestReading(ctx, userID)
	if err != nil {
		return 0, err
	}
	score := ComputeScore(latest)
	sc := &models.Score{
		UserID:    userID,
		Score:     score,
		Timestamp: time.Now().UTC(),
	}
	if err := s.UpsertScore(ctx, sc); err != nil {
		return 0, err
	}
	return score, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*models.Reading, error) {
	var (
		reading models.Reading
		hrv     sql.NullFloat64
		sleep   sql.NullFloat64
		steps   sql.NullInt64
	)
	if err := row.Scan(&reading.UserID, &reading.Timestamp, &hrv, &sleep, &steps); err != nil {
		return nil, err
	}
	if hrv.Valid {
		reading.HRV = &hrv.Float64
	}
	if sleep.Valid {
		reading.SleepScore = &sleep.Float64
	}
	if steps.Valid {
		reading.Steps = &steps.Int64
	}
	return &reading, nil
}
