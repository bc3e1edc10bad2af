package health

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"vitalink/internal/models"
	"vitalink/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return NewService(db), db
}

func TestUpsertReadingReplacesSameKey(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	ctx := context.Background()

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	first := &models.Reading{UserID: "u1", Timestamp: ts, HRV: fptr(40)}
	if err := svc.UpsertReading(ctx, first); err != nil {
		t.Fatalf("upsert first: %v", err)
	}
	second := &models.Reading{UserID: "u1", Timestamp: ts, HRV: fptr(55), SleepScore: fptr(85)}
	if err := svc.UpsertReading(ctx, second); err != nil {
		t.Fatalf("upsert second: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM readings WHERE user_id = 'u1'`).Scan(&count); err != nil {
		t.Fatalf("count readings: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reading after key collision, got %d", count)
	}

	latest, err := svc.LatestReading(ctx, "u1")
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if latest.HRV == nil || *latest.HRV != 55 {
		t.Fatalf("expected replacement hrv 55, got %v", latest.HRV)
	}
	if latest.SleepScore == nil || *latest.SleepScore != 85 {
		t.Fatalf("expected replacement sleep score 85, got %v", latest.SleepScore)
	}
}

func TestAbsentMetricsRoundTripAsNull(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	ctx := context.Background()

	reading := &models.Reading{UserID: "u1", Timestamp: time.Now().UTC()}
	if err := svc.UpsertReading(ctx, reading); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := svc.LatestReading(ctx, "u1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.HRV != nil || got.SleepScore != nil || got.Steps != nil {
		t.Fatalf("absent metrics must stay absent, got %+v", got)
	}
}

func TestRecentReadingsNewestFirst(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		reading := &models.Reading{
			UserID:    "u1",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			HRV:       fptr(float64(40 + i)),
		}
		if err := svc.UpsertReading(ctx, reading); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	readings, err := svc.RecentReadings(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("recent readings: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.After(readings[i-1].Timestamp) {
			t.Fatalf("readings not ordered newest first: %v then %v",
				readings[i-1].Timestamp, readings[i].Timestamp)
		}
	}
	if *readings[0].HRV != 44 {
		t.Fatalf("expected newest reading first, got hrv %v", *readings[0].HRV)
	}
}

func TestRecentReadingsEmptyForNewUser(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()

	readings, err := svc.RecentReadings(context.Background(), "nobody", AssistantWindow)
	if err != nil {
		t.Fatalf("recent readings: %v", err)
	}
	if len(readings) != 0 {
		t.Fatalf("expected empty history, got %d readings", len(readings))
	}
}

func TestRecomputeScoreUsesLatestReading(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()
	ctx := context.Background()

	old := &models.Reading{
		UserID:     "u1",
		Timestamp:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		HRV:        fptr(90),
		SleepScore: fptr(95),
	}
	newest := &models.Reading{
		UserID:     "u1",
		Timestamp:  time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		HRV:        fptr(40),
		SleepScore: fptr(70),
	}
	for _, r := range []*models.Reading{old, newest} {
		if err := svc.UpsertReading(ctx, r); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	score, err := svc.RecomputeScore(ctx, "u1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if score != 50 {
		t.Fatalf("expected score 50 from latest reading, got %d", score)
	}

	latest, err := svc.LatestScore(ctx, "u1")
	if err != nil {
		t.Fatalf("latest score: %v", err)
	}
	if latest.Score != 50 {
		t.Fatalf("persisted score = %d, want 50", latest.Score)
	}
}

func TestRecomputeScoreNoData(t *testing.T) {
	svc, db := newTestService(t)
	defer db.Close()

	_, err := svc.RecomputeScore(context.Background(), "ghost")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM scores`).Scan(&count); err != nil {
		t.Fatalf("count scores: %v", err)
	}
	if count != 0 {
		t.Fatalf("no score may be written without readings, found %d", count)
	}
}
