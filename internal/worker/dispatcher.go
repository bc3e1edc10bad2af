package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDispatcherBusy signals a full recompute queue. Callers on the ingestion
// path treat it as a skipped recompute, never as a request failure.
var ErrDispatcherBusy = errors.New("recompute queue is full")

const recomputeTimeout = 10 * time.Second

// Job asks for a score recompute for one user.
type Job struct {
	UserID string
}

// RecomputeFunc runs one score recomputation.
type RecomputeFunc func(ctx context.Context, userID string) (int, error)

type DispatcherConfig struct {
	MinWorkers int
	MaxWorkers int
	QueueSize  int
}

// Dispatcher fans score-recompute jobs out to a bounded pool of workers.
// Duplicate jobs for a user still waiting in the queue are coalesced: the
// recompute always reads the latest reading, so one run covers them all.
type Dispatcher struct {
	recompute RecomputeFunc
	jobQueue  chan Job
	quit      chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	running int
	max     int
}

func NewDispatcher(cfg DispatcherConfig, recompute RecomputeFunc) *Dispatcher {
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	d := &Dispatcher{
		recompute: recompute,
		jobQueue:  make(chan Job, cfg.QueueSize),
		quit:      make(chan struct{}),
		pending:   make(map[string]struct{}),
		max:       cfg.MaxWorkers,
	}
	// Warm up the minimum pool; further workers spawn under load.
	for i := 0; i < cfg.MinWorkers; i++ {
		d.spawnWorker()
	}
	return d
}

// Enqueue schedules a recompute for the user. Returns ErrDispatcherBusy when
// the queue is full and nil when the user already has a job waiting.
func (d *Dispatcher) Enqueue(userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	d.mu.Lock()
	if _, waiting := d.pending[userID]; waiting {
		d.mu.Unlock()
		return nil
	}

	select {
	case d.jobQueue <- Job{UserID: userID}:
		d.pending[userID] = struct{}{}
		grow := len(d.jobQueue) > cap(d.jobQueue)/2 && d.running < d.max
		d.mu.Unlock()
		if grow {
			d.spawnWorker()
		}
		return nil
	default:
		d.mu.Unlock()
		return ErrDispatcherBusy
	}
}

// Stop shuts the pool down and waits for in-flight recomputes.
func (d *Dispatcher) Stop() {
	close(d.quit)
	d.wg.Wait()
}

func (d *Dispatcher) spawnWorker() {
	d.mu.Lock()
	if d.running >= d.max {
		d.mu.Unlock()
		return
	}
	d.running++
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case job := <-d.jobQueue:
				d.mu.Lock()
				delete(d.pending, job.UserID)
				d.mu.Unlock()
				d.handle(job)
			case <-d.quit:
				return
			}
		}
	}()
}

func (d *Dispatcher) handle(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()
	score, err := d.recompute(ctx, job.UserID)
	if err != nil {
		// Recompute failures never reach the ingestion response path.
		log.Printf("score recompute for user %s failed: %v", job.UserID, err)
		return
	}
	debugLog("[dispatcher] recomputed score %d for user %s", score, job.UserID)
}
