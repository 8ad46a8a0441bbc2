package verdict

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"phishguard/internal/models"
)

type report struct {
	url    string
	status models.Classification
}

type ReporterConfig struct {
	QueueSize int
	Workers   int
	// Timeout bounds each individual upsert.
	Timeout time.Duration
}

type ReporterStats struct {
	Submitted int64 `json:"submitted"`
	Stored    int64 `json:"stored"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Reporter writes analysis outcomes to a Store in the background. Report
// never blocks: when the queue is full the report is dropped and logged.
type Reporter struct {
	store   Store
	queue   chan report
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	submitted atomic.Int64
	stored    atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewReporter(store Store, cfg ReporterConfig) *Reporter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	r := &Reporter{
		store:   store,
		queue:   make(chan report, cfg.QueueSize),
		timeout: cfg.Timeout,
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	return r
}

func (r *Reporter) Report(url string, status models.Classification) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		log.Printf("[Reporter] closed, dropping %s (%s)", url, status)
		return
	}

	select {
	case r.queue <- report{url: url, status: status}:
		r.submitted.Add(1)
	default:
		r.dropped.Add(1)
		log.Printf("[Reporter] queue full, dropping %s (%s)", url, status)
	}
}

func (r *Reporter) work() {
	defer r.wg.Done()
	for rep := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.Upsert(ctx, rep.url, rep.status)
		cancel()

		if err != nil {
			r.failed.Add(1)
			log.Printf("[ERROR] Failed to report URL status for %s: %v", rep.url, err)
			continue
		}
		r.stored.Add(1)
	}
}

// Close stops accepting reports and waits for queued ones to finish or for
// ctx to end.
func (r *Reporter) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) Stats() ReporterStats {
	return ReporterStats{
		Submitted: r.submitted.Load(),
		Stored:    r.stored.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
	}
}
