package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"phishguard/internal/models"
	"phishguard/internal/queue"
)

const (
	// PopTimeout bounds each blocking pop so shutdown is noticed.
	PopTimeout  = 5 * time.Second
	TaskTimeout = 60 * time.Second
	errBackoff  = 1 * time.Second
)

type TaskSource interface {
	Pop(ctx context.Context, timeout time.Duration) (models.Task, error)
}

type ResultSink interface {
	SaveAnalysis(ctx context.Context, rec models.AnalysisRecord) error
}

type Analyzer interface {
	Analyze(ctx context.Context, url string, fastOnly bool) (models.AnalysisSummary, error)
}

type Runner struct {
	Tasks    TaskSource
	Results  ResultSink
	Analyzer Analyzer
	// FastOnly skips the network-heavy checks for bulk jobs.
	FastOnly    bool
	TaskTimeout time.Duration
}

// Start runs the worker loop until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	log.Println("👷 Worker started. Waiting for tasks...")

	for {
		if ctx.Err() != nil {
			log.Println("👋 Worker stopped")
			return
		}

		task, err := r.Tasks.Pop(ctx, PopTimeout)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("❌ Queue error: %v\n", err)
			sleep(ctx, errBackoff)
			continue
		}

		r.Process(ctx, task)
	}
}

// Process analyzes one task and records the outcome against its job. URLs
// that fail validation are still recorded so the job can complete.
func (r *Runner) Process(ctx context.Context, task models.Task) {
	timeout := r.TaskTimeout
	if timeout <= 0 {
		timeout = TaskTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	summary, err := r.Analyzer.Analyze(taskCtx, task.URL, r.FastOnly)
	cancel()

	rec := models.AnalysisRecord{JobID: task.JobID, URL: task.URL}
	if err != nil {
		rec.Status = models.Unknown
		rec.Data = errorData(err)
	} else {
		rec.Score = summary.Score
		rec.Status = summary.Status
		rec.Data = encodeData(task.URL, summary)
	}

	if err := r.Results.SaveAnalysis(ctx, rec); err != nil {
		log.Printf("Failed to save result for %s: %v\n", task.URL, err)
		return
	}
	log.Printf("✅ Processed: %s (Score: %d)\n", task.URL, rec.Score)
}

// encodeData marshals v for storage. A value that cannot be encoded is
// replaced by an error object so the row is still valid JSON.
func encodeData(url string, v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("❌ Failed to encode result for %s: %v\n", url, err)
		return errorData(err)
	}
	return data
}

func errorData(err error) json.RawMessage {
	data, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return json.RawMessage(`{"error":"unencodable result"}`)
	}
	return data
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
