// Package jobs follows asynchronous gem submissions until the backend
// reports a terminal state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johnrirwin/gemlisting/internal/gemapi"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/models"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 5 * time.Minute
)

var (
	// ErrJobTimeout is the cause reported when a job outlives the poll timeout
	ErrJobTimeout = errors.New("job did not finish in time")
	// ErrJobFailed wraps the backend's failure message for a failed job
	ErrJobFailed = errors.New("job failed")
	// ErrCanceled is the cause reported when a task is cancelled explicitly
	ErrCanceled = errors.New("job polling canceled")
)

// StatusAPI reads the status of one job
type StatusAPI interface {
	JobStatus(ctx context.Context, jobID string) (*models.JobProgress, error)
}

// Poller starts one polling task per job
type Poller struct {
	api      StatusAPI
	interval time.Duration
	timeout  time.Duration
	logger   *logging.Logger
}

// NewPoller creates a poller. Non-positive durations fall back to the defaults.
func NewPoller(api StatusAPI, interval, timeout time.Duration, logger *logging.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{api: api, interval: interval, timeout: timeout, logger: logger}
}

// Task is a running poll loop for one job
type Task struct {
	JobID string

	cancel context.CancelCauseFunc
	done   chan struct{}
	last   *models.JobProgress
	err    error
}

// Cancel stops polling. Wait then reports ErrCanceled.
func (t *Task) Cancel() {
	t.cancel(ErrCanceled)
}

// Done is closed once the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes and returns the last progress seen.
// The error is nil only for a completed job.
func (t *Task) Wait() (*models.JobProgress, error) {
	<-t.done
	return t.last, t.err
}

// Start polls jobID every interval, one request at a time, until it is
// completed or failed, the timeout elapses, or ctx/Cancel stops it.
// onProgress is called with every status received and may be nil.
func (p *Poller) Start(ctx context.Context, jobID string, onProgress func(models.JobProgress)) *Task {
	ctx, cancel := context.WithCancelCause(ctx)
	ctx, stop := context.WithTimeoutCause(ctx, p.timeout, ErrJobTimeout)

	t := &Task{JobID: jobID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer stop()
		defer cancel(nil)
		t.last, t.err = p.run(ctx, jobID, onProgress)
	}()
	return t
}

func (p *Poller) run(ctx context.Context, jobID string, onProgress func(models.JobProgress)) (*models.JobProgress, error) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	var last *models.JobProgress
	for {
		select {
		case <-ctx.Done():
			return last, p.stopped(ctx, jobID)
		case <-timer.C:
		}

		progress, err := p.api.JobStatus(ctx, jobID)
		switch {
		case err != nil && ctx.Err() != nil:
			return last, p.stopped(ctx, jobID)
		case err != nil:
			// Polling again is the only retry in the workflow
			p.logger.Warn("Job status poll failed", logging.WithFields(map[string]interface{}{
				"jobId":  jobID,
				"status": statusOf(err),
				"error":  err.Error(),
			}))
		default:
			last = progress
			if onProgress != nil {
				onProgress(*progress)
			}
			switch progress.Status {
			case models.JobStatusCompleted:
				p.logger.Info("Job completed", logging.WithFields(map[string]interface{}{
					"jobId": jobID,
					"gemId": progress.GemID,
				}))
				return progress, nil
			case models.JobStatusFailed:
				return progress, fmt.Errorf("%w: %s", ErrJobFailed, failureMessage(progress))
			}
		}

		timer.Reset(p.interval)
	}
}

func (p *Poller) stopped(ctx context.Context, jobID string) error {
	cause := context.Cause(ctx)
	p.logger.Warn("Job polling stopped", logging.WithFields(map[string]interface{}{
		"jobId": jobID,
		"cause": cause.Error(),
	}))
	return cause
}

func failureMessage(p *models.JobProgress) string {
	if p.Error != "" {
		return p.Error
	}
	if p.Message != "" {
		return p.Message
	}
	return "unknown error"
}

func statusOf(err error) int {
	var apiErr *gemapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
