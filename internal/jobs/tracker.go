package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/notify"
)

// Milestones are the progress percentages announced once per job
var Milestones = []int{30, 70}

// Tracker keeps the set of accepted asynchronous submissions and notifies
// the user as they advance. Each job only ever replaces its own entry.
type Tracker struct {
	poller   *Poller
	notifier notify.Notifier
	logger   *logging.Logger
	now      func() time.Time

	mu    sync.Mutex
	jobs  map[string]models.BackgroundJob
	fired map[string]map[int]bool
	tasks map[string]*Task
	wg    sync.WaitGroup
}

// NewTracker creates a tracker polling through poller
func NewTracker(poller *Poller, notifier notify.Notifier, logger *logging.Logger) *Tracker {
	return &Tracker{
		poller:   poller,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		jobs:     make(map[string]models.BackgroundJob),
		fired:    make(map[string]map[int]bool),
		tasks:    make(map[string]*Task),
	}
}

// Track registers jobID as pending and starts polling it in the background
func (t *Tracker) Track(ctx context.Context, jobID, gemType, reportNumber string) *Task {
	job := models.BackgroundJob{
		JobID:        jobID,
		GemType:      gemType,
		ReportNumber: reportNumber,
		Progress: models.JobProgress{
			JobID:   jobID,
			Status:  models.JobStatusPending,
			Message: "Queued for processing",
		},
		StartedAt: t.now(),
	}

	t.mu.Lock()
	t.jobs[jobID] = job
	t.fired[jobID] = make(map[int]bool)
	t.mu.Unlock()

	t.logger.Info("Tracking background job", logging.WithFields(map[string]interface{}{
		"jobId":        jobID,
		"gemType":      gemType,
		"reportNumber": reportNumber,
	}))
	notify.Info(t.notifier, "Listing submitted", fmt.Sprintf("Your %s is being processed in the background.", displayName(job)))

	task := t.poller.Start(ctx, jobID, func(p models.JobProgress) {
		t.update(jobID, p)
	})

	t.mu.Lock()
	t.tasks[jobID] = task
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		progress, err := task.Wait()
		t.finish(jobID, progress, err)
	}()
	return task
}

func (t *Tracker) update(jobID string, p models.JobProgress) {
	var reached []int

	t.mu.Lock()
	job, ok := t.jobs[jobID]
	if ok {
		job.Progress = p
		t.jobs[jobID] = job
		for _, m := range Milestones {
			if p.Progress >= m && !t.fired[jobID][m] {
				t.fired[jobID][m] = true
				reached = append(reached, m)
			}
		}
	}
	t.mu.Unlock()

	// Terminal statuses are announced by finish
	if !ok || p.Status.Terminal() {
		return
	}
	for _, m := range reached {
		msg := p.Message
		if msg == "" {
			msg = fmt.Sprintf("%d%% complete", m)
		}
		notify.Info(t.notifier, fmt.Sprintf("Processing %s", displayName(job)), msg)
	}
}

func (t *Tracker) finish(jobID string, progress *models.JobProgress, err error) {
	t.mu.Lock()
	job, ok := t.jobs[jobID]
	delete(t.tasks, jobID)
	delete(t.fired, jobID)
	switch {
	case !ok:
	case err == nil:
		delete(t.jobs, jobID)
	case errors.Is(err, ErrCanceled):
		delete(t.jobs, jobID)
	default:
		if progress != nil {
			job.Progress = *progress
		}
		job.Progress.Status = models.JobStatusFailed
		job.Progress.Error = errorMessage(err, progress)
		t.jobs[jobID] = job
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	fields := logging.WithFields(map[string]interface{}{
		"jobId":    jobID,
		"duration": t.now().Sub(job.StartedAt).String(),
	})
	switch {
	case err == nil:
		t.logger.Info("Background job finished", fields)
		notify.Success(t.notifier, "Gem listed successfully", fmt.Sprintf("Your %s is now live.", displayName(job)))
	case errors.Is(err, ErrCanceled):
		t.logger.Info("Background job no longer tracked", fields)
	default:
		t.logger.Error("Background job failed", fields, logging.WithField("error", err.Error()))
		notify.Error(t.notifier, "Listing failed", errorMessage(err, progress))
	}
}

// Jobs returns the active and failed jobs, oldest first
func (t *Tracker) Jobs() []models.BackgroundJob {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.BackgroundJob, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].StartedAt.Equal(out[k].StartedAt) {
			return out[i].JobID < out[k].JobID
		}
		return out[i].StartedAt.Before(out[k].StartedAt)
	})
	return out
}

// Job returns one tracked job
func (t *Tracker) Job(jobID string) (models.BackgroundJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[jobID]
	return j, ok
}

// Dismiss removes a job that is no longer being polled, such as a failed one
func (t *Tracker) Dismiss(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, polling := t.tasks[jobID]; polling {
		return false
	}
	if _, ok := t.jobs[jobID]; !ok {
		return false
	}
	delete(t.jobs, jobID)
	return true
}

// Wait blocks until every tracked job has finished
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Stop cancels all polling and waits for the loops to exit
func (t *Tracker) Stop() {
	t.mu.Lock()
	tasks := make([]*Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		tasks = append(tasks, task)
	}
	t.mu.Unlock()

	for _, task := range tasks {
		task.Cancel()
	}
	t.wg.Wait()
}

func errorMessage(err error, progress *models.JobProgress) string {
	switch {
	case errors.Is(err, ErrJobTimeout):
		return "Processing is taking longer than expected. Check your listings later."
	case errors.Is(err, ErrJobFailed) && progress != nil:
		return failureMessage(progress)
	default:
		return err.Error()
	}
}

func displayName(j models.BackgroundJob) string {
	name := j.GemType
	if name == "" {
		name = "gem"
	}
	if j.ReportNumber != "" {
		return fmt.Sprintf("%s (%s)", name, j.ReportNumber)
	}
	return name
}
