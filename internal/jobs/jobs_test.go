package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/notify"
	"github.com/johnrirwin/gemlisting/internal/testutil"
)

// scriptedAPI answers each job from its own queue; the last entry repeats
type scriptedAPI struct {
	mu       sync.Mutex
	script   map[string][]response
	calls    map[string]int
	inFlight map[string]int
	overlap  bool
}

type response struct {
	progress *models.JobProgress
	err      error
}

func newScriptedAPI() *scriptedAPI {
	return &scriptedAPI{
		script:   make(map[string][]response),
		calls:    make(map[string]int),
		inFlight: make(map[string]int),
	}
}

func (s *scriptedAPI) add(jobID string, status models.JobStatus, percent int) *scriptedAPI {
	s.script[jobID] = append(s.script[jobID], response{progress: &models.JobProgress{JobID: jobID, Status: status, Progress: percent}})
	return s
}

func (s *scriptedAPI) addErr(jobID string, err error) *scriptedAPI {
	s.script[jobID] = append(s.script[jobID], response{err: err})
	return s
}

func (s *scriptedAPI) JobStatus(ctx context.Context, jobID string) (*models.JobProgress, error) {
	s.mu.Lock()
	s.inFlight[jobID]++
	if s.inFlight[jobID] > 1 {
		s.overlap = true
	}
	n := s.calls[jobID]
	s.calls[jobID]++
	queue := s.script[jobID]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight[jobID]--
		s.mu.Unlock()
	}()

	if len(queue) == 0 {
		return &models.JobProgress{JobID: jobID, Status: models.JobStatusProcessing}, nil
	}
	if n >= len(queue) {
		n = len(queue) - 1
	}
	r := queue[n]
	if r.err != nil {
		return nil, r.err
	}
	p := *r.progress
	return &p, nil
}

func (s *scriptedAPI) callCount(jobID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[jobID]
}

func TestPoller_StopsOnCompleted(t *testing.T) {
	api := newScriptedAPI().
		add("J1", models.JobStatusProcessing, 10).
		add("J1", models.JobStatusProcessing, 50).
		add("J1", models.JobStatusCompleted, 100)
	p := NewPoller(api, time.Millisecond, time.Second, testutil.NullLogger())

	var seen []int
	task := p.Start(context.Background(), "J1", func(jp models.JobProgress) { seen = append(seen, jp.Progress) })
	last, err := task.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if last.Status != models.JobStatusCompleted {
		t.Errorf("status=%s", last.Status)
	}
	if len(seen) != 3 || seen[2] != 100 {
		t.Errorf("seen=%v", seen)
	}
	if api.callCount("J1") != 3 {
		t.Errorf("calls=%d want=3", api.callCount("J1"))
	}
}

func TestPoller_FailedJob(t *testing.T) {
	api := newScriptedAPI()
	api.script["J2"] = []response{{progress: &models.JobProgress{JobID: "J2", Status: models.JobStatusFailed, Error: "Duplicate report number"}}}
	p := NewPoller(api, time.Millisecond, time.Second, testutil.NullLogger())

	_, err := p.Start(context.Background(), "J2", nil).Wait()
	if !errors.Is(err, ErrJobFailed) {
		t.Fatalf("err=%v want ErrJobFailed", err)
	}
}

func TestPoller_TransientErrorsAreRetried(t *testing.T) {
	api := newScriptedAPI().
		addErr("J3", errors.New("connection reset by peer")).
		addErr("J3", errors.New("502 bad gateway")).
		add("J3", models.JobStatusCompleted, 100)
	p := NewPoller(api, time.Millisecond, time.Second, testutil.NullLogger())

	if _, err := p.Start(context.Background(), "J3", nil).Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if api.callCount("J3") != 3 {
		t.Errorf("calls=%d want=3", api.callCount("J3"))
	}
}

func TestPoller_Timeout(t *testing.T) {
	api := newScriptedAPI().add("J4", models.JobStatusProcessing, 40)
	p := NewPoller(api, 5*time.Millisecond, 40*time.Millisecond, testutil.NullLogger())

	start := time.Now()
	last, err := p.Start(context.Background(), "J4", nil).Wait()
	if !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("err=%v want ErrJobTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout not enforced, took %v", time.Since(start))
	}
	if last == nil || last.Progress != 40 {
		t.Errorf("last=%+v", last)
	}
}

func TestPoller_Cancel(t *testing.T) {
	api := newScriptedAPI().add("J5", models.JobStatusProcessing, 10)
	p := NewPoller(api, 5*time.Millisecond, time.Minute, testutil.NullLogger())

	task := p.Start(context.Background(), "J5", nil)
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after Cancel")
	}
	if _, err := task.Wait(); !errors.Is(err, ErrCanceled) {
		t.Errorf("err=%v want ErrCanceled", err)
	}
}

func TestPoller_PollsAreSequentialPerJob(t *testing.T) {
	api := newScriptedAPI()
	for i := 0; i < 5; i++ {
		api.add("J6", models.JobStatusProcessing, i*20)
	}
	api.add("J6", models.JobStatusCompleted, 100)
	p := NewPoller(api, time.Millisecond, time.Second, testutil.NullLogger())

	if _, err := p.Start(context.Background(), "J6", nil).Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if api.overlap {
		t.Error("two polls for the same job were in flight at once")
	}
}

func TestTracker_CompletedJobIsRemoved(t *testing.T) {
	api := newScriptedAPI().
		add("J1", models.JobStatusProcessing, 35).
		add("J1", models.JobStatusCompleted, 100)
	rec := notify.NewRecorder()
	tr := NewTracker(NewPoller(api, 50*time.Millisecond, time.Second, testutil.NullLogger()), rec, testutil.NullLogger())

	tr.Track(context.Background(), "J1", "Sapphire", "2141438167")

	job, ok := tr.Job("J1")
	if !ok || job.Progress.Status != models.JobStatusPending {
		t.Fatalf("job=%+v ok=%v want pending entry right away", job, ok)
	}

	tr.Wait()

	if _, ok := tr.Job("J1"); ok {
		t.Error("completed job still tracked")
	}
	if got := rec.WithLevel(notify.LevelSuccess); len(got) != 1 {
		t.Errorf("success notifications=%+v", got)
	}
}

func TestTracker_MilestonesFireOnce(t *testing.T) {
	api := newScriptedAPI().
		add("J1", models.JobStatusProcessing, 31).
		add("J1", models.JobStatusProcessing, 45).
		add("J1", models.JobStatusProcessing, 80).
		add("J1", models.JobStatusProcessing, 90).
		add("J1", models.JobStatusCompleted, 100)
	rec := notify.NewRecorder()
	tr := NewTracker(NewPoller(api, time.Millisecond, time.Second, testutil.NullLogger()), rec, testutil.NullLogger())

	tr.Track(context.Background(), "J1", "Ruby", "")
	tr.Wait()

	// one "submitted" info plus one per milestone
	if got := rec.WithLevel(notify.LevelInfo); len(got) != 1+len(Milestones) {
		t.Errorf("info notifications=%d want=%d: %+v", len(got), 1+len(Milestones), got)
	}
}

func TestTracker_FailedJobIsRetained(t *testing.T) {
	api := newScriptedAPI()
	api.script["J9"] = []response{{progress: &models.JobProgress{JobID: "J9", Status: models.JobStatusFailed, Progress: 40, Error: "Media processing failed"}}}
	rec := notify.NewRecorder()
	tr := NewTracker(NewPoller(api, time.Millisecond, time.Second, testutil.NullLogger()), rec, testutil.NullLogger())

	tr.Track(context.Background(), "J9", "Emerald", "")
	tr.Wait()

	job, ok := tr.Job("J9")
	if !ok {
		t.Fatal("failed job was removed")
	}
	if job.Progress.Status != models.JobStatusFailed || job.Progress.Error != "Media processing failed" {
		t.Errorf("progress=%+v", job.Progress)
	}
	if errs := rec.WithLevel(notify.LevelError); len(errs) != 1 || errs[0].Message != "Media processing failed" {
		t.Errorf("error notifications=%+v", errs)
	}

	if !tr.Dismiss("J9") || len(tr.Jobs()) != 0 {
		t.Error("Dismiss did not remove the failed job")
	}
}

func TestTracker_TimedOutJobIsRetained(t *testing.T) {
	api := newScriptedAPI().add("J7", models.JobStatusProcessing, 20)
	tr := NewTracker(NewPoller(api, 2*time.Millisecond, 20*time.Millisecond, testutil.NullLogger()), nil, testutil.NullLogger())

	tr.Track(context.Background(), "J7", "Spinel", "")
	tr.Wait()

	job, ok := tr.Job("J7")
	if !ok || job.Progress.Status != models.JobStatusFailed || job.Progress.Error == "" {
		t.Fatalf("job=%+v ok=%v", job, ok)
	}
}

func TestTracker_JobsAreIndependent(t *testing.T) {
	api := newScriptedAPI().
		add("slow", models.JobStatusProcessing, 10).
		add("fast", models.JobStatusCompleted, 100)
	tr := NewTracker(NewPoller(api, time.Millisecond, 50*time.Millisecond, testutil.NullLogger()), nil, testutil.NullLogger())

	tr.Track(context.Background(), "slow", "Opal", "")
	fast := tr.Track(context.Background(), "fast", "Topaz", "")

	<-fast.Done()
	if _, err := fast.Wait(); err != nil {
		t.Fatalf("fast job err=%v", err)
	}
	tr.Wait()

	jobs := tr.Jobs()
	if len(jobs) != 1 || jobs[0].JobID != "slow" {
		t.Fatalf("jobs=%+v want only the timed-out slow job", jobs)
	}
}

func TestTracker_StopCancelsPolling(t *testing.T) {
	api := newScriptedAPI().add("J8", models.JobStatusProcessing, 10)
	tr := NewTracker(NewPoller(api, time.Millisecond, time.Minute, testutil.NullLogger()), nil, testutil.NullLogger())

	tr.Track(context.Background(), "J8", "Garnet", "")

	done := make(chan struct{})
	go func() {
		tr.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	if len(tr.Jobs()) != 0 {
		t.Errorf("cancelled job still listed: %+v", tr.Jobs())
	}
}
