// Package upload moves a batch of listing media into object storage through
// backend-issued pre-signed URLs and assembles the resulting media manifest.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/gemlisting/internal/gemapi"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
)

var (
	// ErrEmptyBatch is returned when there is nothing to upload
	ErrEmptyBatch = errors.New("no files to upload")
	// ErrMalformedTask is returned when an entry lacks name, type, size or kind
	ErrMalformedTask = errors.New("malformed upload entry")
	// ErrURLIssuance wraps any failure to obtain pre-signed targets
	ErrURLIssuance = errors.New("failed to get upload urls")
	// ErrImageRejected is returned when screening refuses an image
	ErrImageRejected = errors.New("image was rejected by screening")
)

// API is the subset of the backend client the orchestrator needs
type API interface {
	GenerateUploadURLs(ctx context.Context, files []models.UploadURLRequest) ([]models.UploadTarget, error)
	UploadToStorage(ctx context.Context, uploadURL string, file *media.File, onProgress gemapi.ProgressFunc) error
}

// Screener decides whether an image may be uploaded
type Screener interface {
	Screen(ctx context.Context, file *media.File) (*models.ScreeningDecision, error)
}

// Item is one pending file of a batch
type Item struct {
	Task models.UploadTask
	File *media.File
}

// NewItems wraps files as a batch sharing one grouping id. An empty groupID gets a fresh one.
func NewItems(files []*media.File, groupID string) []Item {
	if groupID == "" {
		groupID = uuid.NewString()
	}
	items := make([]Item, 0, len(files))
	for _, f := range files {
		task := models.UploadTask{ID: uuid.NewString(), GroupID: groupID}
		if f != nil {
			task.FileName = f.Name
			task.MIMEType = f.ContentType
			task.Size = f.Size
			task.Kind = f.Kind
		}
		items = append(items, Item{Task: task, File: f})
	}
	return items
}

// Result is the outcome of a fully successful batch
type Result struct {
	Tasks []models.UploadTask
	Files []models.MediaFile
}

// Orchestrator runs upload batches
type Orchestrator struct {
	api      API
	screener Screener
	logger   *logging.Logger
}

// NewOrchestrator creates an orchestrator. screener may be nil.
func NewOrchestrator(api API, screener Screener, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{api: api, screener: screener, logger: logger}
}

// Upload validates the batch, requests every target in one call, uploads all
// files concurrently and returns the manifest only if every upload succeeded.
// progress may be nil; on failure the batch's keys are removed from it.
func (o *Orchestrator) Upload(ctx context.Context, items []Item, stored *models.StoredCertificateDescriptor, progress *Progress) (*Result, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = NewProgress(nil)
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.Task.ID
	}

	result, err := o.upload(ctx, items, stored, progress)
	if err != nil {
		progress.Dispatch(Remove{Keys: keys})
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) upload(ctx context.Context, items []Item, stored *models.StoredCertificateDescriptor, progress *Progress) (*Result, error) {
	if err := o.screen(ctx, items); err != nil {
		return nil, err
	}

	requests := make([]models.UploadURLRequest, len(items))
	for i, item := range items {
		requests[i] = models.UploadURLRequest{
			FileName:  item.Task.FileName,
			FileType:  item.Task.MIMEType,
			FileSize:  item.Task.Size,
			MediaType: item.Task.Kind,
			GemID:     item.Task.GroupID,
		}
	}

	targets, err := o.api.GenerateUploadURLs(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrURLIssuance, gemapi.MessageOf(err))
	}

	tasks, err := assignTargets(items, targets)
	if err != nil {
		return nil, err
	}

	for _, task := range tasks {
		progress.Dispatch(SetPercent{Key: task.ID, Percent: 0})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		item := items[i]
		task := tasks[i]
		g.Go(func() error {
			err := o.api.UploadToStorage(gctx, task.UploadURL, item.File, func(percent int) {
				progress.Dispatch(SetPercent{Key: task.ID, Percent: percent})
			})
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", task.FileName, err)
			}
			progress.Dispatch(SetPercent{Key: task.ID, Percent: 100})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.Error("Media batch upload failed", logging.WithFields(map[string]interface{}{
			"groupId": items[0].Task.GroupID,
			"files":   len(items),
			"error":   err.Error(),
		}))
		return nil, err
	}

	o.logger.Info("Uploaded media batch", logging.WithFields(map[string]interface{}{
		"groupId":           items[0].Task.GroupID,
		"files":             len(items),
		"storedCertificate": stored != nil,
	}))

	return &Result{Tasks: tasks, Files: BuildManifest(tasks, stored)}, nil
}

// Validate rejects empty batches and entries that are not real files
func Validate(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	for i, item := range items {
		t := item.Task
		if item.File == nil || strings.TrimSpace(t.FileName) == "" || strings.TrimSpace(t.MIMEType) == "" || t.Size <= 0 || !t.Kind.Valid() {
			return fmt.Errorf("%w: entry %d (%q)", ErrMalformedTask, i, t.FileName)
		}
		if t.ID == "" || t.GroupID == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrMalformedTask, i)
		}
	}
	return nil
}

func (o *Orchestrator) screen(ctx context.Context, items []Item) error {
	if o.screener == nil {
		return nil
	}
	for _, item := range items {
		if item.Task.Kind != models.MediaKindImage {
			continue
		}
		decision, err := o.screener.Screen(ctx, item.File)
		if err != nil {
			// Screening is advisory; the backend re-checks media anyway
			o.logger.Warn("Image screening unavailable", logging.WithFields(map[string]interface{}{
				"file":  item.Task.FileName,
				"error": err.Error(),
			}))
			continue
		}
		if decision != nil && decision.Status == models.ScreeningRejected {
			return fmt.Errorf("%w: %s", ErrImageRejected, item.Task.FileName)
		}
	}
	return nil
}

// assignTargets pairs targets with tasks by position, falling back to file
// name when the backend reorders its answer.
func assignTargets(items []Item, targets []models.UploadTarget) ([]models.UploadTask, error) {
	if len(targets) != len(items) {
		return nil, fmt.Errorf("%w: expected %d targets, got %d", ErrURLIssuance, len(items), len(targets))
	}

	byName := make(map[string][]models.UploadTarget, len(targets))
	positional := true
	for i, target := range targets {
		byName[target.FileName] = append(byName[target.FileName], target)
		if target.FileName != items[i].Task.FileName {
			positional = false
		}
	}

	tasks := make([]models.UploadTask, len(items))
	for i, item := range items {
		var target models.UploadTarget
		if positional {
			target = targets[i]
		} else {
			queue := byName[item.Task.FileName]
			if len(queue) == 0 {
				return nil, fmt.Errorf("%w: no target for %s", ErrURLIssuance, item.Task.FileName)
			}
			target, byName[item.Task.FileName] = queue[0], queue[1:]
		}
		if target.UploadURL == "" || target.S3Key == "" {
			return nil, fmt.Errorf("%w: incomplete target for %s", ErrURLIssuance, item.Task.FileName)
		}

		task := item.Task
		task.UploadURL = target.UploadURL
		task.S3Key = target.S3Key
		task.FileURL = target.FileURL
		tasks[i] = task
	}
	return tasks, nil
}
