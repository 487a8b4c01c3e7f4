// Package wizard drives the four-step gem listing workflow: lab report,
// details, media and review. It owns the draft and coordinates extraction,
// uploads, record creation and background job tracking.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/johnrirwin/gemlisting/internal/auth"
	"github.com/johnrirwin/gemlisting/internal/draftstore"
	"github.com/johnrirwin/gemlisting/internal/extraction"
	"github.com/johnrirwin/gemlisting/internal/jobs"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/matcher"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/notify"
	"github.com/johnrirwin/gemlisting/internal/upload"
)

var (
	ErrTooManyImages      = fmt.Errorf("a listing can have at most %d images", media.MaxImages)
	ErrTooManyVideos      = fmt.Errorf("a listing can have at most %d videos", media.MaxVideos)
	ErrWrongKind          = errors.New("file is not of the expected media kind")
	ErrSkipNotAllowed     = errors.New("the lab report can only be skipped when editing from the first step")
	ErrUnknownMedia       = errors.New("no such media")
	ErrNoCertificate      = errors.New("no lab report to extract from")
	ErrExtractionInFlight = errors.New("extraction already in progress")
	ErrSubmitInProgress   = errors.New("submission already in progress")
)

// Backend is the record side of the REST API
type Backend interface {
	CreateGem(ctx context.Context, payload models.GemPayload) (*models.GemRecord, error)
	UpdateGem(ctx context.Context, gemID string, payload models.GemPayload) (*models.GemRecord, error)
	AdminCreateGem(ctx context.Context, payload models.GemPayload) (*models.GemRecord, error)
	SubmitGemAsync(ctx context.Context, payload models.GemPayload) (string, error)
	DeleteLabReport(ctx context.Context, s3Key string) error
}

// Extractor runs lab report extraction
type Extractor interface {
	FromFile(ctx context.Context, file *media.File, onProgress func(percent int)) extraction.Result
	FromStored(ctx context.Context, d models.StoredCertificateDescriptor) extraction.Result
	Forget(s3Key string)
}

// Uploader moves a batch of media to storage
type Uploader interface {
	Upload(ctx context.Context, items []upload.Item, stored *models.StoredCertificateDescriptor, progress *upload.Progress) (*upload.Result, error)
}

// JobTracker follows accepted asynchronous submissions
type JobTracker interface {
	Track(ctx context.Context, jobID, gemType, reportNumber string) *jobs.Task
}

// Deps are the collaborators of a wizard
type Deps struct {
	Backend   Backend
	Extractor Extractor
	Uploader  Uploader
	Jobs      JobTracker
	Drafts    draftstore.Store
	Tokens    auth.TokenSource
	Notifier  notify.Notifier
	Logger    *logging.Logger
	Now       func() time.Time
}

// Mode selects how the final record is written
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeAdmin
)

func (m Mode) String() string {
	switch m {
	case ModeEdit:
		return "edit"
	case ModeAdmin:
		return "admin"
	default:
		return "create"
	}
}

// Options configure a new listing
type Options struct {
	// Admin creates the gem through the admin endpoint, optionally for SellerID
	Admin    bool
	SellerID string
	// Async submits through the background job endpoint (create mode only)
	Async bool
}

// EditInitial is the existing gem an edit session starts from
type EditInitial struct {
	GemID string
	Draft models.ListingDraft
	Media []models.ExistingMedia
}

// Wizard is the state of one listing session. It is safe for concurrent use.
type Wizard struct {
	deps     Deps
	mode     Mode
	async    bool
	sellerID string
	gemID    string
	progress *upload.Progress

	mu          sync.Mutex
	step        Step
	draft       models.ListingDraft
	errors      map[string]string
	images      []*media.File
	videos      []*media.File
	certificate *media.File
	stored      *models.StoredCertificateDescriptor
	existing    []models.ExistingMedia
	deletedIDs  []string
	skipped     bool
	// certGen changes whenever the certificate is replaced so stale
	// extraction or upload results can be dropped
	certGen     int
	extraction  extraction.State
	autoExtract AutoExtract
	submit      SubmitState
}

// New starts a listing for a new gem
func New(deps Deps, opts Options) *Wizard {
	w := newWizard(deps)
	if opts.Admin {
		w.mode = ModeAdmin
		w.sellerID = opts.SellerID
	} else {
		w.async = opts.Async
	}
	return w
}

// NewEdit starts an edit session pre-populated from an existing gem. Its
// media is kept apart from newly added files.
func NewEdit(deps Deps, initial EditInitial) *Wizard {
	w := newWizard(deps)
	w.mode = ModeEdit
	w.gemID = initial.GemID
	w.draft = initial.Draft.Clone()
	if w.draft.Weight.Unit == "" {
		w.draft.Weight.Unit = models.WeightUnitCarat
	}
	if w.draft.Dimensions.Unit == "" {
		w.draft.Dimensions.Unit = "mm"
	}
	w.existing = append([]models.ExistingMedia(nil), initial.Media...)
	return w
}

func newWizard(deps Deps) *Wizard {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.New(logging.LevelInfo)
	}
	w := &Wizard{deps: deps, progress: upload.NewProgress(nil)}
	w.resetLocked()
	return w
}

func (w *Wizard) resetLocked() {
	w.step = StepCertificate
	w.draft = models.NewListingDraft()
	w.errors = map[string]string{}
	w.images = nil
	w.videos = nil
	w.certificate = nil
	w.stored = nil
	w.existing = nil
	w.deletedIDs = nil
	w.skipped = false
	w.certGen++
	w.extraction = extraction.Idle{}
	w.autoExtract = AutoExtractPending{}
	w.submit = SubmitIdle{}
}

// Restore picks up a lab report stored by an earlier session. An expired
// descriptor is cleared instead.
func (w *Wizard) Restore(ctx context.Context) (*models.StoredCertificateDescriptor, error) {
	if w.deps.Drafts == nil {
		return nil, nil
	}
	d, err := draftstore.LoadFresh(ctx, w.deps.Drafts, w.deps.Now(), w.deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load lab report draft: %w", err)
	}
	if d == nil {
		return nil, nil
	}

	w.mu.Lock()
	w.stored = d
	w.certificate = nil
	w.certGen++
	w.extraction = extraction.Idle{}
	w.autoExtract = AutoExtractPending{}
	w.mu.Unlock()

	w.deps.Logger.Info("Restored lab report draft", logging.WithFields(map[string]interface{}{
		"s3Key":    d.S3Key,
		"fileName": d.FileName,
	}))
	return d, nil
}

// Mode returns how this session will write the record
func (w *Wizard) Mode() Mode {
	return w.mode
}

// Step returns the current step
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the current field values
func (w *Wizard) Draft() models.ListingDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Clone()
}

// Update edits the draft in one locked step
func (w *Wizard) Update(fn func(d *models.ListingDraft)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.draft)
}

// Errors returns the field errors of the last validation
func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// ExtractionState returns the state of the current certificate's extraction
func (w *Wizard) ExtractionState() extraction.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.extraction
}

// AutoExtractState returns the auto-extraction guard
func (w *Wizard) AutoExtractState() AutoExtract {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.autoExtract
}

// SubmitState returns the state of the submit action
func (w *Wizard) SubmitState() SubmitState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submit
}

// UploadProgress returns per-file and overall upload progress
func (w *Wizard) UploadProgress() upload.Snapshot {
	return w.progress.Snapshot()
}

// StoredCertificate returns the descriptor of the uploaded lab report, if any
func (w *Wizard) StoredCertificate() *models.StoredCertificateDescriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stored == nil {
		return nil
	}
	d := *w.stored
	return &d
}

// ExistingMedia returns the kept media of the gem being edited
func (w *Wizard) ExistingMedia() []models.ExistingMedia {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.ExistingMedia(nil), w.existing...)
}

// DeletedMediaIDs returns the existing media marked for deletion
func (w *Wizard) DeletedMediaIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.deletedIDs...)
}

func (w *Wizard) formLocked() formState {
	f := formState{
		draft:          w.draft,
		hasCertificate: w.certificate != nil || w.stored != nil,
		imageCount:     len(w.images),
	}
	for _, m := range w.existing {
		switch m.Type {
		case models.MediaKindImage:
			f.imageCount++
		case models.MediaKindCertificate:
			f.hasCertificate = true
		}
	}
	return f
}

// IsStepValid reports whether step's requirements are met. It changes nothing.
func (w *Wizard) IsStepValid(step Step) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(validate(step, w.formLocked())) == 0
}

// ValidateStep checks step and replaces the visible field errors with the result
func (w *Wizard) ValidateStep(step Step) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validateLocked(step)
}

func (w *Wizard) validateLocked(step Step) bool {
	w.errors = validate(step, w.formLocked())
	return len(w.errors) == 0
}

// Next moves forward when the current step is valid. Leaving the certificate
// step for the first time runs extraction on the new lab report; its failure
// only produces a notification.
func (w *Wizard) Next(ctx context.Context) bool {
	w.mu.Lock()
	if w.step >= StepReview || !w.validateLocked(w.step) {
		w.mu.Unlock()
		return false
	}

	from := w.step
	_, pending := w.autoExtract.(AutoExtractPending)
	_, done := w.extraction.(extraction.Succeeded)
	runExtraction := from == StepCertificate && pending && !done && (w.certificate != nil || w.stored != nil)
	if from == StepCertificate {
		w.autoExtract = AutoExtractAttempted{}
	}
	w.mu.Unlock()

	if runExtraction {
		// Errors only mean there was nothing to run; navigation goes on
		_, _ = w.Extract(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == from {
		w.step = from + 1
	}
	return true
}

// Back moves to the previous step. It is always allowed.
func (w *Wizard) Back() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepCertificate {
		w.step--
	}
	w.errors = map[string]string{}
	return w.step
}

// SkipCertificate jumps from the certificate step to details without a lab
// report. Only an edit session may do this.
func (w *Wizard) SkipCertificate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mode != ModeEdit || w.step != StepCertificate {
		return ErrSkipNotAllowed
	}
	w.skipped = true
	w.autoExtract = AutoExtractAttempted{}
	w.step = StepDetails
	w.errors = map[string]string{}
	return nil
}

// DisableAutoExtract keeps Next from extracting the current lab report
func (w *Wizard) DisableAutoExtract() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.autoExtract = AutoExtractAttempted{}
}

// Extract runs extraction on the current lab report and applies the matched
// fields to the draft in one update. Fields that were not matched keep their values.
func (w *Wizard) Extract(ctx context.Context) (extraction.Result, error) {
	w.mu.Lock()
	if _, busy := w.extraction.(extraction.InFlight); busy {
		w.mu.Unlock()
		return extraction.Result{}, ErrExtractionInFlight
	}
	file, stored, gen := w.certificate, w.stored, w.certGen
	if file == nil && stored == nil {
		w.mu.Unlock()
		return extraction.Result{}, ErrNoCertificate
	}
	w.extraction = extraction.InFlight{}
	w.mu.Unlock()

	var result extraction.Result
	switch {
	case w.deps.Extractor == nil:
		result = extraction.Result{Message: extraction.MessageServiceUnavailable}
	case file != nil:
		result = w.deps.Extractor.FromFile(ctx, file, func(percent int) {
			w.mu.Lock()
			if _, ok := w.extraction.(extraction.InFlight); ok && w.certGen == gen {
				w.extraction = extraction.InFlight{Progress: percent}
			}
			w.mu.Unlock()
		})
	default:
		result = w.deps.Extractor.FromStored(ctx, *stored)
	}

	w.mu.Lock()
	if w.certGen != gen {
		// The lab report changed while extracting
		w.mu.Unlock()
		return result, nil
	}
	filled := 0
	if result.OK() {
		patch := matcher.Match(*result.Metadata)
		patch.Apply(&w.draft)
		filled = countPatch(patch)
	}
	w.extraction = extraction.StateOf(result)
	w.mu.Unlock()

	if result.OK() {
		w.deps.Logger.Info("Applied extracted lab report fields", logging.WithField("fields", filled))
		notify.Success(w.deps.Notifier, "Certificate details extracted", "Please review the pre-filled fields before continuing.")
	} else {
		notify.Warning(w.deps.Notifier, "Could not read the lab report", result.Message)
	}
	return result, nil
}

// SetCertificate replaces the lab report. The previous stored report is
// deleted from storage on a best-effort basis, then the new one is uploaded
// right away so a later session can reuse it. If that upload fails the file
// is uploaded with the rest of the media on submit instead.
func (w *Wizard) SetCertificate(ctx context.Context, file *media.File) error {
	if file == nil || file.Kind != models.MediaKindCertificate {
		return ErrWrongKind
	}
	if err := media.Validate(file); err != nil {
		return err
	}

	w.mu.Lock()
	old := w.stored
	w.certificate = file
	w.stored = nil
	w.certGen++
	gen := w.certGen
	w.extraction = extraction.Idle{}
	w.autoExtract = AutoExtractPending{}
	delete(w.errors, "certificate")
	w.mu.Unlock()

	if old != nil {
		w.discardObject(ctx, old)
		w.clearDraft(ctx)
	}

	if w.deps.Uploader == nil {
		return nil
	}
	res, err := w.deps.Uploader.Upload(ctx, upload.NewItems([]*media.File{file}, ""), nil, nil)
	if err != nil {
		w.deps.Logger.Warn("Lab report upload deferred to submission", logging.WithFields(map[string]interface{}{
			"file":  file.Name,
			"error": err.Error(),
		}))
		return nil
	}

	task := res.Tasks[0]
	d := models.StoredCertificateDescriptor{
		S3Key:      task.S3Key,
		URL:        task.FileURL,
		FileName:   task.FileName,
		Size:       task.Size,
		MIMEType:   task.MIMEType,
		UploadedAt: w.deps.Now(),
	}

	w.mu.Lock()
	if w.certGen != gen {
		w.mu.Unlock()
		w.discardObject(ctx, &d)
		return nil
	}
	w.stored = &d
	w.mu.Unlock()

	if w.deps.Drafts != nil {
		if err := w.deps.Drafts.Save(ctx, d); err != nil {
			w.deps.Logger.Warn("Failed to persist lab report draft", logging.WithField("error", err.Error()))
		}
	}
	return nil
}

// RemoveCertificate drops the lab report and its stored descriptor
func (w *Wizard) RemoveCertificate(ctx context.Context) {
	w.mu.Lock()
	old := w.stored
	w.certificate = nil
	w.stored = nil
	w.certGen++
	w.extraction = extraction.Idle{}
	w.autoExtract = AutoExtractPending{}
	w.mu.Unlock()

	w.discardObject(ctx, old)
	w.clearDraft(ctx)
}

// discardObject forgets a superseded lab report and deletes it from storage
func (w *Wizard) discardObject(ctx context.Context, d *models.StoredCertificateDescriptor) {
	if d == nil {
		return
	}
	if w.deps.Extractor != nil {
		w.deps.Extractor.Forget(d.S3Key)
	}
	if w.deps.Backend != nil {
		if err := w.deps.Backend.DeleteLabReport(ctx, d.S3Key); err != nil {
			w.deps.Logger.Warn("Failed to delete superseded lab report", logging.WithFields(map[string]interface{}{
				"s3Key": d.S3Key,
				"error": err.Error(),
			}))
		}
	}
}

func (w *Wizard) clearDraft(ctx context.Context) {
	if w.deps.Drafts == nil {
		return
	}
	if err := w.deps.Drafts.Clear(ctx); err != nil {
		w.deps.Logger.Warn("Failed to clear lab report draft", logging.WithField("error", err.Error()))
	}
}

// AddImage queues a new image. Kept existing images count toward the limit.
func (w *Wizard) AddImage(file *media.File) error {
	return w.addMedia(file, models.MediaKindImage)
}

// AddVideo queues a new video. Kept existing videos count toward the limit.
func (w *Wizard) AddVideo(file *media.File) error {
	return w.addMedia(file, models.MediaKindVideo)
}

func (w *Wizard) addMedia(file *media.File, kind models.MediaKind) error {
	if file == nil || file.Kind != kind {
		return ErrWrongKind
	}
	if err := media.Validate(file); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch kind {
	case models.MediaKindImage:
		if len(w.images)+w.existingCountLocked(kind) >= media.MaxImages {
			return ErrTooManyImages
		}
		w.images = append(w.images, file)
		delete(w.errors, "images")
	case models.MediaKindVideo:
		if len(w.videos)+w.existingCountLocked(kind) >= media.MaxVideos {
			return ErrTooManyVideos
		}
		w.videos = append(w.videos, file)
	}
	return nil
}

func (w *Wizard) existingCountLocked(kind models.MediaKind) int {
	n := 0
	for _, m := range w.existing {
		if m.Type == kind {
			n++
		}
	}
	return n
}

// RemoveImage drops the new image at index
func (w *Wizard) RemoveImage(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.images) {
		return ErrUnknownMedia
	}
	w.images = append(w.images[:index:index], w.images[index+1:]...)
	return nil
}

// RemoveVideo drops the new video at index
func (w *Wizard) RemoveVideo(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.videos) {
		return ErrUnknownMedia
	}
	w.videos = append(w.videos[:index:index], w.videos[index+1:]...)
	return nil
}

// RemoveExistingMedia marks media of the edited gem for deletion
func (w *Wizard) RemoveExistingMedia(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, m := range w.existing {
		if m.ID == id {
			w.existing = append(w.existing[:i:i], w.existing[i+1:]...)
			w.deletedIDs = append(w.deletedIDs, id)
			return nil
		}
	}
	return ErrUnknownMedia
}

// SuggestedPricePerCarat derives a per-carat price from a direct-sale price
// and a carat weight, rounded to cents.
func (w *Wizard) SuggestedPricePerCarat() (float64, bool) {
	w.mu.Lock()
	d := w.draft
	w.mu.Unlock()

	if d.ListingType != models.ListingTypeDirectSale || d.Weight.Unit != models.WeightUnitCarat {
		return 0, false
	}
	if d.Price <= 0 || d.Weight.Value <= 0 {
		return 0, false
	}
	return math.Round(d.Price/d.Weight.Value*100) / 100, true
}

// Reset discards the session, including the stored lab report
func (w *Wizard) Reset(ctx context.Context) {
	w.mu.Lock()
	old := w.stored
	w.resetLocked()
	w.mu.Unlock()

	w.progress.Dispatch(upload.Reset{})
	w.discardObject(ctx, old)
	w.clearDraft(ctx)
}

func countPatch(p models.DraftPatch) int {
	n := 0
	for _, set := range []bool{
		p.ReportNumber != nil, p.LabName != nil, p.GemType != nil, p.Variety != nil,
		p.Color != nil, p.Clarity != nil, p.Origin != nil, p.Treatments != nil,
		p.Weight != nil, p.Dimensions != nil, p.Shape != nil, p.Cut != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
