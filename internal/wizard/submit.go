package wizard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/auth"
	"github.com/johnrirwin/gemlisting/internal/gemapi"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/notify"
	"github.com/johnrirwin/gemlisting/internal/upload"
)

// SubmitKind classifies a failed submission
type SubmitKind string

const (
	KindNotAuthenticated SubmitKind = "not_authenticated"
	KindURLIssuance      SubmitKind = "url_issuance"
	KindUpload           SubmitKind = "upload"
	KindRecordCreation   SubmitKind = "record_creation"
	KindDuplicateReport  SubmitKind = "duplicate_report"
)

// SubmitError is a submission that was aborted after validation passed
type SubmitError struct {
	Kind    SubmitKind
	Message string
	Cause   error
}

func (e *SubmitError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *SubmitError) Unwrap() error {
	return e.Cause
}

// Outcome is what a successful submission produced. Exactly one of GemID
// and JobID is set; JobID means the record is created in the background.
type Outcome struct {
	GemID string
	JobID string
}

// submission is everything Submit reads from the wizard, taken under lock
type submission struct {
	draft       models.ListingDraft
	images      []*media.File
	videos      []*media.File
	certificate *media.File
	stored      *models.StoredCertificateDescriptor
	deletedIDs  []string
}

// Submit validates every step, uploads new media, then creates or updates
// the record according to the session mode. On success the stored lab report
// is cleared and the wizard starts over. On failure nothing is reset and the
// caller may submit again.
func (w *Wizard) Submit(ctx context.Context) (*Outcome, error) {
	sub, err := w.beginSubmit()
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			notify.Warning(w.deps.Notifier, "Please complete all required fields", "Check the "+verr.Step.String()+" step.")
		}
		return nil, err
	}

	outcome, err := w.runSubmit(ctx, sub)
	if err != nil {
		w.failSubmit(err)
		return nil, err
	}

	w.clearDraft(ctx)
	w.mu.Lock()
	w.resetLocked()
	w.submit = Submitted{Outcome: *outcome}
	w.mu.Unlock()
	w.progress.Dispatch(upload.Reset{})

	if outcome.GemID != "" {
		notify.Success(w.deps.Notifier, "Gem listed successfully", successMessage(w.mode))
	}
	return outcome, nil
}

func (w *Wizard) beginSubmit() (*submission, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, busy := w.submit.(Submitting); busy {
		return nil, ErrSubmitInProgress
	}

	form := w.formLocked()
	for _, step := range Steps {
		if step == StepCertificate && w.mode == ModeEdit && w.skipped {
			continue
		}
		if errs := validate(step, form); len(errs) > 0 {
			w.step = step
			w.errors = errs
			return nil, &ValidationError{Step: step, Fields: errs}
		}
	}
	w.errors = map[string]string{}

	sub := &submission{
		draft:       w.draft.Clone(),
		images:      append([]*media.File(nil), w.images...),
		videos:      append([]*media.File(nil), w.videos...),
		certificate: w.certificate,
		deletedIDs:  append([]string(nil), w.deletedIDs...),
	}
	if w.stored != nil {
		d := *w.stored
		sub.stored = &d
	}
	w.submit = Submitting{}
	return sub, nil
}

func (w *Wizard) runSubmit(ctx context.Context, sub *submission) (*Outcome, error) {
	session, err := w.session()
	if err != nil {
		return nil, err
	}

	mediaFiles, err := w.uploadMedia(ctx, sub)
	if err != nil {
		return nil, err
	}

	payload := models.NewGemPayload(sub.draft, mediaFiles)
	switch w.mode {
	case ModeEdit:
		payload.DeletedMediaIDs = sub.deletedIDs
	case ModeAdmin:
		payload.SellerID = w.sellerID
	}

	fields := logging.WithFields(map[string]interface{}{
		"mode":         w.mode.String(),
		"async":        w.async,
		"reportNumber": sub.draft.ReportNumber,
		"mediaFiles":   len(mediaFiles),
		"userId":       session.UserID,
	})

	outcome := &Outcome{}
	var record *models.GemRecord
	switch {
	case w.mode == ModeEdit:
		record, err = w.deps.Backend.UpdateGem(ctx, w.gemID, payload)
	case w.mode == ModeAdmin:
		record, err = w.deps.Backend.AdminCreateGem(ctx, payload)
	case w.async:
		outcome.JobID, err = w.deps.Backend.SubmitGemAsync(ctx, payload)
	default:
		record, err = w.deps.Backend.CreateGem(ctx, payload)
	}
	if err != nil {
		w.deps.Logger.Error("Gem record request failed", fields, logging.WithField("error", err.Error()))
		return nil, w.recordError(err)
	}

	if outcome.JobID != "" {
		w.deps.Logger.Info("Gem submission queued", fields, logging.WithField("jobId", outcome.JobID))
		if w.deps.Jobs != nil {
			// The job outlives this call
			w.deps.Jobs.Track(context.WithoutCancel(ctx), outcome.JobID, sub.draft.GemType, sub.draft.ReportNumber)
		}
		return outcome, nil
	}

	if record != nil {
		outcome.GemID = record.ID
	}
	if outcome.GemID == "" {
		outcome.GemID = w.gemID
	}
	w.deps.Logger.Info("Gem record saved", fields, logging.WithField("gemId", outcome.GemID))
	return outcome, nil
}

func (w *Wizard) session() (*auth.Session, error) {
	if w.deps.Tokens == nil {
		return nil, &SubmitError{Kind: KindNotAuthenticated, Message: auth.ErrNotAuthenticated.Error(), Cause: auth.ErrNotAuthenticated}
	}
	session, err := w.deps.Tokens.Session()
	if err != nil {
		return nil, &SubmitError{Kind: KindNotAuthenticated, Message: "Please log in to list a gem", Cause: err}
	}
	if w.mode == ModeAdmin && !session.IsAdmin() {
		return nil, &SubmitError{Kind: KindNotAuthenticated, Message: "Admin access is required to create gems for sellers", Cause: auth.ErrNotAuthenticated}
	}
	return session, nil
}

// uploadMedia uploads new images, new videos and a lab report that is not in
// storage yet, in that order. A stored lab report is only referenced.
func (w *Wizard) uploadMedia(ctx context.Context, sub *submission) ([]models.MediaFile, error) {
	files := make([]*media.File, 0, len(sub.images)+len(sub.videos)+1)
	files = append(files, sub.images...)
	files = append(files, sub.videos...)
	if sub.stored == nil && sub.certificate != nil {
		files = append(files, sub.certificate)
	}

	if len(files) == 0 {
		return upload.BuildManifest(nil, sub.stored), nil
	}

	res, err := w.deps.Uploader.Upload(ctx, upload.NewItems(files, ""), sub.stored, w.progress)
	if err != nil {
		kind := KindUpload
		msg := "Failed to upload media. Please try again."
		switch {
		case errors.Is(err, upload.ErrURLIssuance):
			kind = KindURLIssuance
			msg = "Failed to prepare media upload. Please try again."
		case errors.Is(err, upload.ErrImageRejected):
			msg = "One of your images was rejected. Please choose a different photo."
		}
		w.deps.Logger.Error("Media upload failed", logging.WithFields(map[string]interface{}{
			"files": len(files),
			"kind":  string(kind),
			"error": err.Error(),
		}))
		return nil, &SubmitError{Kind: kind, Message: msg, Cause: err}
	}
	return res.Files, nil
}

func (w *Wizard) recordError(err error) *SubmitError {
	msg := gemapi.MessageOf(err)
	if isDuplicateReport(err, msg) {
		return &SubmitError{Kind: KindDuplicateReport, Message: msg, Cause: err}
	}
	if gemapi.IsStatus(err, http.StatusUnauthorized) {
		return &SubmitError{Kind: KindNotAuthenticated, Message: "Your session has expired. Please log in again.", Cause: err}
	}
	return &SubmitError{Kind: KindRecordCreation, Message: msg, Cause: err}
}

// isDuplicateReport recognises a report number conflict. The backend has no
// error code for it, so a 409 or the wording of the message is all there is.
func isDuplicateReport(err error, msg string) bool {
	if gemapi.IsStatus(err, http.StatusConflict) {
		return true
	}
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "report") {
		return false
	}
	return strings.Contains(lower, "already exists") || strings.Contains(lower, "duplicate")
}

func (w *Wizard) failSubmit(err error) {
	w.progress.Dispatch(upload.Reset{})

	var subErr *SubmitError
	isSubmitErr := errors.As(err, &subErr)

	w.mu.Lock()
	w.submit = SubmitFailed{Err: err}
	if isSubmitErr && subErr.Kind == KindDuplicateReport {
		w.step = StepDetails
		w.errors = map[string]string{"reportNumber": subErr.Message}
	}
	w.mu.Unlock()

	msg := err.Error()
	if isSubmitErr {
		msg = subErr.Message
	}
	notify.Error(w.deps.Notifier, "Submission failed", msg)
}

func successMessage(m Mode) string {
	if m == ModeEdit {
		return "Your changes have been saved."
	}
	return "Your gem is now listed."
}
