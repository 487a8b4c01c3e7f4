package wizard

// AutoExtract guards the automatic extraction on the first move past the
// certificate step. It goes Pending to Attempted once per certificate.
type AutoExtract interface {
	autoExtract()
}

// AutoExtractPending means the current certificate has not been auto-extracted
type AutoExtractPending struct{}

// AutoExtractAttempted means auto-extraction already ran, whatever its outcome
type AutoExtractAttempted struct{}

func (AutoExtractPending) autoExtract()   {}
func (AutoExtractAttempted) autoExtract() {}

// SubmitState is the lifecycle of the submit action
type SubmitState interface {
	submitState()
}

// SubmitIdle means nothing has been submitted yet
type SubmitIdle struct{}

// Submitting means a submission is in progress
type Submitting struct{}

// Submitted holds the result of the last successful submission
type Submitted struct {
	Outcome Outcome
}

// SubmitFailed holds the reason the last submission failed. Submitting again is allowed.
type SubmitFailed struct {
	Err error
}

func (SubmitIdle) submitState()   {}
func (Submitting) submitState()   {}
func (Submitted) submitState()    {}
func (SubmitFailed) submitState() {}
