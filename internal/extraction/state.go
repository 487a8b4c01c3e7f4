package extraction

import "github.com/johnrirwin/gemlisting/internal/models"

// State is the lifecycle of one extraction attempt. Exactly one variant is
// held at a time: Idle, InFlight, Succeeded or Failed.
type State interface {
	extractionState()
}

// Idle means no extraction has started for the current certificate
type Idle struct{}

// InFlight is an extraction in progress; Progress covers the file upload
type InFlight struct {
	Progress int
}

// Succeeded holds the metadata of a completed extraction
type Succeeded struct {
	Data models.ExtractedMetadata
}

// Failed holds the user-facing reason an extraction produced nothing
type Failed struct {
	Message string
}

func (Idle) extractionState()      {}
func (InFlight) extractionState()  {}
func (Succeeded) extractionState() {}
func (Failed) extractionState()    {}

// StateOf converts a Result into its terminal State
func StateOf(r Result) State {
	if r.OK() {
		return Succeeded{Data: *r.Metadata}
	}
	return Failed{Message: r.Message}
}
