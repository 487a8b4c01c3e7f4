package models

// ScreeningStatus is the outcome of screening a listing image before upload
type ScreeningStatus string

const (
	ScreeningApproved    ScreeningStatus = "APPROVED"
	ScreeningRejected    ScreeningStatus = "REJECTED"
	ScreeningUnavailable ScreeningStatus = "UNAVAILABLE"
)

// ModerationLabel captures a single Rekognition moderation label.
type ModerationLabel struct {
	Name       string  `json:"name"`
	ParentName string  `json:"parentName,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ScreeningDecision is the client-side decision for one image
type ScreeningDecision struct {
	Status        ScreeningStatus   `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	Labels        []ModerationLabel `json:"labels,omitempty"`
	MaxConfidence float64           `json:"maxConfidence,omitempty"`
}
