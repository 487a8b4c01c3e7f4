package models

import "time"

// JobStatus is the lifecycle stage of an asynchronous gem submission
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether polling should stop
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobSteps are the per-phase flags reported by the backend
type JobSteps struct {
	Validating      bool `json:"validating"`
	CreatingGem     bool `json:"creatingGem"`
	ProcessingMedia bool `json:"processingMedia"`
	Finalizing      bool `json:"finalizing"`
}

// JobProgress is a job-status response
type JobProgress struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
	Steps    JobSteps  `json:"steps"`
	Error    string    `json:"error,omitempty"`
	GemID    string    `json:"gemId,omitempty"`
}

// BackgroundJob tracks one accepted asynchronous submission
type BackgroundJob struct {
	JobID        string      `json:"jobId"`
	GemType      string      `json:"gemType"`
	ReportNumber string      `json:"reportNumber"`
	Progress     JobProgress `json:"progress"`
	StartedAt    time.Time   `json:"startedAt"`
}
