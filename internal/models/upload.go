package models

// MediaKind classifies a file within a listing
type MediaKind string

const (
	MediaKindImage       MediaKind = "image"
	MediaKindVideo       MediaKind = "video"
	MediaKindCertificate MediaKind = "certificate"
)

// Valid reports whether the kind is one the backend accepts
func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindImage, MediaKindVideo, MediaKindCertificate:
		return true
	}
	return false
}

// UploadTask is one file of a submission batch. It is never persisted.
type UploadTask struct {
	ID       string    `json:"id"`
	FileName string    `json:"fileName"`
	MIMEType string    `json:"mimeType"`
	Size     int64     `json:"size"`
	Kind     MediaKind `json:"kind"`
	GroupID  string    `json:"groupId"`

	// Set once the backend issues a target
	UploadURL string `json:"uploadUrl,omitempty"`
	S3Key     string `json:"s3Key,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
}

// UploadURLRequest is one entry of a generate-upload-urls call
type UploadURLRequest struct {
	FileName  string    `json:"fileName"`
	FileType  string    `json:"fileType"`
	FileSize  int64     `json:"fileSize"`
	MediaType MediaKind `json:"mediaType"`
	GemID     string    `json:"gemId"`
}

// UploadTarget is a pre-signed destination issued by the backend
type UploadTarget struct {
	FileName  string    `json:"fileName"`
	UploadURL string    `json:"uploadUrl"`
	S3Key     string    `json:"s3Key"`
	MediaType MediaKind `json:"mediaType"`
	FileURL   string    `json:"fileUrl,omitempty"`
}

// MediaFile is one entry of the media manifest sent with a gem record
type MediaFile struct {
	S3Key     string    `json:"s3Key"`
	Type      MediaKind `json:"type"`
	FileName  string    `json:"filename"`
	FileSize  int64     `json:"fileSize"`
	MIMEType  string    `json:"mimeType"`
	IsPrimary bool      `json:"isPrimary"`
	Order     int       `json:"order"`
}

// ExistingMedia is media already attached to a gem being edited
type ExistingMedia struct {
	ID        string    `json:"id"`
	Type      MediaKind `json:"type"`
	URL       string    `json:"url"`
	S3Key     string    `json:"s3Key,omitempty"`
	FileName  string    `json:"filename,omitempty"`
	IsPrimary bool      `json:"isPrimary,omitempty"`
}
