package models

import "time"

// CertificateDraftTTL is how long a stored lab report may be reused
const CertificateDraftTTL = 24 * time.Hour

// StoredCertificateDescriptor describes a lab report already uploaded to
// object storage, persisted so a restart does not force a re-upload.
type StoredCertificateDescriptor struct {
	S3Key      string    `json:"s3Key"`
	URL        string    `json:"url"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	MIMEType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// IsExpired reports whether more than CertificateDraftTTL has passed since upload
func (d StoredCertificateDescriptor) IsExpired(now time.Time) bool {
	return now.Sub(d.UploadedAt) > CertificateDraftTTL
}
