// Package draftstore keeps the one in-progress lab report descriptor so a
// restarted workflow can reuse an uploaded (and already extracted) report.
package draftstore

import (
	"context"
	"time"

	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/models"
)

// Key is the fixed key the descriptor is stored under in keyed backends
const Key = "gemlist:lab-report-draft"

// Store persists at most one StoredCertificateDescriptor. Save overwrites.
// Load returns nil when nothing is stored and does not check expiry.
type Store interface {
	Save(ctx context.Context, d models.StoredCertificateDescriptor) error
	Load(ctx context.Context) (*models.StoredCertificateDescriptor, error)
	Clear(ctx context.Context) error
}

// IsExpired reports whether more than 24h passed between upload and now
func IsExpired(d models.StoredCertificateDescriptor, now time.Time) bool {
	return d.IsExpired(now)
}

// LoadFresh loads the descriptor and clears it when expired, so an expired
// report is never handed back for reuse.
func LoadFresh(ctx context.Context, store Store, now time.Time, logger *logging.Logger) (*models.StoredCertificateDescriptor, error) {
	d, err := store.Load(ctx)
	if err != nil || d == nil {
		return nil, err
	}
	if !IsExpired(*d, now) {
		return d, nil
	}

	if logger != nil {
		logger.Info("Discarding expired lab report draft", logging.WithFields(map[string]interface{}{
			"s3Key":      d.S3Key,
			"uploadedAt": d.UploadedAt,
		}))
	}
	if err := store.Clear(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}
