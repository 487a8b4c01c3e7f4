package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/draftstore"
	"github.com/johnrirwin/gemlisting/internal/models"
)

// DraftStore persists the lab report draft in PostgreSQL, one row per key
type DraftStore struct {
	db  *DB
	key string
}

// NewDraftStore creates a draft store using the default draft key
func NewDraftStore(db *DB) *DraftStore {
	return NewDraftStoreWithKey(db, draftstore.Key)
}

// NewDraftStoreWithKey creates a draft store scoped to key
func NewDraftStoreWithKey(db *DB, key string) *DraftStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = draftstore.Key
	}
	return &DraftStore{db: db, key: key}
}

// Save upserts the descriptor, replacing any previous one under the key
func (s *DraftStore) Save(ctx context.Context, d models.StoredCertificateDescriptor) error {
	if d.S3Key == "" {
		return fmt.Errorf("s3 key is required")
	}

	query := `
		INSERT INTO certificate_drafts (draft_key, s3_key, url, file_name, file_size, mime_type, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (draft_key) DO UPDATE SET
			s3_key = EXCLUDED.s3_key,
			url = EXCLUDED.url,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			mime_type = EXCLUDED.mime_type,
			uploaded_at = EXCLUDED.uploaded_at,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, s.key, d.S3Key, d.URL, d.FileName, d.Size, d.MIMEType, d.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save lab report draft: %w", err)
	}
	return nil
}

// Load returns the stored descriptor or nil
func (s *DraftStore) Load(ctx context.Context) (*models.StoredCertificateDescriptor, error) {
	query := `
		SELECT s3_key, url, file_name, file_size, mime_type, uploaded_at
		FROM certificate_drafts
		WHERE draft_key = $1
	`

	var d models.StoredCertificateDescriptor
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(
		&d.S3Key,
		&d.URL,
		&d.FileName,
		&d.Size,
		&d.MIMEType,
		&d.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lab report draft: %w", err)
	}
	d.UploadedAt = d.UploadedAt.UTC()
	return &d, nil
}

// Clear deletes the row for the key
func (s *DraftStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM certificate_drafts WHERE draft_key = $1`, s.key); err != nil {
		return fmt.Errorf("failed to clear lab report draft: %w", err)
	}
	return nil
}

var _ draftstore.Store = (*DraftStore)(nil)
