// Package moderation screens listing photos before they are uploaded.
package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/johnrirwin/gemlisting/internal/cache"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
)

const (
	DefaultRejectConfidence = 70
	DefaultTimeout          = 5 * time.Second
)

// Detector returns the moderation labels found in an image
type Detector interface {
	DetectModerationLabels(ctx context.Context, image []byte) ([]models.ModerationLabel, error)
}

// Service turns detector labels into screening decisions
type Service struct {
	detector         Detector
	rejectConfidence float64
	timeout          time.Duration
	decisions        cache.Cache
	logger           *logging.Logger
}

// NewService creates a screening service. decisions may be nil; when set,
// decisions are remembered by image content hash.
func NewService(detector Detector, rejectConfidence float64, timeout time.Duration, decisions cache.Cache, logger *logging.Logger) *Service {
	if rejectConfidence <= 0 {
		rejectConfidence = DefaultRejectConfidence
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		detector:         detector,
		rejectConfidence: rejectConfidence,
		timeout:          timeout,
		decisions:        decisions,
		logger:           logger,
	}
}

// Decide screens raw image bytes
func (s *Service) Decide(ctx context.Context, image []byte) (*models.ScreeningDecision, error) {
	if len(image) > MaxImageBytes {
		return &models.ScreeningDecision{Status: models.ScreeningUnavailable, Reason: "Image too large to screen"}, nil
	}

	key := decisionKey(image)
	if d, ok := s.cached(key); ok {
		return d, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	labels, err := s.detector.DetectModerationLabels(ctx, image)
	if err != nil {
		return nil, err
	}

	decision := &models.ScreeningDecision{Status: models.ScreeningApproved, Reason: "Approved", Labels: labels}
	for _, l := range labels {
		if l.Confidence > decision.MaxConfidence {
			decision.MaxConfidence = l.Confidence
		}
		if l.Confidence >= s.rejectConfidence {
			decision.Status = models.ScreeningRejected
			decision.Reason = fmt.Sprintf("Not allowed: %s", l.Name)
		}
	}

	s.remember(key, decision)
	return decision, nil
}

// Screen reads an image file and screens it
func (s *Service) Screen(ctx context.Context, file *media.File) (*models.ScreeningDecision, error) {
	if file.Size > MaxImageBytes {
		return &models.ScreeningDecision{Status: models.ScreeningUnavailable, Reason: "Image too large to screen"}, nil
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	image, err := io.ReadAll(io.LimitReader(rc, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
	}

	decision, err := s.Decide(ctx, image)
	if err != nil {
		return nil, err
	}
	if decision.Status == models.ScreeningRejected {
		s.logger.Warn("Image rejected by screening", logging.WithFields(map[string]interface{}{
			"file":          file.Name,
			"reason":        decision.Reason,
			"maxConfidence": decision.MaxConfidence,
		}))
	}
	return decision, nil
}

func (s *Service) cached(key string) (*models.ScreeningDecision, bool) {
	var d models.ScreeningDecision
	if !cache.GetJSON(s.decisions, key, &d) {
		return nil, false
	}
	return &d, true
}

func (s *Service) remember(key string, d *models.ScreeningDecision) {
	if err := cache.SetJSON(s.decisions, key, d); err != nil && s.logger != nil {
		s.logger.Debug("Failed to cache screening decision", logging.WithField("error", err.Error()))
	}
}

func decisionKey(image []byte) string {
	sum := sha256.Sum256(image)
	return "screening:" + hex.EncodeToString(sum[:])
}
