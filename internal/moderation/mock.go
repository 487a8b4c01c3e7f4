package moderation

import (
	"context"

	"github.com/johnrirwin/gemlisting/internal/models"
)

// StaticDetector returns fixed labels, for tests and offline runs
type StaticDetector struct {
	Labels []models.ModerationLabel
	Err    error
	Calls  int
}

// DetectModerationLabels implements Detector
func (d *StaticDetector) DetectModerationLabels(ctx context.Context, image []byte) ([]models.ModerationLabel, error) {
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Labels, nil
}
