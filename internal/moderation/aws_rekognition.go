package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/johnrirwin/gemlisting/internal/models"
)

// MaxImageBytes is the largest inline image Rekognition accepts
const MaxImageBytes = 5 * 1024 * 1024

// AWSDetector sends listing photos to Rekognition as inline bytes.
type AWSDetector struct {
	client        *rekognition.Client
	minConfidence float32
}

// NewAWSDetector creates a detector using the ambient AWS credential chain.
func NewAWSDetector(ctx context.Context, region string) (*AWSDetector, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if r := strings.TrimSpace(region); r != "" {
		opts = append(opts, awsconfig.WithRegion(r))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	// Labels under 50% never influence a decision
	return &AWSDetector{client: rekognition.NewFromConfig(cfg), minConfidence: 50}, nil
}

// DetectModerationLabels implements Detector
func (d *AWSDetector) DetectModerationLabels(ctx context.Context, image []byte) ([]models.ModerationLabel, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}

	out, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rekognitiontypes.Image{Bytes: image},
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect moderation labels: %w", err)
	}

	labels := make([]models.ModerationLabel, 0, len(out.ModerationLabels))
	for _, l := range out.ModerationLabels {
		var confidence float64
		if l.Confidence != nil {
			confidence = float64(*l.Confidence)
		}
		labels = append(labels, models.ModerationLabel{
			Name:       aws.ToString(l.Name),
			ParentName: aws.ToString(l.ParentName),
			Confidence: confidence,
		})
	}
	return labels, nil
}
