package moderation

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johnrirwin/gemlisting/internal/cache"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/testutil"
)

func TestServiceDecide(t *testing.T) {
	cases := map[string]struct {
		labels    []models.ModerationLabel
		detectErr error
		reject    float64
		want      models.ScreeningStatus
		peak      float64
	}{
		"clean photo": {
			reject: 80,
			want:   models.ScreeningApproved,
		},
		"weak label passes": {
			labels: []models.ModerationLabel{{Name: "Revealing Clothes", Confidence: 61.5}},
			reject: 80,
			want:   models.ScreeningApproved,
			peak:   61.5,
		},
		"strongest label decides": {
			labels: []models.ModerationLabel{
				{Name: "Hate Symbols", Confidence: 12.5},
				{Name: "Graphic Violence", Confidence: 93.8},
				{Name: "Drugs", Confidence: 80.1},
			},
			reject: 80,
			want:   models.ScreeningRejected,
			peak:   93.8,
		},
		"zero threshold falls back to seventy": {
			labels: []models.ModerationLabel{{Name: "Alcohol", Confidence: 70}},
			want:   models.ScreeningRejected,
			peak:   70,
		},
		"detector failure": {
			detectErr: errors.New("ProvisionedThroughputExceededException"),
			reject:    80,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewService(&StaticDetector{Labels: tc.labels, Err: tc.detectErr}, tc.reject, time.Second, nil, testutil.NullLogger())

			decision, err := svc.Decide(context.Background(), []byte("photo"))
			if tc.detectErr != nil {
				if !errors.Is(err, tc.detectErr) {
					t.Fatalf("Decide() error = %v, want %v", err, tc.detectErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if decision.Status != tc.want || decision.MaxConfidence != tc.peak {
				t.Errorf("Decide() = %s at %v, want %s at %v", decision.Status, decision.MaxConfidence, tc.want, tc.peak)
			}
		})
	}
}

func TestServiceScreen_ReadsFile(t *testing.T) {
	detector := &StaticDetector{Labels: []models.ModerationLabel{{Name: "Hate Symbols", Confidence: 91}}}
	svc := NewService(detector, 70, time.Second, nil, testutil.NullLogger())

	file := media.FromBytes("ruby.jpg", "image/jpeg", models.MediaKindImage, []byte("\xff\xd8\xff\xe0jpeg"))
	decision, err := svc.Screen(context.Background(), file)
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if decision.Status != models.ScreeningRejected {
		t.Errorf("status=%s", decision.Status)
	}
}

func TestServiceScreen_OversizedImageIsNotSent(t *testing.T) {
	detector := &StaticDetector{}
	svc := NewService(detector, 70, time.Second, nil, testutil.NullLogger())

	big := bytes.Repeat([]byte{0xff}, MaxImageBytes+1)
	decision, err := svc.Screen(context.Background(), media.FromBytes("huge.jpg", "image/jpeg", models.MediaKindImage, big))
	if err != nil {
		t.Fatalf("Screen: %v", err)
	}
	if decision.Status != models.ScreeningUnavailable || detector.Calls != 0 {
		t.Errorf("status=%s calls=%d", decision.Status, detector.Calls)
	}
}

func TestServiceDecide_CachesByContent(t *testing.T) {
	decisions := cache.NewMemory(time.Hour)

	detector := &StaticDetector{Labels: []models.ModerationLabel{{Name: "Suggestive", Confidence: 12}}}
	svc := NewService(detector, 70, time.Second, decisions, testutil.NullLogger())

	for i := 0; i < 3; i++ {
		d, err := svc.Decide(context.Background(), []byte("same photo"))
		if err != nil || d.Status != models.ScreeningApproved {
			t.Fatalf("Decide=%+v, %v", d, err)
		}
	}
	if detector.Calls != 1 {
		t.Errorf("calls=%d want=1", detector.Calls)
	}

	if _, err := svc.Decide(context.Background(), []byte("another photo")); err != nil {
		t.Fatal(err)
	}
	if detector.Calls != 2 {
		t.Errorf("calls=%d want=2", detector.Calls)
	}
}

type slowDetector struct{}

func (slowDetector) DetectModerationLabels(ctx context.Context, image []byte) ([]models.ModerationLabel, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestServiceDecide_Timeout(t *testing.T) {
	svc := NewService(slowDetector{}, 70, 10*time.Millisecond, nil, testutil.NullLogger())

	_, err := svc.Decide(context.Background(), []byte("abc"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
}
