package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/johnrirwin/gemlisting/internal/config"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/moderation"
)

// screen-image runs one listing photo through the same screening used before
// upload. Usage: screen-image [config flags] photo.jpg
func main() {
	cfg := config.Load()
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	path := flag.Arg(0)
	if path == "" {
		path = os.Getenv("IMAGE")
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "image path is required (pass it as an argument or set IMAGE)")
		os.Exit(1)
	}

	file, err := media.FromPath(path, models.MediaKindImage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read image: %v\n", err)
		os.Exit(1)
	}
	if err := media.Validate(file); err != nil {
		fmt.Fprintf(os.Stderr, "invalid image: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	detector, err := moderation.NewAWSDetector(ctx, cfg.Moderation.AWSRegion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize rekognition detector: %v\n", err)
		os.Exit(1)
	}
	screener := moderation.NewService(detector, cfg.Moderation.RejectConfidence, cfg.Moderation.Timeout, nil, logger)

	decision, err := screener.Screen(ctx, file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "screening failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Status: %s\n", decision.Status)
	if decision.Reason != "" {
		fmt.Printf("Reason: %s\n", decision.Reason)
	}
	fmt.Printf("MaxConfidence: %.2f\n", decision.MaxConfidence)
	if len(decision.Labels) == 0 {
		return
	}
	fmt.Println("Labels:")
	for _, l := range decision.Labels {
		if l.ParentName != "" {
			fmt.Printf("  - %s (%s): %.2f\n", l.Name, l.ParentName, l.Confidence)
		} else {
			fmt.Printf("  - %s: %.2f\n", l.Name, l.Confidence)
		}
	}
	if decision.Status == models.ScreeningRejected {
		os.Exit(2)
	}
}
