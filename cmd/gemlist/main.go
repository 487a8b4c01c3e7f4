package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/johnrirwin/gemlisting/internal/app"
	"github.com/johnrirwin/gemlisting/internal/config"
	"github.com/johnrirwin/gemlisting/internal/draftstore"
	"github.com/johnrirwin/gemlisting/internal/extraction"
	"github.com/johnrirwin/gemlisting/internal/matcher"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/wizard"
)

const usage = `usage: gemlist [config flags] <command> [command flags]

commands:
  login <token>   store the bearer token used for API calls
  logout          remove the stored token
  extract <file>  read a lab report and print the matched listing fields
  submit          list a gem (see gemlist submit -h)
  status <jobId>  follow a background submission until it finishes
  draft [clear]   show or discard the stored lab report
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	cfg := config.Load()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, a, flag.Arg(0), flag.Args()[1:])
	a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 1 {
			return errors.New("usage: gemlist login <token>")
		}
		return a.SaveToken(strings.TrimSpace(args[0]))
	case "logout":
		return a.ClearToken()
	case "extract":
		return runExtract(ctx, a, args)
	case "submit":
		return runSubmit(ctx, a, args)
	case "status":
		return runStatus(ctx, a, args)
	case "draft":
		return runDraft(ctx, a, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runExtract(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: gemlist extract <lab-report>")
	}
	file, err := media.FromPath(args[0], models.MediaKindCertificate)
	if err != nil {
		return err
	}
	if err := media.Validate(file); err != nil {
		return err
	}

	result := a.Extractor.FromFile(ctx, file, nil)
	if !result.OK() {
		return errors.New(result.Message)
	}
	draft := models.NewListingDraft()
	matcher.Match(*result.Metadata).Apply(&draft)
	return printJSON(draft)
}

type submitFlags struct {
	cert       string
	images     string
	videos     string
	fields     string
	edit       string
	skipCert   bool
	deleteIDs  string
	admin      bool
	seller     string
	async      bool
	detach     bool
	confirm    bool
	noExtract  bool
	resetDraft bool
}

// editInput is the existing gem an edit starts from, as saved by the web app
type editInput struct {
	GemID string                 `json:"gemId"`
	Draft models.ListingDraft    `json:"draft"`
	Media []models.ExistingMedia `json:"media"`
}

func runSubmit(ctx context.Context, a *app.App, args []string) error {
	var f submitFlags
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.StringVar(&f.cert, "cert", "", "Lab report file (PDF or image)")
	fs.StringVar(&f.images, "images", "", "Comma-separated image files, the first is the primary")
	fs.StringVar(&f.videos, "videos", "", "Comma-separated video files")
	fs.StringVar(&f.fields, "fields", "", "JSON file of listing fields; applied after extraction")
	fs.StringVar(&f.edit, "edit", "", "JSON file of an existing gem to edit")
	fs.BoolVar(&f.skipCert, "skip-cert", false, "Edit without a new lab report")
	fs.StringVar(&f.deleteIDs, "delete-media", "", "Comma-separated existing media ids to remove (edit only)")
	fs.BoolVar(&f.admin, "admin", false, "Create through the admin endpoint")
	fs.StringVar(&f.seller, "seller", "", "Seller id for an admin listing")
	fs.BoolVar(&f.async, "async", false, "Create the gem as a background job")
	fs.BoolVar(&f.detach, "detach", false, "Do not wait for a background job")
	fs.BoolVar(&f.confirm, "confirm", false, "Confirm the listing details are accurate")
	fs.BoolVar(&f.noExtract, "no-extract", false, "Do not pre-fill fields from the lab report")
	fs.BoolVar(&f.resetDraft, "fresh", false, "Discard a stored lab report before starting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	w, err := newSubmitWizard(ctx, a, f)
	if err != nil {
		return err
	}

	if f.cert != "" {
		file, err := media.FromPath(f.cert, models.MediaKindCertificate)
		if err != nil {
			return err
		}
		if err := w.SetCertificate(ctx, file); err != nil {
			return fmt.Errorf("lab report: %w", err)
		}
	}

	switch {
	case f.skipCert:
		if err := w.SkipCertificate(); err != nil {
			return err
		}
	default:
		if f.noExtract {
			w.DisableAutoExtract()
		}
		if !advance(ctx, w) {
			return stepError(w)
		}
	}

	if f.fields != "" {
		data, err := os.ReadFile(f.fields)
		if err != nil {
			return fmt.Errorf("failed to read fields: %w", err)
		}
		var decodeErr error
		// Only keys present in the file replace current values
		w.Update(func(d *models.ListingDraft) { decodeErr = json.Unmarshal(data, d) })
		if decodeErr != nil {
			return fmt.Errorf("failed to parse fields: %w", decodeErr)
		}
	}

	for _, path := range splitList(f.images) {
		file, err := media.FromPath(path, models.MediaKindImage)
		if err != nil {
			return err
		}
		if err := w.AddImage(file); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, path := range splitList(f.videos) {
		file, err := media.FromPath(path, models.MediaKindVideo)
		if err != nil {
			return err
		}
		if err := w.AddVideo(file); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	for _, id := range splitList(f.deleteIDs) {
		if err := w.RemoveExistingMedia(id); err != nil {
			return fmt.Errorf("media %s: %w", id, err)
		}
	}

	if f.confirm {
		w.Update(func(d *models.ListingDraft) { d.Confirmed = true })
	}
	if price, ok := w.SuggestedPricePerCarat(); ok {
		fmt.Printf("Price per carat: %.2f\n", price)
	}

	outcome, err := w.Submit(ctx)
	if err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			return stepError(w)
		}
		return err
	}

	if outcome.GemID != "" {
		fmt.Printf("Gem ID: %s\n", outcome.GemID)
		return nil
	}
	fmt.Printf("Job ID: %s\n", outcome.JobID)
	if f.detach {
		return nil
	}
	a.Tracker.Wait()
	if job, ok := a.Tracker.Job(outcome.JobID); ok {
		return errors.New(job.Progress.Error)
	}
	return nil
}

func newSubmitWizard(ctx context.Context, a *app.App, f submitFlags) (*wizard.Wizard, error) {
	if f.resetDraft {
		if err := a.Drafts.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear lab report draft: %w", err)
		}
	}

	if f.edit == "" {
		return a.NewWizard(ctx, wizard.Options{Admin: f.admin, SellerID: f.seller, Async: f.async}), nil
	}

	data, err := os.ReadFile(f.edit)
	if err != nil {
		return nil, fmt.Errorf("failed to read gem: %w", err)
	}
	var in editInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse gem: %w", err)
	}
	if in.GemID == "" {
		return nil, errors.New("gem to edit has no gemId")
	}
	return wizard.NewEdit(a.Deps(), wizard.EditInitial{GemID: in.GemID, Draft: in.Draft, Media: in.Media}), nil
}

// advance leaves the lab report step, which extracts the report unless disabled
func advance(ctx context.Context, w *wizard.Wizard) bool {
	if !w.Next(ctx) {
		return false
	}
	if failed, ok := w.ExtractionState().(extraction.Failed); ok {
		fmt.Fprintf(os.Stderr, "Extraction: %s\n", failed.Message)
	}
	return true
}

func stepError(w *wizard.Wizard) error {
	errs := w.Errors()
	lines := make([]string, 0, len(errs))
	for field, msg := range errs {
		lines = append(lines, fmt.Sprintf("  %s: %s", field, msg))
	}
	return fmt.Errorf("%s step is incomplete:\n%s", w.Step(), strings.Join(lines, "\n"))
}

func runStatus(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: gemlist status <jobId>")
	}
	jobID := args[0]
	a.Tracker.Track(ctx, jobID, "", "")
	a.Tracker.Wait()
	if job, ok := a.Tracker.Job(jobID); ok {
		return errors.New(job.Progress.Error)
	}
	return nil
}

func runDraft(ctx context.Context, a *app.App, args []string) error {
	if len(args) > 0 && args[0] == "clear" {
		w := a.NewWizard(ctx, wizard.Options{})
		w.Reset(ctx)
		fmt.Println("Lab report draft cleared")
		return nil
	}

	d, err := draftstore.LoadFresh(ctx, a.Drafts, time.Now(), a.Logger)
	if err != nil {
		return err
	}
	if d == nil {
		fmt.Println("No stored lab report")
		return nil
	}
	return printJSON(d)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
