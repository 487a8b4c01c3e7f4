package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/johnrirwin/gemlisting/internal/auth"
	"github.com/johnrirwin/gemlisting/internal/cache"
	"github.com/johnrirwin/gemlisting/internal/config"
	"github.com/johnrirwin/gemlisting/internal/draftstore"
	"github.com/johnrirwin/gemlisting/internal/models"
	"github.com/johnrirwin/gemlisting/internal/notify"
	"github.com/johnrirwin/gemlisting/internal/wizard"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		API:     config.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Session: config.SessionConfig{File: filepath.Join(dir, "session")},
		Drafts:  config.DraftConfig{Backend: "file", File: filepath.Join(dir, "draft.json")},
		Cache:   config.CacheConfig{Backend: "memory", TTL: time.Minute},
		Jobs:    config.JobConfig{PollInterval: 10 * time.Millisecond, Timeout: time.Second},
		Logging: config.LoggingConfig{Level: "error"},
	}
}

func TestNew_LocalBackends(t *testing.T) {
	var out bytes.Buffer
	a, err := New(context.Background(), testConfig(t), &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Drafts.(*draftstore.FileStore); !ok {
		t.Errorf("drafts=%T want file store", a.Drafts)
	}
	if _, ok := a.Cache.(*cache.MemoryCache); !ok {
		t.Errorf("cache=%T want memory cache", a.Cache)
	}
	if _, ok := a.Tokens.(*auth.FileTokenStore); !ok {
		t.Errorf("tokens=%T want file token store", a.Tokens)
	}

	notify.Info(a.Notifier, "Hello", "world")
	if !bytes.Contains(out.Bytes(), []byte("world")) {
		t.Errorf("notification not written: %q", out.String())
	}
}

func TestNew_EnvironmentTokenWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Token = "not-a-jwt"
	a, err := New(context.Background(), cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Tokens.(*auth.StaticTokenSource); !ok {
		t.Fatalf("tokens=%T", a.Tokens)
	}
	if err := a.SaveToken("x"); err == nil {
		t.Error("SaveToken should refuse while an environment token is in use")
	}
}

func TestNew_UnknownDraftBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Drafts.Backend = "s3"
	if _, err := New(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown draft backend")
	}
}

func TestNewWizard_RestoresStoredReport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Drafts.Backend = "memory"
	a, err := New(context.Background(), cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	stored := models.StoredCertificateDescriptor{
		S3Key:      "lab-reports/r.pdf",
		URL:        "https://cdn.example/r.pdf",
		FileName:   "r.pdf",
		Size:       10,
		MIMEType:   "application/pdf",
		UploadedAt: time.Now().Add(-time.Hour),
	}
	if err := a.Drafts.Save(ctx, stored); err != nil {
		t.Fatal(err)
	}

	w := a.NewWizard(ctx, wizard.Options{})
	if got := w.StoredCertificate(); got == nil || got.S3Key != stored.S3Key {
		t.Fatalf("stored=%+v", got)
	}
	if !w.IsStepValid(wizard.StepCertificate) {
		t.Error("restored report should satisfy the first step")
	}
}
