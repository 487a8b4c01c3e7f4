package config

import (
	"flag"
	"io"
	"os"
	"testing"
	"time"
)

func parse(t *testing.T, env map[string]string, args ...string) (*Config, *flag.FlagSet) {
	t.Helper()

	fs := flag.NewFlagSet("gemlist", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := Parse(fs, args, func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg, fs
}

func TestParse_Defaults(t *testing.T) {
	cfg, _ := parse(t, nil)

	if cfg.API.BaseURL != "http://localhost:5000" {
		t.Errorf("API.BaseURL=%q", cfg.API.BaseURL)
	}
	if cfg.Jobs.PollInterval != 2*time.Second {
		t.Errorf("Jobs.PollInterval=%v want=2s", cfg.Jobs.PollInterval)
	}
	if cfg.Jobs.Timeout != 5*time.Minute {
		t.Errorf("Jobs.Timeout=%v want=5m", cfg.Jobs.Timeout)
	}
	if cfg.Drafts.Backend != "file" {
		t.Errorf("Drafts.Backend=%q want=file", cfg.Drafts.Backend)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache=%+v", cfg.Cache)
	}
	if cfg.Moderation.Enabled {
		t.Errorf("expected moderation disabled by default")
	}
	if cfg.Moderation.RejectConfidence != 70 {
		t.Errorf("RejectConfidence=%v want=70", cfg.Moderation.RejectConfidence)
	}
	if cfg.Session.Token != "" || cfg.Session.EncryptionKey != nil {
		t.Errorf("Session=%+v want no token or key", cfg.Session)
	}
}

func TestParse_FlagsAndCommandArgs(t *testing.T) {
	cfg, fs := parse(t, nil, "-api", "http://flag.example/", "-draft-backend", "memory", "-moderation", "submit", "-cert", "a.pdf")

	if cfg.API.BaseURL != "http://flag.example" {
		t.Errorf("API.BaseURL=%q want trailing slash trimmed", cfg.API.BaseURL)
	}
	if cfg.Drafts.Backend != "memory" {
		t.Errorf("Drafts.Backend=%q", cfg.Drafts.Backend)
	}
	if !cfg.Moderation.Enabled {
		t.Error("-moderation should enable screening")
	}
	if got := fs.Args(); len(got) != 3 || got[0] != "submit" {
		t.Errorf("Args()=%v want the command and its flags", got)
	}
}

func TestParse_EnvOverridesFlags(t *testing.T) {
	env := map[string]string{
		"API_BASE_URL":      "https://api.gems.example/",
		"JOB_POLL_INTERVAL": "500ms",
		"JOB_TIMEOUT":       "1m",
		"DRAFT_BACKEND":     "redis",
		"DB_PORT":           "6543",
	}
	cfg, _ := parse(t, env, "-api", "http://flag.example", "-draft-backend", "memory")

	if cfg.API.BaseURL != "https://api.gems.example" {
		t.Errorf("API.BaseURL=%q want trailing slash trimmed env value", cfg.API.BaseURL)
	}
	if cfg.Jobs.PollInterval != 500*time.Millisecond {
		t.Errorf("Jobs.PollInterval=%v", cfg.Jobs.PollInterval)
	}
	if cfg.Jobs.Timeout != time.Minute {
		t.Errorf("Jobs.Timeout=%v", cfg.Jobs.Timeout)
	}
	if cfg.Drafts.Backend != "redis" {
		t.Errorf("Drafts.Backend=%q want=redis", cfg.Drafts.Backend)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port=%d want=6543", cfg.Database.Port)
	}
}

func TestParse_InvalidEnvKeepsCurrentValue(t *testing.T) {
	env := map[string]string{
		"JOB_POLL_INTERVAL":            "soon",
		"JOB_TIMEOUT":                  "-5s",
		"DB_PORT":                      "five",
		"MODERATION_REJECT_CONFIDENCE": "85abc",
		"IMAGE_MODERATION_ENABLED":     "yes-please",
	}
	cfg, _ := parse(t, env, "-job-timeout", "2m", "-db-port", "6543", "-moderation")

	if cfg.Jobs.PollInterval != 2*time.Second {
		t.Errorf("Jobs.PollInterval=%v want default", cfg.Jobs.PollInterval)
	}
	if cfg.Jobs.Timeout != 2*time.Minute {
		t.Errorf("Jobs.Timeout=%v want the flag value", cfg.Jobs.Timeout)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port=%d want the flag value", cfg.Database.Port)
	}
	if !cfg.Moderation.Enabled {
		t.Error("Moderation.Enabled turned off by a malformed env value")
	}
	if cfg.Moderation.RejectConfidence != 70 {
		t.Errorf("RejectConfidence=%v want default", cfg.Moderation.RejectConfidence)
	}
	if len(cfg.Warnings) != len(env) {
		t.Errorf("Warnings=%q want one per ignored variable", cfg.Warnings)
	}
}

func TestApplyEnv_RestoresValueWhenSetFails(t *testing.T) {
	fs := flag.NewFlagSet("gemlist", flag.ContinueOnError)
	port := fs.Int("db-port", 6543, "")

	// No accept guard, so the flag's own parser rejects the value
	err := applyEnv(fs, envBinding{env: "DB_PORT", flag: "db-port"}, "five")
	if err == nil {
		t.Fatal("applyEnv() should fail for a non-numeric port")
	}
	if *port != 6543 {
		t.Errorf("port=%d want 6543 restored", *port)
	}
}

func TestParse_ValidEnvLeavesNoWarnings(t *testing.T) {
	cfg, _ := parse(t, map[string]string{"IMAGE_MODERATION_ENABLED": "1", "DB_PORT": "6000"})
	if !cfg.Moderation.Enabled || cfg.Database.Port != 6000 {
		t.Errorf("Moderation.Enabled=%v Database.Port=%d", cfg.Moderation.Enabled, cfg.Database.Port)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("Warnings=%q", cfg.Warnings)
	}
}

func TestParse_ModerationFromEnv(t *testing.T) {
	env := map[string]string{
		"IMAGE_MODERATION_ENABLED":     "true",
		"MODERATION_REJECT_CONFIDENCE": "85.5",
		"MODERATION_TIMEOUT":           "3s",
		"AWS_REGION":                   "eu-west-1",
	}
	cfg, _ := parse(t, env)

	if !cfg.Moderation.Enabled {
		t.Fatalf("expected moderation enabled")
	}
	if cfg.Moderation.RejectConfidence != 85.5 {
		t.Errorf("RejectConfidence=%v", cfg.Moderation.RejectConfidence)
	}
	if cfg.Moderation.Timeout != 3*time.Second {
		t.Errorf("Timeout=%v", cfg.Moderation.Timeout)
	}
	if cfg.Moderation.AWSRegion != "eu-west-1" {
		t.Errorf("AWSRegion=%q", cfg.Moderation.AWSRegion)
	}
}

func TestParse_SessionSecretsFromEnv(t *testing.T) {
	env := map[string]string{
		"SESSION_ENCRYPTION_KEY": "0123456789abcdef0123456789abcdef",
		"GEM_API_TOKEN":          "tok",
	}
	cfg, _ := parse(t, env)

	if len(cfg.Session.EncryptionKey) != 32 {
		t.Errorf("EncryptionKey len=%d want=32", len(cfg.Session.EncryptionKey))
	}
	if cfg.Session.Token != "tok" {
		t.Errorf("Token=%q", cfg.Session.Token)
	}
}

func TestParse_UnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("gemlist", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, err := Parse(fs, []string{"-no-such-flag"}, func(string) string { return "" }); err == nil {
		t.Error("Parse() should reject an unknown flag")
	}
}

func TestLoad_UsesCommandLine(t *testing.T) {
	oldCommandLine, oldArgs := flag.CommandLine, os.Args
	t.Cleanup(func() {
		flag.CommandLine = oldCommandLine
		os.Args = oldArgs
	})
	flag.CommandLine = flag.NewFlagSet("gemlist", flag.ContinueOnError)
	flag.CommandLine.SetOutput(io.Discard)
	os.Args = []string{"gemlist", "-log-level", "debug", "status", "J1"}
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level=%q", cfg.Logging.Level)
	}
	if flag.NArg() != 2 || flag.Arg(0) != "status" {
		t.Errorf("flag.Args()=%v", flag.Args())
	}
}
