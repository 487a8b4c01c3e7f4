package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all client configuration
type Config struct {
	API        APIConfig
	Session    SessionConfig
	Drafts     DraftConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Jobs       JobConfig
	Logging    LoggingConfig
	Moderation ModerationConfig

	// Warnings lists environment values that were ignored because they did
	// not parse
	Warnings []string
}

// APIConfig holds the marketplace backend settings
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	// UploadTimeout bounds a single PUT to object storage
	UploadTimeout time.Duration
}

// SessionConfig holds where the bearer token lives
type SessionConfig struct {
	File  string
	Token string // overrides File when set
	// EncryptionKey must be exactly 32 bytes for AES-256 when set.
	// Used to seal the token and the stored lab report descriptor.
	EncryptionKey []byte
}

// DraftConfig holds the lab report draft store settings
type DraftConfig struct {
	Backend string // "file", "memory", "redis" or "postgres"
	File    string
}

// CacheConfig holds extraction cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type JobConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

type LoggingConfig struct {
	Level string
}

// ModerationConfig holds pre-upload image screening settings.
// Screening needs AWS credentials, so it is off unless asked for.
type ModerationConfig struct {
	Enabled          bool
	AWSRegion        string
	RejectConfidence float64
	Timeout          time.Duration
}

// envBinding maps an environment variable onto a registered flag. Values
// that fail the flag's own parsing, or accept, leave the flag untouched.
type envBinding struct {
	env    string
	flag   string
	accept func(string) bool
}

var envBindings = []envBinding{
	{env: "API_BASE_URL", flag: "api"},
	{env: "API_TIMEOUT", flag: "api-timeout", accept: positiveDuration},
	{env: "UPLOAD_TIMEOUT", flag: "upload-timeout", accept: positiveDuration},
	{env: "SESSION_FILE", flag: "session-file"},
	{env: "DRAFT_BACKEND", flag: "draft-backend"},
	{env: "DRAFT_FILE", flag: "draft-file"},
	{env: "CACHE_BACKEND", flag: "cache-backend"},
	{env: "CACHE_TTL", flag: "cache-ttl", accept: positiveDuration},
	{env: "REDIS_ADDR", flag: "redis-addr"},
	{env: "JOB_POLL_INTERVAL", flag: "job-poll-interval", accept: positiveDuration},
	{env: "JOB_TIMEOUT", flag: "job-timeout", accept: positiveDuration},
	{env: "LOG_LEVEL", flag: "log-level"},
	{env: "DB_HOST", flag: "db-host"},
	{env: "DB_PORT", flag: "db-port", accept: positiveInt},
	{env: "DB_USER", flag: "db-user"},
	{env: "DB_PASSWORD", flag: "db-password"},
	{env: "DB_NAME", flag: "db-name"},
	{env: "DB_SSLMODE", flag: "db-sslmode"},
	{env: "IMAGE_MODERATION_ENABLED", flag: "moderation", accept: validBool},
	{env: "AWS_REGION", flag: "aws-region"},
	{env: "MODERATION_REJECT_CONFIDENCE", flag: "moderation-confidence", accept: positiveNumber},
	{env: "MODERATION_TIMEOUT", flag: "moderation-timeout", accept: positiveDuration},
}

// Load parses the process flags and environment. A malformed command line
// exits with status 2 the way the flag package does.
func Load() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// Parse registers the client flags on fs, parses args and then applies
// environment overrides read through getenv. Non-flag arguments remain in
// fs.Args().
func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	register(fs, cfg, defaultConfigDir())

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, b := range envBindings {
		v := strings.TrimSpace(getenv(b.env))
		if v == "" {
			continue
		}
		if err := applyEnv(fs, b, v); err != nil {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring %s=%q: %v", b.env, v, err))
		}
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.Session.Token = getenv("GEM_API_TOKEN")
	if key := getenv("SESSION_ENCRYPTION_KEY"); key != "" {
		cfg.Session.EncryptionKey = []byte(key)
	}
	return cfg, nil
}

// applyEnv sets the bound flag to v. On failure the flag keeps its previous
// value; flag.Value implementations may zero themselves before erroring.
func applyEnv(fs *flag.FlagSet, b envBinding, v string) error {
	if b.accept != nil && !b.accept(v) {
		return errors.New("invalid value")
	}
	f := fs.Lookup(b.flag)
	if f == nil {
		return fmt.Errorf("no flag -%s", b.flag)
	}
	prev := f.Value.String()
	if err := f.Value.Set(v); err != nil {
		_ = f.Value.Set(prev)
		return err
	}
	return nil
}

func register(fs *flag.FlagSet, cfg *Config, dir string) {
	fs.StringVar(&cfg.API.BaseURL, "api", "http://localhost:5000", "Marketplace API base URL")
	fs.DurationVar(&cfg.API.Timeout, "api-timeout", 30*time.Second, "Timeout for API calls")
	fs.DurationVar(&cfg.API.UploadTimeout, "upload-timeout", 10*time.Minute, "Timeout for a single storage upload")

	fs.StringVar(&cfg.Session.File, "session-file", filepath.Join(dir, "session"), "Path of the stored session token")

	fs.StringVar(&cfg.Drafts.Backend, "draft-backend", "file", "Lab report draft store: file, memory, redis or postgres")
	fs.StringVar(&cfg.Drafts.File, "draft-file", filepath.Join(dir, "lab-report-draft.json"), "Path of the stored lab report draft")

	fs.StringVar(&cfg.Cache.Backend, "cache-backend", "memory", "Cache backend: memory or redis")
	fs.DurationVar(&cfg.Cache.TTL, "cache-ttl", time.Hour, "TTL for cached extraction results")
	fs.StringVar(&cfg.Cache.RedisAddr, "redis-addr", "localhost:6379", "Redis server address")

	fs.StringVar(&cfg.Database.Host, "db-host", "localhost", "PostgreSQL host")
	fs.IntVar(&cfg.Database.Port, "db-port", 5432, "PostgreSQL port")
	fs.StringVar(&cfg.Database.User, "db-user", "postgres", "PostgreSQL user")
	fs.StringVar(&cfg.Database.Password, "db-password", "postgres", "PostgreSQL password")
	fs.StringVar(&cfg.Database.Database, "db-name", "gem_listing", "PostgreSQL database name")
	fs.StringVar(&cfg.Database.SSLMode, "db-sslmode", "disable", "PostgreSQL SSL mode")

	fs.DurationVar(&cfg.Jobs.PollInterval, "job-poll-interval", 2*time.Second, "Interval between job status polls")
	fs.DurationVar(&cfg.Jobs.Timeout, "job-timeout", 5*time.Minute, "Give up on a background job after this long")

	fs.StringVar(&cfg.Logging.Level, "log-level", "info", "Log level (debug, info, warn, error)")

	fs.BoolVar(&cfg.Moderation.Enabled, "moderation", false, "Screen images with AWS Rekognition before upload")
	fs.StringVar(&cfg.Moderation.AWSRegion, "aws-region", "", "AWS region for image screening")
	fs.Float64Var(&cfg.Moderation.RejectConfidence, "moderation-confidence", 70, "Reject images with a moderation label at or above this confidence")
	fs.DurationVar(&cfg.Moderation.Timeout, "moderation-timeout", 5*time.Second, "Timeout for screening one image")
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "gemlist")
	}
	return ".gemlist"
}

func positiveDuration(v string) bool {
	d, err := time.ParseDuration(v)
	return err == nil && d > 0
}

func positiveInt(v string) bool {
	n, err := strconv.Atoi(v)
	return err == nil && n > 0
}

func validBool(v string) bool {
	_, err := strconv.ParseBool(v)
	return err == nil
}

func positiveNumber(v string) bool {
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && f > 0
}
