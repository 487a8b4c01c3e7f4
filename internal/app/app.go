package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/gemlisting/internal/auth"
	"github.com/johnrirwin/gemlisting/internal/cache"
	"github.com/johnrirwin/gemlisting/internal/config"
	"github.com/johnrirwin/gemlisting/internal/crypto"
	"github.com/johnrirwin/gemlisting/internal/database"
	"github.com/johnrirwin/gemlisting/internal/draftstore"
	"github.com/johnrirwin/gemlisting/internal/extraction"
	"github.com/johnrirwin/gemlisting/internal/gemapi"
	"github.com/johnrirwin/gemlisting/internal/jobs"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/moderation"
	"github.com/johnrirwin/gemlisting/internal/notify"
	"github.com/johnrirwin/gemlisting/internal/upload"
	"github.com/johnrirwin/gemlisting/internal/wizard"
)

// App holds all client dependencies
type App struct {
	Config    *config.Config
	Logger    *logging.Logger
	Cache     cache.Cache
	Tokens    auth.TokenSource
	API       *gemapi.Client
	Drafts    draftstore.Store
	Extractor *extraction.Client
	Uploader  *upload.Orchestrator
	Tracker   *jobs.Tracker
	Notifier  notify.Notifier

	sealer    *crypto.Sealer
	tokenFile *auth.FileTokenStore
	redis     *redis.Client
	db        *database.DB
}

// New creates and initializes a new App instance. Notifications go to out
// and to the log.
func New(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	for _, w := range cfg.Warnings {
		app.Logger.Warn("Configuration value ignored", logging.WithField("reason", w))
	}

	sealer, err := crypto.NewSealerIfConfigured(cfg.Session.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session sealer: %w", err)
	}
	if sealer == nil {
		app.Logger.Debug("No session encryption key configured, local state is stored in plain text")
	}
	app.sealer = sealer

	app.initTokens()
	app.Cache = app.initCache()

	app.API = gemapi.New(gemapi.Config{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		UploadTimeout: cfg.API.UploadTimeout,
	}, app.Tokens, app.Logger)

	drafts, err := app.initDrafts(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Drafts = drafts

	app.Notifier = notify.Multi{notify.NewWriterNotifier(out), notify.NewLogNotifier(app.Logger)}
	app.Extractor = extraction.NewClient(app.API, app.Cache, app.Logger)
	app.Uploader = upload.NewOrchestrator(app.API, app.initScreener(ctx), app.Logger)

	poller := jobs.NewPoller(app.API, cfg.Jobs.PollInterval, cfg.Jobs.Timeout, app.Logger)
	app.Tracker = jobs.NewTracker(poller, app.Notifier, app.Logger)

	return app, nil
}

// Deps returns the collaborators a wizard needs
func (a *App) Deps() wizard.Deps {
	return wizard.Deps{
		Backend:   a.API,
		Extractor: a.Extractor,
		Uploader:  a.Uploader,
		Jobs:      a.Tracker,
		Drafts:    a.Drafts,
		Tokens:    a.Tokens,
		Notifier:  a.Notifier,
		Logger:    a.Logger,
	}
}

// NewWizard starts a listing session, reusing a stored lab report when a
// fresh one exists.
func (a *App) NewWizard(ctx context.Context, opts wizard.Options) *wizard.Wizard {
	w := wizard.New(a.Deps(), opts)
	if _, err := w.Restore(ctx); err != nil {
		a.Logger.Warn("Ignoring unreadable lab report draft", logging.WithField("error", err.Error()))
	}
	return w
}

// SaveToken stores a bearer token for later sessions
func (a *App) SaveToken(token string) error {
	if a.tokenFile == nil {
		return errors.New("a token from the environment is in use; unset GEM_API_TOKEN to store one")
	}
	return a.tokenFile.Save(token)
}

// ClearToken removes the stored bearer token
func (a *App) ClearToken() error {
	if a.tokenFile == nil {
		return nil
	}
	return a.tokenFile.Clear()
}

// Close stops background work and releases connections
func (a *App) Close() {
	if a.Tracker != nil {
		a.Tracker.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Error("Redis close error", logging.WithField("error", err.Error()))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}
	a.Logger.Sync()
}

func (a *App) initTokens() {
	if a.Config.Session.Token != "" {
		a.Logger.Debug("Using session token from environment")
		a.Tokens = auth.NewStaticTokenSource(a.Config.Session.Token)
		return
	}
	a.tokenFile = auth.NewFileTokenStore(a.Config.Session.File, a.sealer, a.Logger)
	a.Tokens = a.tokenFile
}

// redisClient connects once and is shared by the cache and the draft store
func (a *App) redisClient() (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.Config.Cache.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.Config.Cache.RedisAddr, err)
	}
	a.redis = client
	return client, nil
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		client, err := a.redisClient()
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return cache.NewRedisFromClient(client, cache.DefaultPrefix, a.Config.Cache.TTL, a.Logger)
	default:
		a.Logger.Debug("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

// initDrafts picks the lab report draft store. Unlike the cache, a failing
// durable backend is an error: silently dropping drafts would lose uploads.
func (a *App) initDrafts(ctx context.Context) (draftstore.Store, error) {
	switch a.Config.Drafts.Backend {
	case "memory":
		return draftstore.NewMemoryStore(), nil
	case "redis":
		client, err := a.redisClient()
		if err != nil {
			return nil, err
		}
		a.Logger.Info("Using Redis draft store", logging.WithField("addr", a.Config.Cache.RedisAddr))
		return draftstore.NewRedisStore(client), nil
	case "postgres":
		db, err := database.New(database.Config{
			Host:     a.Config.Database.Host,
			Port:     a.Config.Database.Port,
			User:     a.Config.Database.User,
			Password: a.Config.Database.Password,
			Database: a.Config.Database.Database,
			SSLMode:  a.Config.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.db = db
		a.Logger.Info("Using PostgreSQL draft store", logging.WithField("host", a.Config.Database.Host))
		return database.NewDraftStore(db), nil
	case "file", "":
		return draftstore.NewFileStore(a.Config.Drafts.File, a.sealer, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown draft backend %q", a.Config.Drafts.Backend)
	}
}

// initScreener returns nil when screening is off or AWS is not reachable.
// Uploads are never blocked by a missing screener.
func (a *App) initScreener(ctx context.Context) upload.Screener {
	mc := a.Config.Moderation
	if !mc.Enabled {
		return nil
	}
	detector, err := moderation.NewAWSDetector(ctx, mc.AWSRegion)
	if err != nil {
		a.Logger.Warn("Image screening disabled, failed to initialize Rekognition", logging.WithField("error", err.Error()))
		return nil
	}
	a.Logger.Info("Image screening enabled", logging.WithFields(map[string]interface{}{
		"region":           mc.AWSRegion,
		"rejectConfidence": mc.RejectConfidence,
	}))
	return moderation.NewService(detector, mc.RejectConfidence, mc.Timeout, a.Cache, a.Logger)
}
