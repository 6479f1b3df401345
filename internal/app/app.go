// Package app assembles the render pipeline and its optional collaborators
// from a resolved configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"textoverlay/internal/config"
	"textoverlay/internal/encoder"
	"textoverlay/internal/events"
	"textoverlay/internal/fetch"
	"textoverlay/internal/ledger"
	apperrors "textoverlay/internal/pkg/errors"
	"textoverlay/internal/pkg/logger"
	"textoverlay/internal/ports"
	"textoverlay/internal/render"
	"textoverlay/internal/staging"
	"textoverlay/internal/storage"
)

// App holds the wired service.
type App struct {
	Config   *config.Config
	Area     *staging.Area
	Encoder  *encoder.FFmpeg
	Storage  ports.StorageProvider
	Renderer *render.Renderer

	// Ledger is nil when DATABASE_URL is unset.
	Ledger ledger.Reader
	Pool   *pgxpool.Pool
	Redis  *redis.Client

	// Probes are named in the order the deep health check reports them.
	Probes     map[string]ports.Probe
	ProbeOrder []string

	log     *logger.Logger
	closers []func()
}

// Build connects every configured backend. Postgres and Redis are optional,
// but when configured they must be reachable at startup.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	a := &App{Config: cfg, log: log, Probes: map[string]ports.Probe{}}

	area, err := staging.NewArea(cfg.ScratchDir)
	if err != nil {
		return nil, err
	}
	a.Area = area

	enc := encoder.New(cfg.FFmpegPath, log)
	enc.Preset = cfg.VideoPreset
	enc.CRF = cfg.VideoCRF
	enc.AudioBitrate = cfg.AudioBitrate
	a.Encoder = enc

	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		return nil, apperrors.Wrap(err, "app.Build", "initialize storage provider")
	}
	a.Storage = sp
	log.Info("storage provider initialized", "provider", sp.Provider())

	deps := render.Deps{
		Area: area,
		Fetcher: fetch.NewHTTPFetcher(fetch.Options{
			Timeout:   cfg.DownloadTimeout,
			UserAgent: cfg.DownloadUserAgent,
		}),
		Encoder:   enc,
		Publisher: render.NewStoragePublisher(sp, log),
		Styles:    cfg.Styles,
		FontPath:  cfg.FontPath,
		Log:       log,
	}

	if cfg.DatabaseURL != "" {
		store, err := a.connectLedger(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Recorder = store
		a.Ledger = store
	}

	if cfg.RedisAddr != "" {
		if err := a.connectRedis(ctx); err != nil {
			a.Close()
			return nil, err
		}
		deps.Notifier = events.NewRedisNotifier(a.Redis, cfg.EventsChannel)
	}

	a.Renderer = render.New(deps)
	a.registerProbes()
	return a, nil
}

func (a *App) connectLedger(ctx context.Context) (*ledger.Store, error) {
	a.log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "app.Build", "connect to PostgreSQL")
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "app.Build", "ping PostgreSQL")
	}

	store := ledger.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.log.Info("PostgreSQL connected")
	return store, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	a.log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	a.Redis = rdb
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "app.Build", "ping Redis")
	}
	a.log.Info("Redis connected")
	return nil
}

func (a *App) addProbe(name string, p ports.Probe) {
	a.Probes[name] = p
	a.ProbeOrder = append(a.ProbeOrder, name)
}

func (a *App) registerProbes() {
	a.addProbe("ffmpeg", func(ctx context.Context) (string, error) {
		return a.Encoder.Version(ctx)
	})
	a.addProbe("font", func(context.Context) (string, error) {
		if _, err := os.Stat(a.Config.FontPath); err != nil {
			return "", err
		}
		return a.Config.FontPath, nil
	})
	a.addProbe("scratch", func(context.Context) (string, error) {
		f, err := os.CreateTemp(a.Area.Root(), ".probe-*")
		if err != nil {
			return "", err
		}
		name := f.Name()
		f.Close()
		return a.Area.Root(), os.Remove(name)
	})
	a.addProbe("storage", func(ctx context.Context) (string, error) {
		return a.Storage.Provider(), a.Storage.Check(ctx)
	})
	if a.Pool != nil {
		a.addProbe("postgres", func(ctx context.Context) (string, error) {
			if err := a.Pool.Ping(ctx); err != nil {
				return "", err
			}
			st := a.Pool.Stat()
			return fmtPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns()), nil
		})
	}
	if a.Redis != nil {
		a.addProbe("redis", func(ctx context.Context) (string, error) {
			return "", a.Redis.Ping(ctx).Err()
		})
	}
}

// Close releases backend connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func fmtPoolStats(total, idle, acquired int32) string {
	return fmt.Sprintf("conns=%d idle=%d acquired=%d", total, idle, acquired)
}
