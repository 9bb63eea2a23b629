package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/compose"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/dispatch"
	"github.com/ignite/outreach-engine/internal/engine"
	"github.com/ignite/outreach-engine/internal/feed"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/repository/postgres"
	"github.com/ignite/outreach-engine/internal/service/ledger"
)

// app wires the shared dependencies every command needs: config, the
// ledger store, the run lock backends and the composer.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	redis    *redis.Client
	ledger   *ledger.Service
	composer *compose.Liquid
	loc      *time.Location
}

// parseConfigFlag reads the -config flag shared by all commands and
// returns the remaining positional arguments.
func parseConfigFlag(name string, args []string) (string, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "configuration file")
	if err := fs.Parse(args); err != nil {
		return "", nil, err
	}
	return *configPath, fs.Args(), nil
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, err
	}

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url (or DATABASE_URL) is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	composer, err := compose.NewLiquid(cfg.Templates.Dir, map[string]interface{}{
		"sender_name":      cfg.SES.FromName,
		"sender_signature": cfg.SES.ReplyTo,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	repo := postgres.NewLedgerRepo(db)
	svc := ledger.NewService(repo, cfg.Caps.Limits())

	return &app{
		cfg:      cfg,
		db:       db,
		redis:    redisClient,
		ledger:   svc,
		composer: composer,
		loc:      loc,
	}, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
}

// dispatcher builds the outbound transport: a no-op reporter for dry
// runs, SES otherwise.
func (a *app) dispatcher(ctx context.Context, dryRun bool) (dispatch.Dispatcher, error) {
	if dryRun {
		return &dispatch.DryRun{}, nil
	}
	return dispatch.NewSES(ctx, dispatch.SESOptions{
		Region:      a.cfg.SES.Region,
		AccessKey:   a.cfg.SES.AccessKey,
		SecretKey:   a.cfg.SES.SecretKey,
		FromName:    a.cfg.SES.FromName,
		FromAddress: a.cfg.SES.FromAddress,
		ReplyTo:     a.cfg.SES.ReplyTo,
	})
}

// scheduler assembles the run engine. Dry runs skip the lock and the
// pacing delay; they write nothing, so exclusivity buys nothing.
func (a *app) scheduler(ctx context.Context, dryRun bool) (*engine.Scheduler, error) {
	d, err := a.dispatcher(ctx, dryRun)
	if err != nil {
		return nil, err
	}

	var lock distlock.Lock
	var pacer engine.Pacer
	if !dryRun {
		lock = distlock.New(a.redis, a.db, "outreach:run", a.cfg.Schedule.LockTTL())
		pacer = engine.NewRandomPacer(a.cfg.Pacing.Min(), a.cfg.Pacing.Max())
	}

	return engine.New(engine.Options{
		Ledger:     a.ledger,
		Composer:   a.composer,
		Dispatcher: d,
		Pacer:      pacer,
		Lock:       lock,
		Window: engine.Window{
			Start: a.cfg.Schedule.WindowStartHour,
			End:   a.cfg.Schedule.WindowEndHour,
			Loc:   a.loc,
		},
		DryRun: dryRun,
	}), nil
}

// buildFeed constructs the configured target feed. The returned closer
// is non-nil for file-backed feeds.
func (a *app) buildFeed() (feed.Feed, io.Closer, error) {
	switch a.cfg.Feed.Type {
	case "jsonl":
		if a.cfg.Feed.Path == "" {
			return nil, nil, fmt.Errorf("feed.path is required for the jsonl feed")
		}
		f, err := feed.OpenJSONL(a.cfg.Feed.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case "rss":
		if len(a.cfg.Feed.URLs) == 0 {
			return nil, nil, fmt.Errorf("feed.urls is required for the rss feed")
		}
		resolver, err := newDirectoryResolver(a.cfg.Feed.Path)
		if err != nil {
			return nil, nil, err
		}
		return feed.NewRSS(a.cfg.Feed.URLs, resolver, a.cfg.Feed.Timeout()), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown feed.type %q", a.cfg.Feed.Type)
	}
}

// logReport prints the run outcome at info level.
func logReport(report *engine.Report) {
	if report.OutsideWindow {
		return
	}
	for reason, n := range report.Denied {
		logger.Info("denials", "reason", reason, "count", n)
	}
}
