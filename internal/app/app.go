// Package app assembles the booking service from configuration. The API server
// and the seeder share it so both write through the same ledger and lock.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/sheets/v4"

	"github.com/hackgods/clinic-self-booking/internal/api"
	"github.com/hackgods/clinic-self-booking/internal/appointment"
	"github.com/hackgods/clinic-self-booking/internal/clinic"
	"github.com/hackgods/clinic-self-booking/internal/config"
	"github.com/hackgods/clinic-self-booking/internal/db"
	"github.com/hackgods/clinic-self-booking/internal/gcp"
	"github.com/hackgods/clinic-self-booking/internal/ledger"
	"github.com/hackgods/clinic-self-booking/internal/metrics"
	"github.com/hackgods/clinic-self-booking/internal/mirror"
	redisclient "github.com/hackgods/clinic-self-booking/internal/redis"
)

type App struct {
	Service      *appointment.Service
	Metrics      *metrics.BookingMetrics
	Dependencies []api.Dependency

	dispatcher *mirror.Dispatcher
	closers    []func()
	log        zerolog.Logger
}

// New connects the configured ledger, lock and mirrors. reg may be nil to use
// the default Prometheus registry. Close releases everything New opened.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{log: log, Metrics: metrics.NewBookingMetrics(reg)}

	setup, err := clinic.Load(cfg.ClinicFile)
	if err != nil {
		return nil, fmt.Errorf("load clinic setup: %w", err)
	}

	store, err := a.openLedger(ctx, cfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	locker, err := a.openLocker(cfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	mirrors, err := a.openMirrors(ctx, cfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.dispatcher = mirror.NewDispatcher(mirror.Config{
		Workers:   cfg.MirrorWorkers,
		QueueSize: cfg.MirrorQueueSize,
		Timeout:   cfg.MirrorTimeout,
	}, log.With().Str("component", "mirror").Logger(), a.Metrics, mirrors...)

	a.Service = appointment.NewService(appointment.Deps{
		Ledger:         store,
		Catalog:        setup.Catalog,
		Policy:         clinic.NewPolicy(setup.Policy, cfg.Location(), nil),
		Engine:         appointment.NewEngine(setup.Grid, cfg.LegacyDefaultDuration),
		Locker:         locker,
		Publisher:      a.dispatcher,
		Metrics:        a.Metrics,
		Logger:         log.With().Str("component", "booking").Logger(),
		LedgerTimeout:  cfg.LedgerTimeout,
		CalendarEvents: cfg.CalendarEnabled,
	})

	return a, nil
}

type pingLedger interface {
	appointment.Ledger
	api.Pinger
}

func (a *App) openLedger(ctx context.Context, cfg config.Config) (pingLedger, error) {
	var store pingLedger
	switch cfg.LedgerBackend {
	case config.LedgerSheets:
		opts := gcp.ClientOptions(cfg.GoogleCredJSON, cfg.GoogleCredFile, sheets.SpreadsheetsScope)
		sl, err := ledger.NewSheetsLedger(ctx, cfg.SpreadsheetID, cfg.SheetName, opts...)
		if err != nil {
			return nil, err
		}
		store = sl

	case config.LedgerPostgres:
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connection error: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := db.EnsureSchema(pgCtx, pool); err != nil {
			return nil, err
		}
		store = ledger.NewPostgresLedger(pool)

	case config.LedgerMemory:
		a.log.Warn().Msg("using the in-memory ledger; appointments are lost on restart")
		store = ledger.NewMemoryLedger()

	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}

	a.log.Info().Str("backend", cfg.LedgerBackend).Msg("ledger ready")
	a.Dependencies = append(a.Dependencies, api.Dependency{Name: "ledger", Pinger: store, Critical: true})
	return store, nil
}

func (a *App) openLocker(cfg config.Config) (redisclient.Locker, error) {
	switch cfg.BookingLock {
	case config.LockRedis:
		rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("redis connection error: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := rdb.Close(); err != nil {
				a.log.Warn().Err(err).Msg("error closing redis")
			}
		})
		a.Dependencies = append(a.Dependencies, api.Dependency{Name: "redis", Pinger: redisclient.Pinger{Client: rdb}})
		a.log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.LockTTL).Msg("using redis booking lock")
		return redisclient.NewRedisLocker(rdb, cfg.LockTTL), nil

	case config.LockLocal:
		return redisclient.NewLocalLocker(), nil

	case config.LockNone:
		a.log.Warn().Msg("booking lock disabled; concurrent requests may double-book a slot")
		return redisclient.NopLocker{}, nil
	}
	return nil, fmt.Errorf("unknown booking lock %q", cfg.BookingLock)
}

func (a *App) openMirrors(ctx context.Context, cfg config.Config) ([]mirror.Mirror, error) {
	var mirrors []mirror.Mirror

	if cfg.CalendarEnabled {
		opts := gcp.ClientOptions(cfg.GoogleCredJSON, cfg.GoogleCredFile, calendar.CalendarEventsScope)
		cal, err := mirror.NewCalendarMirror(ctx, mirror.CalendarConfig{
			CalendarID:       cfg.CalendarID,
			TimeZone:         cfg.CalendarTimeZone,
			Location:         cfg.CalendarLocation,
			Offset:           cfg.Location(),
			FallbackDuration: cfg.LegacyDefaultDuration,
		}, opts...)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, cal)
	}

	if cfg.NotifyWebhookURL != "" {
		mirrors = append(mirrors, mirror.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyTimeout, a.log))
	}

	for _, m := range mirrors {
		a.log.Info().Str("mirror", m.Name()).Msg("mirror enabled")
	}
	return mirrors, nil
}

// Close drains pending mirror changes within ctx, then closes connections.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.dispatcher != nil {
		if derr := a.dispatcher.Shutdown(ctx); derr != nil {
			err = errors.Join(err, fmt.Errorf("drain mirrors: %w", derr))
		}
	}
	a.closeAll()
	return err
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
