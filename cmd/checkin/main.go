package main

import (
	"context"
	"errors"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeventeLantos/event-checkin/internal/api"
	"github.com/LeventeLantos/event-checkin/internal/cache"
	"github.com/LeventeLantos/event-checkin/internal/client"
	"github.com/LeventeLantos/event-checkin/internal/config"
	"github.com/LeventeLantos/event-checkin/internal/events"
	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/qr"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/LeventeLantos/event-checkin/internal/scheduler"
	"github.com/LeventeLantos/event-checkin/internal/service"
	"github.com/LeventeLantos/event-checkin/internal/session"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	base := logger.New(cfg.LogLevel, os.Stdout)
	log.Logger = base

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, base); err != nil {
		base.Fatal().Err(err).Msg("event-checkin stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, base zerolog.Logger) error {
	db, err := repo.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := repo.NewSQLRepository(db, cfg.Database.Driver)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var (
		sessions session.Store
		receipts cache.InvitationCache = cache.NopCache{}
	)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		sessions = session.NewRedisStore(rdb, cfg.Session.TTL)
		receipts = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	} else {
		mem := session.NewMemoryStore(cfg.Session.TTL)
		sweeper, err := scheduler.New("session-sweep", cfg.Session.SweepInterval, func(ctx context.Context) error {
			if n := mem.Sweep(ctx); n > 0 {
				base.Debug().Int("removed", n).Msg("expired sessions swept")
			}
			return nil
		}, base)
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
		sessions = mem
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(cfg.NATS.URL, base)
		if err != nil {
			return err
		}
		defer np.Close()
		publisher = np
	}

	var logo image.Image
	if cfg.QR.LogoPath != "" {
		logo, err = qr.LoadLogo(cfg.QR.LogoPath)
		if err != nil {
			base.Warn().Err(err).Str("path", cfg.QR.LogoPath).Msg("logo unavailable, QR codes will be plain")
			logo = nil
		}
	}

	wa := client.NewWhatsAppClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.APIKey, cfg.WhatsApp.SessionID)
	dispatcher := service.NewDispatcher(wa, cfg.Dispatch.BatchSize, cfg.Dispatch.Delay, base)

	auth := service.NewAuthService(store, sessions, base)
	if cfg.Bootstrap.AdminEmail != "" {
		if _, err := auth.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName); err != nil {
			return err
		}
	}

	h := api.NewHandler(api.Deps{
		Events:    store,
		Attendees: store,
		Auth:      auth,
		Invitations: service.NewInvitationService(service.InvitationDeps{
			Events:      store,
			Attendees:   store,
			Composer:    qr.NewComposer(cfg.QR.PublicBaseURL, cfg.QR.Size, logo),
			Dispatcher:  dispatcher,
			Cache:       receipts,
			Publisher:   publisher,
			CountryCode: cfg.WhatsApp.CountryCode,
			Log:         base,
		}),
		Imports:    service.NewImportService(store, store, publisher, base),
		Attendance: service.NewAttendanceService(store, publisher, base),
		SessionTTL: cfg.Session.TTL,
		Log:        base,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           loggingMiddleware(api.Router(h, cfg.Server.AllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
		// A full batch waits between sends, so writes need headroom.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		base.Info().
			Str("addr", cfg.Server.Address).
			Str("db", cfg.Database.Driver).
			Bool("redis", cfg.Redis.Enabled).
			Bool("nats", cfg.NATS.URL != "").
			Int("batch", cfg.Dispatch.BatchSize).
			Dur("delay", cfg.Dispatch.Delay).
			Msg("event-checkin listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	base.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
