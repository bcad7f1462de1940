package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledger-server/src/api"
	"ledger-server/src/auth"
	"ledger-server/src/db"
	dbsql "ledger-server/src/db/sql"
	"ledger-server/src/feed"
	"ledger-server/src/ledger"
	"ledger-server/src/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the change feed listener",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Configure(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if !ledger.SupportedCurrency(cfg.DefaultCurrency) {
		return fmt.Errorf("DEFAULT_CURRENCY %q is not supported", cfg.DefaultCurrency)
	}
	if !db.ValidChannel(cfg.FeedChannel) {
		return fmt.Errorf("FEED_CHANNEL %q is not a valid channel name", cfg.FeedChannel)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DB connection failed: %w", err)
	}
	defer pool.Close()

	summaries, err := db.NewSummaryCache(10000)
	if err != nil {
		return err
	}
	defer summaries.Close()

	hub := feed.NewHub(feed.DefaultBuffer, log)
	events := auth.NewEvents()
	sessions := ledger.NewRegistry(ledger.RegistryConfig{
		Store:     dbsql.LedgerStore{Pool: pool},
		Snapshots: dbsql.SnapshotStore{Pool: pool},
		Feed:      ledger.FeedFunc(func(owner int64) ledger.Subscription { return hub.Subscribe(owner) }),
		IdleTTL:   cfg.SessionIdleTTL,
		OnChange:  summaries.ClearOwner,
	}, log)

	router := api.NewRouter(api.Deps{
		Users:           dbsql.UserStore{Pool: pool},
		Tokens:          auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Events:          events,
		Sessions:        sessions,
		Summaries:       summaries,
		Hub:             hub,
		Catalog:         cfg.Catalog,
		DefaultCurrency: cfg.DefaultCurrency,
		AllowedOrigins:  cfg.AllowedOrigins,
		ReadOnly:        cfg.ReadOnly,
		Log:             log,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.NewListener(cfg.DatabaseURL, cfg.FeedChannel, hub, log).Run(gctx)
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})
	g.Go(func() error {
		watchSessions(gctx, events, sessions, log)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Bool("read_only", cfg.ReadOnly).Msg("API server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		hub.Close()
		events.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// watchSessions opens a ledger session as soon as a user signs in and
// closes it when they sign out.
func watchSessions(ctx context.Context, events *auth.Events, sessions *ledger.Registry, log zerolog.Logger) {
	ch, stop := events.Subscribe()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Kind {
			case auth.SignedIn:
				go func(owner int64) {
					if _, err := sessions.Get(ctx, owner); err != nil {
						log.Error().Err(err).Int64("user_id", owner).Msg("Failed to preload ledger after sign-in")
					}
				}(ev.UserID)
			case auth.SignedOut:
				sessions.Drop(ev.UserID)
			}
		}
	}
}
