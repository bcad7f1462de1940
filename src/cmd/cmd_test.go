package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ledger-server/src/auth"
	"ledger-server/src/ledger"
	"ledger-server/src/models"
)

type emptyStore struct{}

var errUnused = errors.New("not used in this test")

func (emptyStore) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return nil, nil
}

func (emptyStore) CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	return nil, errUnused
}

func (emptyStore) DeleteTransaction(ctx context.Context, userID, id int64) error { return errUnused }

func (emptyStore) RelabelCurrent(ctx context.Context, userID int64, label string) (int64, error) {
	return 0, errUnused
}

func (emptyStore) DeletePartition(ctx context.Context, userID int64, label *string) (int64, error) {
	return 0, errUnused
}

func TestWatchSessions(t *testing.T) {
	events := auth.NewEvents()
	sessions := ledger.NewRegistry(ledger.RegistryConfig{Store: emptyStore{}}, zerolog.Nop())
	defer sessions.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchSessions(ctx, events, sessions, zerolog.Nop())
		close(done)
	}()

	// The watcher subscribes on its own goroutine, so keep announcing until
	// it reacts.
	waitFor := func(what string, ev auth.Event, cond func() bool) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s", what)
			}
			events.Emit(ev)
			time.Sleep(10 * time.Millisecond)
		}
	}
	waitFor("session to open", auth.Event{Kind: auth.SignedIn, UserID: 3}, func() bool { return sessions.Len() == 1 })
	waitFor("session to close", auth.Event{Kind: auth.SignedOut, UserID: 3}, func() bool { return sessions.Len() == 0 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watchSessions did not stop on cancel")
	}
}

func TestRootCommand(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate"} {
		if !names[want] {
			t.Errorf("missing %s subcommand", want)
		}
	}
	for _, flag := range []string{"env", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestLoadConfigVerbose(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("LOG_LEVEL", "warn")
	verbose = true
	defer func() { verbose = false }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}
