package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"ledger-server/src/models"
)

// Publisher receives decoded change events.
type Publisher interface {
	Publish(ev models.ChangeEvent)
	Reset(err error)
}

// Listener turns PostgreSQL notifications on one channel into change events.
// It holds a dedicated connection outside the pool and reconnects with
// exponential backoff until its context is cancelled.
type Listener struct {
	connString string
	channel    string
	pub        Publisher
	log        zerolog.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func NewListener(connString, channel string, pub Publisher, log zerolog.Logger) *Listener {
	return &Listener{
		connString: connString,
		channel:    channel,
		pub:        pub,
		log:        log.With().Str("channel", channel).Logger(),
		MinBackoff: 500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

// Run listens until ctx is done. Every reconnect after the first resets the
// publisher, since notifications sent while disconnected are lost.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.MinBackoff
	connectedBefore := false
	for {
		connected, err := l.listen(ctx, connectedBefore)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			connectedBefore = true
			backoff = l.MinBackoff
		}
		l.log.Warn().Err(err).Dur("retry_in", backoff).Msg("Change feed connection lost")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.MaxBackoff {
			backoff = l.MaxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context, reconnect bool) (bool, error) {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("listen: %w", err)
	}
	if reconnect {
		l.pub.Reset(ErrFeedReset)
	}
	l.log.Info().Msg("Listening for transaction changes")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, err
		}
		ev, err := Decode([]byte(n.Payload))
		if err != nil {
			l.log.Error().Err(err).Str("payload", n.Payload).Msg("Discarding malformed change event")
			continue
		}
		l.pub.Publish(ev)
	}
}

// Decode parses one trigger payload.
func Decode(payload []byte) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode change event: %w", err)
	}
	if ev.UserID == 0 {
		return ev, errors.New("change event has no owner")
	}
	switch ev.Op {
	case models.OpInsert, models.OpUpdate:
		if ev.Record == nil {
			return ev, fmt.Errorf("%s event %d has no record", ev.Op, ev.ID)
		}
		if ev.Record.UserID != ev.UserID {
			return ev, fmt.Errorf("%s event %d record owner mismatch", ev.Op, ev.ID)
		}
	case models.OpDelete:
	default:
		return ev, fmt.Errorf("unknown change op %q", ev.Op)
	}
	return ev, nil
}
