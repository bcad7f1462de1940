package db

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_login    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS transactions (
	id            BIGSERIAL PRIMARY KEY,
	user_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text          TEXT NOT NULL,
	amount        NUMERIC(14, 2) NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	archive_label TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS transactions_user_archive_idx
	ON transactions (user_id, archive_label);

CREATE TABLE IF NOT EXISTS snapshots (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	label      TEXT NOT NULL,
	data       JSONB NOT NULL,
	total      NUMERIC(14, 2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// The trigger publishes one JSON payload per row change on the feed channel.
// Delete payloads carry only the owner and the id.
const notifyTrigger = `
CREATE OR REPLACE FUNCTION notify_transaction_change() RETURNS trigger AS $$
DECLARE
	payload JSON;
BEGIN
	IF TG_OP = 'DELETE' THEN
		payload := json_build_object('op', TG_OP, 'user_id', OLD.user_id, 'id', OLD.id);
	ELSE
		payload := json_build_object(
			'op', TG_OP,
			'user_id', NEW.user_id,
			'id', NEW.id,
			'record', json_build_object(
				'id', NEW.id,
				'user_id', NEW.user_id,
				'text', NEW.text,
				'amount', NEW.amount,
				'category', NEW.category,
				'type', NEW.type,
				'archive_label', NEW.archive_label,
				'created_at', NEW.created_at
			)
		);
	END IF;
	PERFORM pg_notify('%s', payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS transactions_notify ON transactions;
CREATE TRIGGER transactions_notify
	AFTER INSERT OR UPDATE OR DELETE ON transactions
	FOR EACH ROW EXECUTE FUNCTION notify_transaction_change();
`

// Migrate creates the tables and the change-feed trigger for channel.
func Migrate(ctx context.Context, pool *pgxpool.Pool, channel string) error {
	if !channelName.MatchString(channel) {
		return fmt.Errorf("invalid feed channel name %q", channel)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(notifyTrigger, channel)); err != nil {
		return fmt.Errorf("create notify trigger: %w", err)
	}
	return nil
}

// ValidChannel reports whether name can be used as a LISTEN channel.
func ValidChannel(name string) bool {
	return channelName.MatchString(name)
}
