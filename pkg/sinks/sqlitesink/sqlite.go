// Package sqlitesink persists the matched set and normalized subscribers
// to a SQLite database with replace semantics per table.
package sqlitesink

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/centrimetry/subrec/pkg/errors"
	"github.com/centrimetry/subrec/pkg/logging"
	"github.com/centrimetry/subrec/pkg/reconcile"
	"github.com/centrimetry/subrec/pkg/subscribers"
)

const schema = `
	CREATE TABLE IF NOT EXISTS subscribers (
		row_key TEXT PRIMARY KEY,
		sub_id  TEXT,
		act_dt  TEXT
	);

	CREATE TABLE IF NOT EXISTS transactions (
		sub_id      TEXT,
		timestamp   TIMESTAMP,
		amount      DECIMAL(10,4),
		channel     TEXT,
		sub_row_key TEXT,
		act_dt      TEXT,
		PRIMARY KEY (sub_id, timestamp)
	);
`

// Store is a SQLite-backed RelationalSink.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the SQLite database at path and ensures
// the schema exists. Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewSinkError("sqlite", "schema", 0, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PersistMatched implements sinks.RelationalSink. Both tables are replaced
// inside a single transaction; on any error the transaction rolls back and
// the prior contents survive untouched.
func (s *Store) PersistMatched(ctx context.Context, subs []subscribers.Record, matched []reconcile.MatchedRecord) error {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewSinkError("sqlite", "", len(matched), err)
	}
	// No-op after a successful commit.
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM subscribers`); err != nil {
		return errors.NewSinkError("sqlite", "subscribers", len(subs), err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return errors.NewSinkError("sqlite", "transactions", len(matched), err)
	}

	insertSub, err := tx.PrepareContext(ctx,
		`INSERT INTO subscribers (row_key, sub_id, act_dt) VALUES (?, ?, ?)`)
	if err != nil {
		return errors.NewSinkError("sqlite", "subscribers", len(subs), err)
	}
	defer insertSub.Close()

	for _, sub := range subs {
		_, err := insertSub.ExecContext(ctx,
			sub.RowKey, sub.ID, sub.ActivationDate.Format(subscribers.DateLayout))
		if err != nil {
			return errors.NewSinkError("sqlite", "subscribers", len(subs), err)
		}
	}

	insertTxn, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (sub_id, timestamp, amount, channel, sub_row_key, act_dt)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewSinkError("sqlite", "transactions", len(matched), err)
	}
	defer insertTxn.Close()

	for _, record := range matched {
		_, err := insertTxn.ExecContext(ctx,
			record.SubscriberID,
			record.FormatTimestamp(),
			record.FormatAmount(),
			record.Channel,
			record.SubRowKey,
			record.ActivationDate.Format(subscribers.DateLayout))
		if err != nil {
			return errors.NewSinkError("sqlite", "transactions", len(matched), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewSinkError("sqlite", "", len(matched), err)
	}

	log.Info().
		Int("subscribers", len(subs)).
		Int("transactions", len(matched)).
		Msg("Replaced relational tables")

	return nil
}
