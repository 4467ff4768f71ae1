package journal

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordIntent(ctx context.Context, in Intent) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO intents
		(intent_id, time, instrument, qty, price, notional, vote, target, owned, mode, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Time.UTC(), in.Instrument, in.Qty, in.Price, in.Notional.String(),
		in.Vote, in.Target, in.Owned, string(in.Mode), string(in.Status), in.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(ctx context.Context, e EquitySnapshot) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO equity
		(time, balance, peak, drawdown, state)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Balance, e.Peak, e.Drawdown, e.State,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
