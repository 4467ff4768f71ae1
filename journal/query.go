package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

const intentColumns = `intent_id, time, instrument, qty, price, notional, vote, target, owned, mode, status, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanIntent(s scanner) (Intent, error) {
	var (
		rec      Intent
		notional string
		mode     string
		status   string
	)
	err := s.Scan(
		&rec.ID,
		&rec.Time,
		&rec.Instrument,
		&rec.Qty,
		&rec.Price,
		&notional,
		&rec.Vote,
		&rec.Target,
		&rec.Owned,
		&mode,
		&status,
		&rec.Reason,
	)
	if err != nil {
		return Intent{}, err
	}
	rec.Notional, err = decimal.NewFromString(notional)
	if err != nil {
		return Intent{}, fmt.Errorf("intent %s notional: %w", rec.ID, err)
	}
	rec.Mode = Mode(mode)
	rec.Status = Status(status)
	return rec, nil
}

// GetIntent returns a single intent by ID.
func (j *SQLite) GetIntent(ctx context.Context, intentID string) (Intent, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+intentColumns+`
		FROM intents
		WHERE intent_id = ?`, intentID)

	rec, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Intent{}, fmt.Errorf("intent %q: %w", intentID, ErrNotFound)
		}
		return Intent{}, err
	}
	return rec, nil
}

// ListIntentsBetween returns intents whose time is within [start, end).
func (j *SQLite) ListIntentsBetween(ctx context.Context, start, end time.Time) ([]Intent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+intentColumns+`
		FROM intents
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, intent_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Intent
	for rows.Next() {
		rec, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns equity snapshots within [start, end).
func (j *SQLite) ListEquityBetween(ctx context.Context, start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, balance, peak, drawdown, state
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC;`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var rec EquitySnapshot
		if err := rows.Scan(
			&rec.Time,
			&rec.Balance,
			&rec.Peak,
			&rec.Drawdown,
			&rec.State,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
