package journal

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"
	"time"
)

// CSV appends intents and equity snapshots to two files.
type CSV struct {
	mu      sync.Mutex
	intents *csv.Writer
	equity  *csv.Writer
	inf, ef *os.File
}

var (
	intentHeader = []string{"intent_id", "time", "instrument", "qty", "price", "notional", "vote", "target", "owned", "mode", "status", "reason"}
	equityHeader = []string{"time", "balance", "peak", "drawdown", "state"}
)

func NewCSV(intentsPath, equityPath string) (*CSV, error) {
	inf, err := os.Create(intentsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = inf.Close()
		return nil, err
	}

	iw := csv.NewWriter(inf)
	ew := csv.NewWriter(ef)

	if err := iw.Write(intentHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}

	iw.Flush()
	if err := iw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{intents: iw, equity: ew, inf: inf, ef: ef}, nil
}

func (j *CSV) RecordIntent(_ context.Context, in Intent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.intents.Write([]string{
		in.ID,
		in.Time.UTC().Format(time.RFC3339),
		in.Instrument,
		strconv.Itoa(in.Qty),
		f(in.Price),
		in.Notional.StringFixed(2),
		strconv.Itoa(in.Vote),
		strconv.Itoa(in.Target),
		strconv.Itoa(in.Owned),
		string(in.Mode),
		string(in.Status),
		in.Reason,
	})
	if err != nil {
		return err
	}
	j.intents.Flush()
	return j.intents.Error()
}

func (j *CSV) RecordEquity(_ context.Context, e EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.equity.Write([]string{
		e.Time.UTC().Format(time.RFC3339),
		f(e.Balance),
		f(e.Peak),
		f(e.Drawdown),
		e.State,
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.intents.Flush()
	if err := j.intents.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.inf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
