package sim

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frame is every quote recorded at one instant.
type Frame struct {
	Time   time.Time
	Prices map[string]float64
}

type quoteRow struct {
	time       time.Time
	instrument string
	price      float64
}

// QuoteFeed reads recorded quotes from CSV and yields them grouped by time.
//
// Expected columns:
// time,instrument,price
// A header row is allowed. time is RFC3339 or unix milliseconds. Rows must be
// in chronological order.
type QuoteFeed struct {
	c    io.Closer
	r    *csv.Reader
	line int

	sawFirst bool
	pending  *quoteRow
}

func OpenQuoteFeed(path string) (*QuoteFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	qf := NewQuoteFeed(f)
	qf.c = f
	return qf, nil
}

func NewQuoteFeed(r io.Reader) *QuoteFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &QuoteFeed{r: cr}
}

func (f *QuoteFeed) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// Next returns the next frame. ok is false once the feed is exhausted.
func (f *QuoteFeed) Next() (Frame, bool, error) {
	var fr Frame
	if f.pending != nil {
		fr = Frame{Time: f.pending.time, Prices: map[string]float64{f.pending.instrument: f.pending.price}}
		f.pending = nil
	}

	for {
		row, err := f.read()
		if errors.Is(err, io.EOF) {
			return fr, fr.Prices != nil, nil
		}
		if err != nil {
			return Frame{}, false, err
		}

		switch {
		case fr.Prices == nil:
			fr = Frame{Time: row.time, Prices: map[string]float64{row.instrument: row.price}}
		case row.time.Equal(fr.Time):
			fr.Prices[row.instrument] = row.price
		case row.time.Before(fr.Time):
			return Frame{}, false, fmt.Errorf("line %d: quote at %s is older than %s",
				f.line, row.time.Format(time.RFC3339), fr.Time.Format(time.RFC3339))
		default:
			f.pending = &row
			return fr, true, nil
		}
	}
}

func (f *QuoteFeed) read() (quoteRow, error) {
	for {
		rec, err := f.r.Read()
		if err != nil {
			return quoteRow{}, err
		}
		f.line++

		if !f.sawFirst {
			f.sawFirst = true
			if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "time") {
				continue
			}
		}
		if len(rec) < 3 {
			continue
		}

		ts, err := parseQuoteTime(strings.TrimSpace(rec[0]))
		if err != nil {
			return quoteRow{}, fmt.Errorf("line %d: time: %w", f.line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return quoteRow{}, fmt.Errorf("line %d: price: %w", f.line, err)
		}
		return quoteRow{time: ts, instrument: strings.TrimSpace(rec[1]), price: price}, nil
	}
}

func parseQuoteTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}

// Apply sets the exchange prices from a recorded frame. Instruments seen for
// the first time are listed with available shares on offer. Fills made after
// Apply are stamped with the frame time.
func (e *Engine) Apply(fr Frame, available int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(fr.Prices))
	for name := range fr.Prices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, known := e.available[name]; !known {
			e.specs = append(e.specs, InstrumentSpec{Name: name, Available: available})
			e.available[name] = available
		}
		e.prices.Set(name, fr.Prices[name])
	}

	e.step++
	at := fr.Time
	e.now = func() time.Time { return at }
}
