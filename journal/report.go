package journal

import (
	"bytes"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// Report summarises a journal window.
type Report struct {
	Start time.Time
	End   time.Time

	Intents   int
	Simulated int
	Accepted  int
	Rejected  int
	Failed    int
	Buys      int
	Sells     int
	Notional  decimal.Decimal

	StartBalance float64
	EndBalance   float64
	MaxDrawdown  float64
	Brakes       int

	ByInstrument []InstrumentSummary
}

type InstrumentSummary struct {
	Instrument string
	Intents    int
	NetQty     int
	Notional   decimal.Decimal
}

// Summarize folds intents and equity snapshots into a Report.
func Summarize(start, end time.Time, intents []Intent, equity []EquitySnapshot) Report {
	r := Report{Start: start, End: end, Notional: decimal.Zero}
	per := map[string]*InstrumentSummary{}

	for _, in := range intents {
		r.Intents++
		switch in.Status {
		case StatusSimulated:
			r.Simulated++
		case StatusAccepted:
			r.Accepted++
		case StatusRejected:
			r.Rejected++
		case StatusFailed:
			r.Failed++
		}
		if in.Qty > 0 {
			r.Buys++
		} else if in.Qty < 0 {
			r.Sells++
		}
		r.Notional = r.Notional.Add(in.Notional)

		s, ok := per[in.Instrument]
		if !ok {
			s = &InstrumentSummary{Instrument: in.Instrument, Notional: decimal.Zero}
			per[in.Instrument] = s
		}
		s.Intents++
		s.NetQty += in.Qty
		s.Notional = s.Notional.Add(in.Notional)
	}

	for i, e := range equity {
		if i == 0 {
			r.StartBalance = e.Balance
		}
		r.EndBalance = e.Balance
		if e.Drawdown > r.MaxDrawdown {
			r.MaxDrawdown = e.Drawdown
		}
		if isBraked(e.State) && (i == 0 || !isBraked(equity[i-1].State)) {
			r.Brakes++
		}
	}

	for _, s := range per {
		r.ByInstrument = append(r.ByInstrument, *s)
	}
	sort.Slice(r.ByInstrument, func(i, j int) bool {
		return r.ByInstrument[i].Instrument < r.ByInstrument[j].Instrument
	})
	return r
}

func isBraked(state string) bool { return strings.EqualFold(state, "braked") }

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
}

// WriteOrg renders the report as an org-mode section.
func (r Report) WriteOrg(w io.Writer) error {
	t, err := template.New("report").Funcs(reportFuncs).Parse(ReportOrgTemplate)
	if err != nil {
		return err
	}
	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

const ReportOrgTemplate = `* JOURNAL {{.Start.Format "2006-01-02"}} .. {{.End.Format "2006-01-02"}}
:PROPERTIES:
:INTENTS:     {{.Intents}}
:SIMULATED:   {{.Simulated}}
:ACCEPTED:    {{.Accepted}}
:REJECTED:    {{.Rejected}}
:FAILED:      {{.Failed}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .MaxDrawdown)}}
:BRAKES:      {{.Brakes}}
:END:

** Orders
- Buys:      *{{.Buys}}*
- Sells:     *{{.Sells}}*
- Notional:  *{{.Notional.StringFixed 2}}*
{{- if .ByInstrument }}

** By Instrument
| Instrument | Intents | Net Qty | Notional |
|------------+---------+---------+----------|
{{- range .ByInstrument }}
| {{.Instrument}} | {{.Intents}} | {{.NetQty}} | {{.Notional.StringFixed 2}} |
{{- end }}
{{- end }}
`
