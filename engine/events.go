package engine

import "time"

type EventType string

const (
	EventIngest EventType = "ingest"
	EventVote   EventType = "vote"
	EventIntent EventType = "intent"
	EventOrder  EventType = "order"
	EventBrake  EventType = "brake"
	EventSkip   EventType = "skip"
	EventArm    EventType = "arm"
)

// Event is published to listeners as the engine works. Fields that do not
// apply to a type are left zero.
type Event struct {
	Type       EventType `json:"type"`
	Time       time.Time `json:"time"`
	Instrument string    `json:"instrument,omitempty"`
	Qty        int       `json:"qty,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Vote       int       `json:"vote,omitempty"`
	Balance    float64   `json:"balance,omitempty"`
	Count      int       `json:"count,omitempty"`
	Armed      bool      `json:"armed,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Listener receives events synchronously on the goroutine running the tick.
// It must not block.
type Listener func(Event)

func (e *Engine) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	e.listenMu.RLock()
	ls := e.listeners
	e.listenMu.RUnlock()
	for _, l := range ls {
		l(ev)
	}
}

// Subscribe adds a listener after construction.
func (e *Engine) Subscribe(l Listener) {
	if l == nil {
		return
	}
	e.listenMu.Lock()
	e.listeners = append(e.listeners[:len(e.listeners):len(e.listeners)], l)
	e.listenMu.Unlock()
}
