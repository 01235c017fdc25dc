package models

import "time"

const (
	StateWaiting = "waiting"
	StateServed  = "served"
	StateClosed  = "closed"
)

// QueueEntry tracks the waiting/served/closed lifecycle of one ticket. ServedAt
// is set exactly when Served flips to true; ClosedAt can only follow ServedAt.
type QueueEntry struct {
	ID          int64      `json:"id"`
	TicketCode  int64      `json:"number"`
	ServiceID   int64      `json:"-"`
	ServiceName string     `json:"service"`
	CreatedAt   time.Time  `json:"createdAt"`
	Served      bool       `json:"served"`
	ServedAt    *time.Time `json:"servedAt"`
	CounterID   *int64     `json:"counter,omitempty"`
	ClosedAt    *time.Time `json:"closedAt"`
}

// State derives the lifecycle state from the entry's flags.
func (e QueueEntry) State() string {
	switch {
	case e.ClosedAt != nil:
		return StateClosed
	case e.Served:
		return StateServed
	default:
		return StateWaiting
	}
}

// DayBounds returns the half-open [start, end) window of the calendar day
// containing t, in t's location. Queue reads are scoped to "today" with it.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
