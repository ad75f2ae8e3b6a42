package splitter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitfsorg/tiersplit-go/identity"
)

// EventKind classifies an Event.
type EventKind string

const (
	EventPaymentReceived EventKind = "payment_received"
	EventReleaseApproved EventKind = "release_approved"
	EventFundsReleased   EventKind = "funds_released"
	EventPriceUpdated    EventKind = "price_updated"
	EventRoleUpdated     EventKind = "role_updated"
)

// Event is a receipt for a committed state change. Events are only emitted
// after the transaction that produced them has committed.
type Event struct {
	ID       uuid.UUID        `json:"id"`
	Kind     EventKind        `json:"kind"`
	Contract identity.Address `json:"contract"`
	Caller   identity.Address `json:"caller"`
	Time     time.Time        `json:"time"`

	Tier     *Tier             `json:"tier,omitempty"`
	Role     string            `json:"role,omitempty"`
	Account  *identity.Address `json:"account,omitempty"`
	Amount   uint64            `json:"amount,omitempty"`
	JVShare  uint64            `json:"jv_share,omitempty"`
	Bonus    uint64            `json:"bonus,omitempty"`
	Retained uint64            `json:"retained,omitempty"`
}

// EventSink receives committed events.
type EventSink interface {
	Emit(Event)
}

// EventLog is an in-memory EventSink, safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (l *EventLog) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a copy of everything emitted so far.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Kinds returns the kinds of all emitted events in order.
func (l *EventLog) Kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]EventKind, len(l.events))
	for i, e := range l.events {
		kinds[i] = e.Kind
	}
	return kinds
}
