package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Type names a domain event
type Type string

const (
	TenancyCreated           Type = "tenancy.created"
	TenancyDeleted           Type = "tenancy.deleted"
	PaymentRecorded          Type = "payment.recorded"
	ExpenseCreated           Type = "expense.created"
	MaintenanceStatusChanged Type = "maintenance.status_changed"
	ReportCompleted          Type = "report.completed"
)

// ErrQueueFull is returned when the producer cannot accept more events
var ErrQueueFull = errors.New("event queue full, event dropped")

// Event is the envelope written to the property-events topic
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	OrgID      uuid.UUID       `json:"org_id"`
	EntityID   string          `json:"entity_id"`
	Actor      string          `json:"actor,omitempty"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// New builds an event. payload may be nil.
func New(t Type, orgID uuid.UUID, entityID, actor, summary string, payload interface{}) (Event, error) {
	ev := Event{
		ID:         uuid.New(),
		Type:       t,
		OrgID:      orgID,
		EntityID:   entityID,
		Actor:      actor,
		Summary:    summary,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Message encodes the event for kafka, keyed by organization so one org's
// events stay ordered within a partition
func (e Event) Message(topic string) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(e.OrgID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "org_id", Value: []byte(e.OrgID.String())},
		},
	}, nil
}

// Decode parses a consumed message
func Decode(msg kafka.Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if ev.ID == uuid.Nil || ev.OrgID == uuid.Nil || ev.Type == "" {
		return Event{}, fmt.Errorf("event at offset %d is missing id, org or type", msg.Offset)
	}
	return ev, nil
}

// Publisher queues events for delivery
type Publisher interface {
	Publish(ev Event) error
	Close() error
}

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(Event) error { return nil }
func (Noop) Close() error        { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every published event, in order
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}
