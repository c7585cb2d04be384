package eav

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a store event.
type EventType string

const (
	EventAttributeSaved     EventType = "attribute:saved"
	EventAttributeRejected  EventType = "attribute:rejected"
	EventMemberCreated      EventType = "member:created"
	EventMemberDeleted      EventType = "member:deleted"
	EventSheetSaved         EventType = "sheet:saved"
	EventSheetDeleted       EventType = "sheet:deleted"
	EventConfigurationSaved EventType = "configuration:saved"
)

// Event describes a completed write.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix milliseconds.
	Actor     int64     `json:"actor"`
	SheetID   int64     `json:"sheetId,omitempty"`
	MemberID  int64     `json:"memberId,omitempty"`
	Attribute string    `json:"attribute,omitempty"`
	Value     any       `json:"value,omitempty"`
	// Messages holds the validation messages of a rejected write.
	Messages []string `json:"messages,omitempty"`
}

// EventCallback receives events of the type it subscribed to.
type EventCallback func(ctx context.Context, event Event) error

type subscription struct {
	event       EventType
	unsubscribe func()
}

func (r *Request) emit(event Event) {
	event.Timestamp = time.Now().UnixMilli()
	event.Actor = r.actor
	if r.store.bus != nil {
		r.store.bus.Emit(string(event.Type), event)
	}
}

// Subscribe registers callback for events of the given type and returns an
// id for Unsubscribe.
func (s *Store) Subscribe(event EventType, callback EventCallback) string {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	unsubscribe := s.bus.Subscribe(string(event), callback)
	id := uuid.New().String()
	s.subscriptions[id] = subscription{event: event, unsubscribe: unsubscribe}
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (s *Store) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if sub, ok := s.subscriptions[id]; ok {
		sub.unsubscribe()
		delete(s.subscriptions, id)
	}
}
