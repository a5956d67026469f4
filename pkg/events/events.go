// Package events carries session notifications to renderers and other
// listeners over a watermill pub/sub.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeTreeUpdated is published whenever the tree snapshot changes.
	EventTypeTreeUpdated EventType = "tree-updated"
	// EventTypeStatus is published when the status banner changes.
	EventTypeStatus EventType = "status"
	// EventTypeConversation is published when the session switches to
	// another conversation or the current one is renamed.
	EventTypeConversation EventType = "conversation"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventMetadata struct {
	ID             uuid.UUID `json:"message_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	// Epoch increases every time the session discards its tree.
	Epoch int       `json:"epoch"`
	Time  time.Time `json:"time"`
}

func NewMetadata(conversationID string, epoch int) EventMetadata {
	return EventMetadata{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Epoch:          epoch,
		Time:           time.Now(),
	}
}

func (m EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", m.ID.String())
	e.Str("conversation_id", m.ConversationID)
	e.Int("epoch", m.Epoch)
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// set when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

// EventTreeUpdated describes the new snapshot. Listeners that need the tree
// itself read it from the session.
type EventTreeUpdated struct {
	EventImpl
	Version  int64 `json:"version"`
	Nodes    int   `json:"nodes"`
	InFlight int   `json:"in_flight"`
}

func NewTreeUpdatedEvent(metadata EventMetadata, version int64, nodes, inFlight int) *EventTreeUpdated {
	return &EventTreeUpdated{
		EventImpl: EventImpl{Type_: EventTypeTreeUpdated, Metadata_: metadata},
		Version:   version,
		Nodes:     nodes,
		InFlight:  inFlight,
	}
}

var _ Event = &EventTreeUpdated{}

type EventStatus struct {
	EventImpl
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func NewStatusEvent(metadata EventMetadata, kind, message string) *EventStatus {
	return &EventStatus{
		EventImpl: EventImpl{Type_: EventTypeStatus, Metadata_: metadata},
		Kind:      kind,
		Message:   message,
	}
}

var _ Event = &EventStatus{}

type EventConversation struct {
	EventImpl
	Title string `json:"title"`
}

func NewConversationEvent(metadata EventMetadata, title string) *EventConversation {
	return &EventConversation{
		EventImpl: EventImpl{Type_: EventTypeConversation, Metadata_: metadata},
		Title:     title,
	}
}

var _ Event = &EventConversation{}

func NewEventFromJson(b []byte) (Event, error) {
	var e *EventImpl
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, errors.Wrap(err, "could not decode event")
	}
	if e == nil {
		return nil, errors.New("empty event")
	}

	var ev Event
	switch e.Type_ {
	case EventTypeTreeUpdated:
		ev = &EventTreeUpdated{}
	case EventTypeStatus:
		ev = &EventStatus{}
	case EventTypeConversation:
		ev = &EventConversation{}
	default:
		return nil, errors.Errorf("unknown event type %q", e.Type_)
	}
	if err := json.Unmarshal(b, ev); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s event", e.Type_)
	}
	switch ev := ev.(type) {
	case *EventTreeUpdated:
		ev.payload = b
	case *EventStatus:
		ev.payload = b
	case *EventConversation:
		ev.payload = b
	}
	return ev, nil
}
