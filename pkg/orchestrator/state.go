// Package orchestrator drives a conversation session: it turns user intents
// and backend results into tree mutations, keeping optimistic placeholders
// for in-flight explorations.
package orchestrator

import (
	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
)

type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the transient banner. Seq identifies the banner so that an
// expiry only clears the banner it was scheduled for.
type Status struct {
	Seq     int
	Kind    StatusKind
	Message string
}

func (s Status) Visible() bool { return s.Message != "" }

// State is the whole application state. It is a value: Update never
// modifies the State it receives.
type State struct {
	Tree *conversation.ConversationState

	Title        string
	SystemPrompt string
	ModelID      string

	// Epoch changes whenever the tree is discarded (reset, load), so results
	// of requests issued against an older tree can be recognized.
	Epoch int
	// InFlight holds the pending explorations by placeholder id.
	InFlight map[conversation.NodeID]Pending
	// Chats counts top-level messages awaiting an answer.
	Chats int
	// Initializing is set while a conversation is being created; messages
	// sent meanwhile wait in Queued.
	Initializing bool
	Queued       []string

	Selected conversation.NodeID

	Conversations []backend.ConversationSummary
	SearchQuery   string
	SearchResults []backend.ConversationSummary

	Status Status
}

// NewState returns the state of a session without a conversation.
func NewState(systemPrompt, modelID string) State {
	return State{
		Tree:         conversation.NewConversationState(""),
		SystemPrompt: systemPrompt,
		ModelID:      modelID,
		InFlight:     map[conversation.NodeID]Pending{},
	}
}

func (s State) ConversationID() string {
	if s.Tree == nil {
		return ""
	}
	return s.Tree.ID
}

// Busy reports whether any request that changes the tree is outstanding.
func (s State) Busy() bool {
	return s.Chats > 0 || len(s.InFlight) > 0 || s.Initializing
}

func (s State) withInFlight(p Pending) State {
	m := make(map[conversation.NodeID]Pending, len(s.InFlight)+1)
	for k, v := range s.InFlight {
		m[k] = v
	}
	m[p.ID] = p
	s.InFlight = m
	return s
}

func (s State) withoutInFlight(id conversation.NodeID) State {
	m := make(map[conversation.NodeID]Pending, len(s.InFlight))
	for k, v := range s.InFlight {
		if k != id {
			m[k] = v
		}
	}
	s.InFlight = m
	return s
}

// discardTree drops the tree and everything in flight against it, including
// a pending conversation creation. Queued messages are kept for the caller.
func (s State) discardTree(conversationID string) State {
	s.Tree = conversation.NewConversationState(conversationID)
	s.Epoch++
	s.InFlight = map[conversation.NodeID]Pending{}
	s.Chats = 0
	s.Initializing = false
	s.Selected = ""
	return s
}
