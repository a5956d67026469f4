package conversation

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ConversationState is an immutable snapshot of the conversation tree.
// Version increases by one for every mutation that changed the tree.
type ConversationState struct {
	ID      string
	Root    *Node
	Version int64
}

// NewConversationState creates an empty state for the given conversation id.
func NewConversationState(id string) *ConversationState {
	return &ConversationState{ID: id}
}

// Apply applies a single mutation and returns the resulting snapshot.
// A mutation whose target is missing leaves the state untouched and
// returns cs itself.
func (cs *ConversationState) Apply(m Mutation) (*ConversationState, error) {
	if cs == nil {
		return nil, errors.New("conversation state is nil")
	}
	if m == nil {
		return cs, errors.New("mutation is nil")
	}
	root, applied, err := m.Apply(cs.Root)
	if err != nil {
		return cs, errors.Wrapf(err, "mutation %s failed", m.Name())
	}
	if !applied {
		log.Debug().
			Str("conversation", cs.ID).
			Str("mutation", m.Name()).
			Msg("mutation target not found, tree unchanged")
		return cs, nil
	}
	return &ConversationState{
		ID:      cs.ID,
		Root:    root,
		Version: cs.Version + 1,
	}, nil
}

// ApplyAll applies multiple mutations sequentially.
func (cs *ConversationState) ApplyAll(muts ...Mutation) (*ConversationState, error) {
	cur := cs
	for _, m := range muts {
		next, err := cur.Apply(m)
		if err != nil {
			return cur, err
		}
		cur = next
	}
	return cur, nil
}

// WithID returns a copy of the state bound to a different conversation id.
func (cs *ConversationState) WithID(id string) *ConversationState {
	return &ConversationState{ID: id, Root: cs.Root, Version: cs.Version + 1}
}

// Find looks up a node by id in the current tree.
func (cs *ConversationState) Find(id NodeID) (*Node, bool) {
	if cs == nil {
		return nil, false
	}
	return Find(cs.Root, id)
}

// Empty reports whether the state holds no tree.
func (cs *ConversationState) Empty() bool {
	return cs == nil || cs.Root == nil
}
