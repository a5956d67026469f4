package orchestrator

import (
	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
)

// Pending is an exploration whose placeholder is in the tree.
type Pending struct {
	ID       conversation.NodeID
	ParentID conversation.NodeID
	Prompt   string
	// ConversationID is the conversation the request was sent to.
	ConversationID string
}

// Node returns the loading placeholder shown while the request is in flight.
func (p Pending) Node() *conversation.Node {
	return conversation.NewPlaceholder(p.ID, p.Prompt)
}

// Insert attaches the placeholder under its parent.
func (p Pending) Insert() conversation.Mutation {
	return conversation.MutateAttachChild(p.ParentID, p.Node())
}

// Resolve settles the exploration with the committed question and answer.
func (p Pending) Resolve(res *backend.MessageResult) Settlement {
	return Committed{Pending: p, Node: res.Node(p.Prompt)}
}

// Fail settles the exploration with an error marker.
func (p Pending) Fail(reason string) Settlement {
	return Failed{Pending: p, Reason: reason}
}

// Settlement is the final outcome of a Pending exploration: Committed or
// Failed. Both replace the placeholder by id.
type Settlement interface {
	Placeholder() Pending
	Mutation() conversation.Mutation
}

type Committed struct {
	Pending Pending
	Node    *conversation.Node
}

func (c Committed) Placeholder() Pending { return c.Pending }

func (c Committed) Mutation() conversation.Mutation {
	return conversation.MutateReplaceNode(c.Pending.ID, c.Node)
}

type Failed struct {
	Pending Pending
	Reason  string
}

func (f Failed) Placeholder() Pending { return f.Pending }

func (f Failed) Mutation() conversation.Mutation {
	return conversation.MutateReplaceNode(f.Pending.ID, f.Pending.Node().WithPending(conversation.Failed(f.Reason)))
}
