package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeID identifies a node. Committed ids are assigned by the backend,
// placeholder ids are minted locally with NewPlaceholderID.
type NodeID string

func (id NodeID) String() string {
	return string(id)
}

// PlaceholderPrefix marks ids minted locally for in-flight explorations.
const PlaceholderPrefix = "temp_"

// NewPlaceholderID returns an id of the form temp_<unix-millis>_<7 chars>.
func NewPlaceholderID() NodeID {
	return newPlaceholderID(time.Now())
}

func newPlaceholderID(now time.Time) NodeID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return NodeID(fmt.Sprintf("%s%d_%s", PlaceholderPrefix, now.UnixMilli(), suffix))
}

// IsPlaceholder reports whether id was minted by NewPlaceholderID.
func (id NodeID) IsPlaceholder() bool {
	return strings.HasPrefix(string(id), PlaceholderPrefix)
}

type NodeType string

const (
	NodeTypeQuestion NodeType = "question"
	NodeTypeAnswer   NodeType = "answer"
)

type PendingKind string

const (
	PendingNone    PendingKind = ""
	PendingLoading PendingKind = "loading"
	PendingError   PendingKind = "error"
)

// PendingState is the optimistic status of a question node.
// Loading and Error are mutually exclusive by construction.
type PendingState struct {
	Kind    PendingKind `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
}

func Loading() PendingState {
	return PendingState{Kind: PendingLoading}
}

func Failed(message string) PendingState {
	return PendingState{Kind: PendingError, Message: message}
}

func (p PendingState) IsLoading() bool { return p.Kind == PendingLoading }
func (p PendingState) IsError() bool   { return p.Kind == PendingError }

type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Node is a question or answer in the conversation tree.
//
// A Node is treated as immutable once it is part of a tree: the mutation
// functions in this package return new nodes along the changed path and
// share every other subtree with the input.
type Node struct {
	ID       NodeID
	Type     NodeType
	Content  string
	Children []*Node
	Tokens   *TokenUsage
	Pending  PendingState
}

// NewQuestion returns a question node with the given children.
func NewQuestion(id NodeID, content string, children ...*Node) *Node {
	return &Node{ID: id, Type: NodeTypeQuestion, Content: content, Children: children}
}

// NewAnswer returns an answer node.
func NewAnswer(id NodeID, content string, tokens *TokenUsage) *Node {
	return &Node{ID: id, Type: NodeTypeAnswer, Content: content, Tokens: tokens}
}

// NewPlaceholder returns a loading question node for an in-flight exploration.
func NewPlaceholder(id NodeID, content string) *Node {
	return &Node{ID: id, Type: NodeTypeQuestion, Content: content, Pending: Loading()}
}

func (n *Node) IsQuestion() bool { return n != nil && n.Type == NodeTypeQuestion }
func (n *Node) IsAnswer() bool   { return n != nil && n.Type == NodeTypeAnswer }

// Answer returns the first answer-type child, or nil.
func (n *Node) Answer() *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.IsAnswer() {
			return c
		}
	}
	return nil
}

// WithChildren returns a shallow copy of n with children replaced.
func (n *Node) WithChildren(children []*Node) *Node {
	cp := *n
	cp.Children = children
	return &cp
}

// WithPending returns a shallow copy of n with the pending state replaced.
func (n *Node) WithPending(p PendingState) *Node {
	cp := *n
	cp.Pending = p
	return &cp
}
