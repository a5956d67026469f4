package conversation

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// nodeJSON is the wire form of a Node, shared with the REST backend.
// Pending flags only appear on locally held trees.
type nodeJSON struct {
	ID           NodeID      `json:"id"`
	Type         NodeType    `json:"type"`
	Content      string      `json:"content"`
	Children     []*Node     `json:"children"`
	Tokens       *TokenUsage `json:"tokens,omitempty"`
	IsLoading    bool        `json:"isLoading,omitempty"`
	HasError     bool        `json:"hasError,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

func (n *Node) MarshalJSON() ([]byte, error) {
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	return json.Marshal(nodeJSON{
		ID:           n.ID,
		Type:         n.Type,
		Content:      n.Content,
		Children:     children,
		Tokens:       n.Tokens,
		IsLoading:    n.Pending.IsLoading(),
		HasError:     n.Pending.IsError(),
		ErrorMessage: n.Pending.Message,
	})
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var nj nodeJSON
	if err := json.Unmarshal(data, &nj); err != nil {
		return err
	}
	switch nj.Type {
	case NodeTypeQuestion, NodeTypeAnswer:
	default:
		return errors.Errorf("unknown node type %q", nj.Type)
	}

	n.ID = nj.ID
	n.Type = nj.Type
	n.Content = nj.Content
	n.Children = nil
	if len(nj.Children) > 0 {
		n.Children = nj.Children
	}
	n.Tokens = nj.Tokens
	n.Pending = PendingState{}
	switch {
	case nj.HasError:
		n.Pending = Failed(nj.ErrorMessage)
	case nj.IsLoading:
		n.Pending = Loading()
	}
	return nil
}
