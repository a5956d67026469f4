package flowchart

import (
	"github.com/Yiozolm/Knode/pkg/conversation"
)

// QAPair is one box of the diagram: a question together with its answer.
//
// Children holds the exploration questions hanging off the pair, which are
// the answer's question children followed by the question's own non-answer
// children. X and Y are filled in by Layout.
type QAPair struct {
	ID       conversation.NodeID
	Question *conversation.Node
	Answer   *conversation.Node
	Children []*conversation.Node
	Level    int
	Parent   *QAPair

	Loading      bool
	Error        bool
	ErrorMessage string

	X float64
	Y float64
}

// Flatten walks the tree in pre-order and returns one QAPair per question
// node, each exploration child emitted right after its parent pair.
//
// A root that is not a question still yields a pair (without Question) so
// that its question children stay reachable.
func Flatten(tree *conversation.Node) []*QAPair {
	if tree == nil {
		return nil
	}
	var out []*QAPair
	var visit func(n *conversation.Node, level int, parent *QAPair)
	visit = func(n *conversation.Node, level int, parent *QAPair) {
		pair := &QAPair{
			ID:           n.ID,
			Level:        level,
			Parent:       parent,
			Loading:      n.Pending.IsLoading(),
			Error:        n.Pending.IsError(),
			ErrorMessage: n.Pending.Message,
		}
		if n.IsQuestion() {
			pair.Question = n
		}
		pair.Answer = n.Answer()
		pair.Children = explorationChildren(n, pair.Answer)
		out = append(out, pair)

		for _, c := range pair.Children {
			visit(c, level+1, pair)
		}
	}
	visit(tree, 0, nil)
	return out
}

func explorationChildren(n *conversation.Node, answer *conversation.Node) []*conversation.Node {
	var children []*conversation.Node
	if answer != nil {
		for _, c := range answer.Children {
			if c.IsQuestion() {
				children = append(children, c)
			}
		}
	}
	for _, c := range n.Children {
		if !c.IsAnswer() {
			children = append(children, c)
		}
	}
	return children
}

// Index maps pair ids to pairs.
func Index(pairs []*QAPair) map[conversation.NodeID]*QAPair {
	idx := make(map[conversation.NodeID]*QAPair, len(pairs))
	for _, p := range pairs {
		if _, ok := idx[p.ID]; !ok {
			idx[p.ID] = p
		}
	}
	return idx
}

// FindByNode returns the pair that shows the node with the given id, either
// as its question or as its answer.
func FindByNode(pairs []*QAPair, id conversation.NodeID) (*QAPair, bool) {
	for _, p := range pairs {
		if p.ID == id || (p.Answer != nil && p.Answer.ID == id) {
			return p, true
		}
	}
	return nil, false
}
