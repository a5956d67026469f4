package conversation

import (
	"fmt"
)

// Mutation represents a deterministic change to the conversation tree.
//
// Apply never modifies root. It returns the new root and whether the
// mutation found its target; a mutation that did not apply returns root
// itself.
type Mutation interface {
	Apply(root *Node) (*Node, bool, error)
	Name() string
}

type attachAsNewRootMutation struct {
	node *Node
}

func (m attachAsNewRootMutation) Apply(root *Node) (*Node, bool, error) {
	if m.node == nil {
		return root, false, fmt.Errorf("node is nil")
	}
	return AttachAsNewRoot(root, m.node), true, nil
}

func (m attachAsNewRootMutation) Name() string { return "attach_as_new_root" }

// MutateAttachAsNewRoot wraps the current tree under node.
func MutateAttachAsNewRoot(node *Node) Mutation {
	return attachAsNewRootMutation{node: node}
}

type prependQuestionMutation struct {
	question *Node
}

func (m prependQuestionMutation) Apply(root *Node) (*Node, bool, error) {
	if m.question == nil {
		return root, false, fmt.Errorf("question is nil")
	}
	return PrependQuestion(root, m.question), true, nil
}

func (m prependQuestionMutation) Name() string { return "prepend_question" }

// MutatePrependQuestion wraps the current tree under question and keeps the
// question's answer.
func MutatePrependQuestion(question *Node) Mutation {
	return prependQuestionMutation{question: question}
}

type attachChildMutation struct {
	parentID NodeID
	node     *Node
}

func (m attachChildMutation) Apply(root *Node) (*Node, bool, error) {
	if m.node == nil {
		return root, false, fmt.Errorf("node is nil")
	}
	out, ok := attachChild(root, m.parentID, m.node)
	return out, ok, nil
}

func (m attachChildMutation) Name() string { return "attach_child" }

// MutateAttachChild appends node under parentID. A missing parent is not an
// error: the mutation reports that it did not apply.
func MutateAttachChild(parentID NodeID, node *Node) Mutation {
	return attachChildMutation{parentID: parentID, node: node}
}

type replaceNodeMutation struct {
	targetID NodeID
	node     *Node
}

func (m replaceNodeMutation) Apply(root *Node) (*Node, bool, error) {
	if m.node == nil {
		return root, false, fmt.Errorf("node is nil")
	}
	out, ok := replaceNode(root, m.targetID, m.node)
	return out, ok, nil
}

func (m replaceNodeMutation) Name() string { return "replace_node" }

// MutateReplaceNode substitutes the subtree rooted at targetID by node.
func MutateReplaceNode(targetID NodeID, node *Node) Mutation {
	return replaceNodeMutation{targetID: targetID, node: node}
}

type markFailedMutation struct {
	targetID NodeID
	message  string
}

func (m markFailedMutation) Apply(root *Node) (*Node, bool, error) {
	out, ok := rewrite(root, m.targetID, func(n *Node) *Node {
		return n.WithPending(Failed(m.message))
	})
	return out, ok, nil
}

func (m markFailedMutation) Name() string { return "mark_failed" }

// MutateMarkFailed moves the node at targetID into the error state, keeping
// its content and children.
func MutateMarkFailed(targetID NodeID, message string) Mutation {
	return markFailedMutation{targetID: targetID, message: message}
}

type resetMutation struct{}

func (resetMutation) Apply(root *Node) (*Node, bool, error) {
	return nil, root != nil, nil
}

func (resetMutation) Name() string { return "reset" }

// MutateReset drops the whole tree.
func MutateReset() Mutation {
	return resetMutation{}
}

type loadMutation struct {
	root *Node
}

func (m loadMutation) Apply(*Node) (*Node, bool, error) {
	return m.root, true, nil
}

func (loadMutation) Name() string { return "load" }

// MutateLoad replaces the whole tree with root, as fetched from a backend.
func MutateLoad(root *Node) Mutation {
	return loadMutation{root: root}
}
