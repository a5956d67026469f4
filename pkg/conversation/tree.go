package conversation

// AttachAsNewRoot makes node the new root with the previous tree as its sole
// child. Children node already carried are not kept. A nil tree yields node
// itself.
func AttachAsNewRoot(tree *Node, node *Node) *Node {
	if node == nil {
		return tree
	}
	if tree == nil {
		return node
	}
	return node.WithChildren([]*Node{tree})
}

// PrependQuestion wraps tree under question with AttachAsNewRoot and then
// re-attaches the question's own children, such as its answer, after the
// wrapped tree. Unlike AttachAsNewRoot, the old tree is therefore not the
// sole child of the new root: a committed question keeps its answer as the
// second child, [tree, answer].
func PrependQuestion(tree *Node, question *Node) *Node {
	if question == nil {
		return tree
	}
	root := AttachAsNewRoot(tree, question.WithChildren(nil))
	if len(question.Children) == 0 {
		return root
	}
	children := make([]*Node, 0, len(root.Children)+len(question.Children))
	children = append(children, root.Children...)
	children = append(children, question.Children...)
	return root.WithChildren(children)
}

// AttachChild appends node to the children of the first node (pre-order)
// whose id is parentID. When no such node exists the input tree is returned
// unchanged.
func AttachChild(tree *Node, parentID NodeID, node *Node) *Node {
	out, _ := attachChild(tree, parentID, node)
	return out
}

// ReplaceNode substitutes the first node (pre-order) whose id is targetID,
// together with its subtree, by node. When no such node exists the input
// tree is returned unchanged.
func ReplaceNode(tree *Node, targetID NodeID, node *Node) *Node {
	out, _ := replaceNode(tree, targetID, node)
	return out
}

func attachChild(tree *Node, parentID NodeID, node *Node) (*Node, bool) {
	return rewrite(tree, parentID, func(parent *Node) *Node {
		children := make([]*Node, 0, len(parent.Children)+1)
		children = append(children, parent.Children...)
		children = append(children, node)
		return parent.WithChildren(children)
	})
}

func replaceNode(tree *Node, targetID NodeID, node *Node) (*Node, bool) {
	return rewrite(tree, targetID, func(*Node) *Node {
		return node
	})
}

// rewrite copies the path from tree down to the first node with the given id
// and substitutes that node by f(node). Subtrees off the path are shared.
func rewrite(tree *Node, id NodeID, f func(*Node) *Node) (*Node, bool) {
	if tree == nil {
		return nil, false
	}
	if tree.ID == id {
		return f(tree), true
	}
	for i, c := range tree.Children {
		nc, ok := rewrite(c, id, f)
		if !ok {
			continue
		}
		children := make([]*Node, len(tree.Children))
		copy(children, tree.Children)
		children[i] = nc
		return tree.WithChildren(children), true
	}
	return tree, false
}

// Find returns the first node (pre-order) with the given id.
func Find(tree *Node, id NodeID) (*Node, bool) {
	var found *Node
	Walk(tree, func(n *Node, _ []*Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// Contains reports whether the tree holds a node with the given id.
func Contains(tree *Node, id NodeID) bool {
	_, ok := Find(tree, id)
	return ok
}

// Walk visits nodes in pre-order. ancestors holds the path from the root to
// the parent of n and must not be retained. Returning false stops the walk.
func Walk(tree *Node, visit func(n *Node, ancestors []*Node) bool) {
	if tree == nil {
		return
	}
	walk(tree, nil, visit)
}

func walk(n *Node, ancestors []*Node, visit func(*Node, []*Node) bool) bool {
	if !visit(n, ancestors) {
		return false
	}
	ancestors = append(ancestors, n)
	for _, c := range n.Children {
		if !walk(c, ancestors, visit) {
			return false
		}
	}
	return true
}

// Path returns the nodes from the root down to and including the node with
// the given id.
func Path(tree *Node, id NodeID) ([]*Node, bool) {
	var path []*Node
	Walk(tree, func(n *Node, ancestors []*Node) bool {
		if n.ID != id {
			return true
		}
		path = make([]*Node, 0, len(ancestors)+1)
		path = append(path, ancestors...)
		path = append(path, n)
		return false
	})
	return path, path != nil
}

// Count returns the number of nodes in the tree.
func Count(tree *Node) int {
	count := 0
	Walk(tree, func(*Node, []*Node) bool {
		count++
		return true
	})
	return count
}
