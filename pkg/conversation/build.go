package conversation

import (
	"sort"
	"time"
)

// Row is the flat, persisted form of a node.
type Row struct {
	ID        NodeID
	ParentID  NodeID
	Type      NodeType
	Content   string
	Tokens    *TokenUsage
	CreatedAt time.Time
}

// BuildTree reconstructs a tree from flat rows.
//
// Children keep creation order. Rows that reference an unknown parent are
// dropped. Several parentless rows are stacked in creation order with
// PrependQuestion, which is the shape a live session produces for
// successive top-level messages.
func BuildTree(rows []Row) *Node {
	if len(rows) == 0 {
		return nil
	}
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	known := make(map[NodeID]bool, len(sorted))
	for _, r := range sorted {
		known[r.ID] = true
	}
	childIDs := make(map[NodeID][]NodeID, len(sorted))
	byID := make(map[NodeID]Row, len(sorted))
	var roots []NodeID
	for _, r := range sorted {
		byID[r.ID] = r
		switch {
		case r.ParentID == "":
			roots = append(roots, r.ID)
		case known[r.ParentID]:
			childIDs[r.ParentID] = append(childIDs[r.ParentID], r.ID)
		}
	}

	var build func(id NodeID) *Node
	build = func(id NodeID) *Node {
		r := byID[id]
		n := &Node{ID: r.ID, Type: r.Type, Content: r.Content, Tokens: r.Tokens}
		for _, cid := range childIDs[id] {
			n.Children = append(n.Children, build(cid))
		}
		return n
	}

	var root *Node
	for _, id := range roots {
		root = PrependQuestion(root, build(id))
	}
	return root
}
