package flowchart

import (
	"fmt"
	"testing"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutCentersRows(t *testing.T) {
	pairs := Flatten(branchingTree())
	Layout(pairs, DefaultConfig())
	idx := Index(pairs)

	assert.Equal(t, 0.0, idx["q1"].X)
	assert.Equal(t, 0.0, idx["q1"].Y)

	assert.Equal(t, -200.0, idx["q2"].X)
	assert.Equal(t, 0.0, idx["temp_1_aaaaaaa"].X)
	assert.Equal(t, 200.0, idx["q4"].X)
	for _, id := range []conversation.NodeID{"q2", "temp_1_aaaaaaa", "q4"} {
		assert.Equal(t, 150.0, idx[id].Y)
	}

	assert.Equal(t, 0.0, idx["q5"].X, "single node per level centers at zero")
	assert.Equal(t, 300.0, idx["q5"].Y)
}

func TestLayoutSymmetry(t *testing.T) {
	cfg := DefaultConfig()
	for k := 1; k <= 6; k++ {
		var children []*conversation.Node
		for i := 0; i < k; i++ {
			children = append(children, conversation.NewQuestion(conversation.NodeID(fmt.Sprintf("c%d", i)), "x"))
		}
		pairs := Flatten(conversation.NewQuestion("root", "r", answer("ans", "a", children...)))
		Layout(pairs, cfg)

		row := pairs[1:]
		require.Len(t, row, k)
		sum := 0.0
		for i, p := range row {
			sum += p.X
			if i > 0 {
				assert.Equal(t, cfg.HorizontalSpacing, p.X-row[i-1].X)
			}
			assert.Equal(t, cfg.VerticalSpacing, p.Y)
		}
		assert.InDelta(t, 0, sum, 1e-9, "row of %d is symmetric about zero", k)
		assert.Equal(t, -row[k-1].X, row[0].X)
	}
}

func TestConnectorPath(t *testing.T) {
	assert.Equal(t, "M 0 60 C 0 75, -200 75, -200 90", ConnectorPath(0, 0, -200, 150, 60))

	c := ConnectorCurve(10, 150, 10, 300, 60)
	assert.Equal(t, Point{X: 10, Y: 210}, c.Start)
	assert.Equal(t, Point{X: 10, Y: 225}, c.Control1)
	assert.Equal(t, Point{X: 10, Y: 225}, c.Control2)
	assert.Equal(t, Point{X: 10, Y: 240}, c.End)
}

func TestConnectorsFollowExplorationEdges(t *testing.T) {
	cfg := DefaultConfig()
	pairs := Flatten(branchingTree())
	Layout(pairs, cfg)

	conns := Connectors(pairs, cfg)
	var edges [][2]conversation.NodeID
	for _, c := range conns {
		edges = append(edges, [2]conversation.NodeID{c.From, c.To})
	}
	assert.Equal(t, [][2]conversation.NodeID{
		{"q1", "q2"}, {"q1", "temp_1_aaaaaaa"}, {"q1", "q4"}, {"q4", "q5"},
	}, edges)
	assert.Equal(t, "M 200 210 C 200 225, 0 225, 0 240", conns[3].Path)
}
