package flowchart

import (
	"testing"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDiagram(t *testing.T) {
	cs, err := conversation.NewConversationState("c1").Apply(conversation.MutateLoad(branchingTree()))
	require.NoError(t, err)

	d := Build(cs, DefaultOptions())

	assert.Equal(t, "c1", d.ConversationID)
	assert.Equal(t, int64(1), d.Version)
	require.Len(t, d.Boxes, 5)
	require.Len(t, d.Connectors, 4)

	root, ok := d.Box("q1")
	require.True(t, ok)
	assert.Equal(t, BoxAnswered, root.State)
	assert.Equal(t, "first", root.QuestionLabel)
	assert.Equal(t, "answer one", root.AnswerLabel)
	assert.Equal(t, Hooks{Activate: "q1", Explore: "a1"}, root.Hooks)

	pending, ok := d.Box("temp_1_aaaaaaa")
	require.True(t, ok)
	assert.Equal(t, BoxLoading, pending.State)
	assert.Empty(t, pending.Hooks.Explore)
	assert.Equal(t, conversation.NodeID("q1"), pending.ParentID)

	q5, _ := d.Box("q5")
	assert.Equal(t, BoxUnanswered, q5.State)

	assert.Equal(t, Bounds{MinX: -300, MinY: -50, MaxX: 300, MaxY: 350}, d.Bounds)
}

func TestBuildDiagramTruncatesLabelsKeepsFullText(t *testing.T) {
	long := "Explain how goroutines are scheduled onto operating system threads"
	tree := conversation.NewQuestion("q1", long, conversation.NewAnswer("a1", "**short**", nil))
	cs := &conversation.ConversationState{ID: "c", Root: tree}

	d := Build(cs, DefaultOptions())
	require.Len(t, d.Boxes, 1)
	b := d.Boxes[0]
	assert.Equal(t, long, b.Question)
	assert.Equal(t, "Explain how goroutin...", b.QuestionLabel)
	assert.Equal(t, "short", b.AnswerLabel)
	assert.Equal(t, "**short**", b.Answer)
}

func TestBuildDiagramErrorState(t *testing.T) {
	failed := conversation.NewPlaceholder("temp_9_ccccccc", "x").WithPending(conversation.Failed("timeout"))
	tree := conversation.NewQuestion("q1", "first", answer("a1", "one", failed))

	d := Build(&conversation.ConversationState{Root: tree}, DefaultOptions())
	b, ok := d.Box("temp_9_ccccccc")
	require.True(t, ok)
	assert.Equal(t, BoxError, b.State)
	assert.Equal(t, "timeout", b.ErrorMessage)
	assert.Empty(t, b.AnswerLabel)
}

func TestBuildEmptyDiagram(t *testing.T) {
	d := Build(conversation.NewConversationState("c"), DefaultOptions())
	assert.Empty(t, d.Boxes)
	assert.NotNil(t, d.Connectors)
	assert.Equal(t, Bounds{}, d.Bounds)

	assert.Empty(t, Build(nil, DefaultOptions()).Boxes)
}
