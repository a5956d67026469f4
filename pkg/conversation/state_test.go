package conversation

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBumpsVersionOnChange(t *testing.T) {
	cs := NewConversationState("c1")

	next, err := cs.Apply(MutateAttachAsNewRoot(NewQuestion("q1", "hi")))
	require.NoError(t, err)
	assert.Equal(t, int64(1), next.Version)
	assert.Equal(t, "c1", next.ID)
	assert.Nil(t, cs.Root, "previous snapshot is untouched")
	assert.Equal(t, int64(0), cs.Version)
}

func TestApplyMissingTargetReturnsSameSnapshot(t *testing.T) {
	cs, err := NewConversationState("c1").Apply(MutateAttachAsNewRoot(NewQuestion("q1", "hi")))
	require.NoError(t, err)

	for _, m := range []Mutation{
		MutateAttachChild("nope", NewQuestion("x", "x")),
		MutateReplaceNode("nope", NewQuestion("x", "x")),
		MutateMarkFailed("nope", "boom"),
	} {
		next, err := cs.Apply(m)
		require.NoError(t, err, m.Name())
		assert.Same(t, cs, next, m.Name())
	}
}

func TestApplyNilNodeFails(t *testing.T) {
	cs := NewConversationState("c1")
	_, err := cs.Apply(MutateAttachChild("q1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attach_child")
	assert.Equal(t, "node is nil", errors.Cause(err).Error(), "the mutation's own error is wrapped")

	_, err = cs.Apply(nil)
	require.Error(t, err)

	var nilState *ConversationState
	_, err = nilState.Apply(MutateReset())
	require.Error(t, err)
}

func TestApplyAllPlaceholderLifecycle(t *testing.T) {
	ph := NewPlaceholder("temp_1_aaaaaaa", "explain")
	cs, err := NewConversationState("c1").ApplyAll(
		MutateAttachAsNewRoot(NewQuestion("q1", "hi", NewAnswer("a1", "hello", nil))),
		MutateAttachChild("a1", ph),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cs.Version)

	got, ok := cs.Find(ph.ID)
	require.True(t, ok)
	assert.True(t, got.Pending.IsLoading())

	failed, err := cs.Apply(MutateMarkFailed(ph.ID, "network down"))
	require.NoError(t, err)
	got, _ = failed.Find(ph.ID)
	assert.True(t, got.Pending.IsError())
	assert.False(t, got.Pending.IsLoading())
	assert.Equal(t, "network down", got.Pending.Message)
	assert.Equal(t, "explain", got.Content)
}

func TestResetAndLoad(t *testing.T) {
	cs, err := NewConversationState("c1").Apply(MutateAttachAsNewRoot(NewQuestion("q1", "hi")))
	require.NoError(t, err)

	cleared, err := cs.Apply(MutateReset())
	require.NoError(t, err)
	assert.True(t, cleared.Empty())

	again, err := cleared.Apply(MutateReset())
	require.NoError(t, err)
	assert.Same(t, cleared, again)

	loaded, err := cleared.Apply(MutateLoad(NewQuestion("q7", "loaded")))
	require.NoError(t, err)
	assert.Equal(t, NodeID("q7"), loaded.Root.ID)
}

var placeholderPattern = regexp.MustCompile(`^temp_\d+_[0-9a-z]{7}$`)

func TestPlaceholderIDs(t *testing.T) {
	id := newPlaceholderID(time.UnixMilli(1700000000000))
	assert.Regexp(t, placeholderPattern, string(id))
	assert.Contains(t, string(id), "1700000000000")
	assert.True(t, id.IsPlaceholder())
	assert.False(t, NodeID("q1").IsPlaceholder())
	assert.NotEqual(t, NewPlaceholderID(), NewPlaceholderID())
}

func TestNodeJSONWireFormat(t *testing.T) {
	tree := NewQuestion("q1", "hi",
		NewAnswer("a1", "hello", &TokenUsage{Input: 5, Output: 7}),
		NewPlaceholder("temp_1_aaaaaaa", "more").WithPending(Failed("boom")),
	)

	b, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "q1", "type": "question", "content": "hi",
		"children": [
			{"id": "a1", "type": "answer", "content": "hello", "children": [], "tokens": {"input": 5, "output": 7}},
			{"id": "temp_1_aaaaaaa", "type": "question", "content": "more", "children": [], "hasError": true, "errorMessage": "boom"}
		]
	}`, string(b))

	var back Node
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Failed("boom"), back.Children[1].Pending)
	assert.Nil(t, back.Children[0].Children)
	assert.Equal(t, 7, back.Answer().Tokens.Output)
}

func TestNodeJSONRejectsUnknownType(t *testing.T) {
	var n Node
	require.Error(t, json.Unmarshal([]byte(`{"id":"x","type":"system","content":""}`), &n))
}

func TestBuildTreeFromRows(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		{ID: "a2", ParentID: "q2", Type: NodeTypeAnswer, Content: "a2", CreatedAt: t0.Add(4 * time.Second)},
		{ID: "q1", Type: NodeTypeQuestion, Content: "q1", CreatedAt: t0},
		{ID: "a1", ParentID: "q1", Type: NodeTypeAnswer, Content: "a1", CreatedAt: t0.Add(time.Second)},
		{ID: "q2", ParentID: "a1", Type: NodeTypeQuestion, Content: "q2", CreatedAt: t0.Add(3 * time.Second)},
		{ID: "orphan", ParentID: "gone", Type: NodeTypeQuestion, Content: "x", CreatedAt: t0.Add(5 * time.Second)},
		{ID: "q3", Type: NodeTypeQuestion, Content: "q3", CreatedAt: t0.Add(6 * time.Second)},
		{ID: "a3", ParentID: "q3", Type: NodeTypeAnswer, Content: "a3", CreatedAt: t0.Add(7 * time.Second)},
	}

	tree := BuildTree(rows)

	require.NotNil(t, tree)
	assert.Equal(t, NodeID("q3"), tree.ID, "latest top-level question becomes the root")
	assert.Equal(t, []NodeID{"q3", "q1", "a1", "q2", "a2", "a3"}, ids(tree))
	assert.Equal(t, NodeID("a3"), tree.Answer().ID)
	assert.False(t, Contains(tree, "orphan"))
	assert.Nil(t, BuildTree(nil))
}
