package flowchart

import (
	"encoding/json"
	"testing"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltDiagramsMatchSchema(t *testing.T) {
	tree := conversation.NewQuestion("q1", "root",
		conversation.NewAnswer("a1", "answer", &conversation.TokenUsage{Input: 1, Output: 2}),
		conversation.NewPlaceholder("temp_1_aaaaaaa", "pending"),
	)
	cs, err := conversation.NewConversationState("c1").Apply(conversation.MutateLoad(tree))
	require.NoError(t, err)

	for _, d := range []*Diagram{
		Build(cs, DefaultOptions()),
		Build(nil, DefaultOptions()),
	} {
		b, err := json.Marshal(d)
		require.NoError(t, err)
		assert.NoError(t, Validate(b))
	}
}

func TestValidateRejectsMalformedDocuments(t *testing.T) {
	err := Validate([]byte(`{"version": "one", "boxes": [{"id": 3}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid diagram")

	require.Error(t, Validate([]byte(`not json`)))
}

func TestSchemaDescribesBoxes(t *testing.T) {
	s := Schema()
	assert.Equal(t, "knode diagram", s.Title)
	boxes, ok := s.Properties.Get("boxes")
	require.True(t, ok)
	require.NotNil(t, boxes.Items)
	_, ok = boxes.Items.Properties.Get("questionLabel")
	assert.True(t, ok)
}
