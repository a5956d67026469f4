package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/labels"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDiagram(t *testing.T) *flowchart.Diagram {
	t.Helper()
	tree := conversation.NewQuestion("q1", "Why Go & not C?",
		conversation.NewAnswer("a1", "A language & runtime.", &conversation.TokenUsage{Input: 3, Output: 5}),
	)
	tree = conversation.AttachChild(tree, "a1", conversation.NewPlaceholder("temp_1_aaaaaaa", "Explain more"))
	tree = conversation.AttachChild(tree, "a1",
		conversation.NewPlaceholder("temp_2_bbbbbbb", "And channels?").WithPending(conversation.Failed("timeout")))
	cs := &conversation.ConversationState{ID: "c1", Root: tree, Version: 3}
	return flowchart.Build(cs, flowchart.DefaultOptions())
}

func TestSVGDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, sampleDiagram(t), labels.DefaultBudget()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg"`))
	assert.Contains(t, out, `<g transform="translate(400,50)">`)
	assert.Contains(t, out, `data-conversation-id="c1" data-version="3"`)
	assert.Equal(t, 3, strings.Count(out, "<rect "))
	assert.Equal(t, 2, strings.Count(out, `marker-end="url(#arrowhead)"`))

	assert.Contains(t, out, `<g class="node answered" data-node-id="q1" data-activate="q1" data-explore="a1">`)
	assert.Contains(t, out, `<rect x="-100" y="-50" width="200" height="100" rx="10"`)
	assert.Contains(t, out, `<path class="connector" d="M 0 60 C 0 75, -100 75, -100 90"`)
	assert.Contains(t, out, "Q: Why Go &amp; not C?")
	assert.Contains(t, out, "A: A language &amp; runtime.")
	assert.Contains(t, out, `<text class="loading"`)
	assert.Contains(t, out, LoadingText)
	assert.Contains(t, out, "Error: timeout")
	assert.NotContains(t, out, `data-node-id="temp_1_aaaaaaa" data-activate="temp_1_aaaaaaa" data-explore`)
}

func TestSVGUnlabeledQuestionGetsPlaceholder(t *testing.T) {
	d := &flowchart.Diagram{
		ConversationID: "c1",
		Config:         flowchart.DefaultConfig(),
		Boxes: []flowchart.Box{{
			ID:          "q1",
			AnswerID:    "a1",
			State:       flowchart.BoxAnswered,
			AnswerLabel: "an answer",
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, SVG(&buf, d, labels.DefaultBudget()))
	out := buf.String()

	assert.Contains(t, out, `<text class="question"`)
	assert.Contains(t, out, ">"+EmptyQuestionText+"</text>")
	assert.Contains(t, out, "A: an answer")
}

func TestSVGEmptyDiagram(t *testing.T) {
	var buf bytes.Buffer
	d := flowchart.Build(nil, flowchart.DefaultOptions())
	require.NoError(t, SVG(&buf, d, labels.DefaultBudget()))
	assert.NotContains(t, buf.String(), "<rect")
	assert.Contains(t, buf.String(), `width="800"`)
}

func TestOutline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Outline(&buf, sampleDiagram(t)))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "- [answered] Q: Why Go & not C?  (q1 @ 0,0)", lines[0])
	assert.Equal(t, "    A: A language & runtime.  (a1)", lines[1])
	assert.Equal(t, "  - [loading] Q: Explain more  (temp_1_aaaaaaa @ -100,150)", lines[2])
	assert.Equal(t, "      "+LoadingText, lines[3])
	assert.Equal(t, "      Error: timeout", lines[5])

	buf.Reset()
	require.NoError(t, Outline(&buf, flowchart.Build(nil, flowchart.DefaultOptions())))
	assert.Equal(t, "(empty conversation)\n", buf.String())
}

func TestDetailMarkdown(t *testing.T) {
	d := sampleDiagram(t)
	root, _ := d.Box("q1")
	md := DetailMarkdown(root)
	assert.Contains(t, md, "## Question\n\nWhy Go & not C?")
	assert.Contains(t, md, "A language & runtime.")
	assert.Contains(t, md, "Tokens: 3 in, 5 out")

	failed, _ := d.Box("temp_2_bbbbbbb")
	assert.Contains(t, DetailMarkdown(failed), "**Error:** timeout")
}

func TestMarkdownRender(t *testing.T) {
	m, err := NewMarkdown("notty", 80)
	require.NoError(t, err)
	out := m.Render("# Title\n\nSome *text*.")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "text")
}

func TestContainRecoversPanics(t *testing.T) {
	out, err := Contain(func() (string, error) {
		panic("bad table")
	})
	assert.Empty(t, out)
	var failure *RenderFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "Render error: bad table", failure.Inline())

	cause := errors.New("unsupported math")
	_, err = Contain(func() (string, error) { return "", cause })
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "Render error: unsupported math", ContainInline(func() (string, error) { return "", cause }))
	assert.Equal(t, "ok", ContainInline(func() (string, error) { return "ok", nil }))
}
