package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/Yiozolm/Knode/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, req backend.CompletionRequest) (*backend.Completion, error) {
	last := req.Messages[len(req.Messages)-1].Content
	return &backend.Completion{Content: "re: " + last, Usage: conversation.TokenUsage{Input: 2, Output: 3}}, nil
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	s := settings.Default()
	s.Backend.Kind = settings.BackendLocal
	s.Store.Path = ":memory:"

	store := backend.NewInMemoryStore()
	b := backend.NewLocal(store, echoCompleter{}, backend.LocalOptions{
		SystemPrompt:  s.Model.SystemPrompt,
		ModelID:       s.Model.ID,
		HistoryWindow: s.Model.HistoryWindow,
	})
	orch, err := newOrchestrator(s)
	require.NoError(t, err)

	a := &app{
		settings: s,
		backend:  b,
		orch:     orch,
		runner:   orchestrator.NewRunner(b),
		close:    store.Close,
	}
	t.Cleanup(a.Close)
	return a
}

func TestAppChatThenExplore(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	s, err := a.open(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, s.ConversationID(), "an empty store starts a new conversation")

	s, err = a.drive(ctx, s, orchestrator.ChatSubmitted{Content: "hello"})
	require.NoError(t, err)
	root := s.Tree.Root
	require.NotNil(t, root)
	assert.Equal(t, "hello", root.Content)

	var buf bytes.Buffer
	require.NoError(t, printAnswer(&buf, s, root))
	assert.Contains(t, buf.String(), "re: hello")
	assert.Contains(t, buf.String(), "2/3 tokens")

	answerID := root.Answer().ID
	s, err = a.drive(ctx, s, orchestrator.AnswerExplored{AnswerID: answerID})
	require.NoError(t, err)
	assert.Empty(t, s.InFlight)

	answer, ok := s.Tree.Find(answerID)
	require.True(t, ok)
	require.Len(t, answer.Children, 1)
	explored := answer.Children[0]
	assert.False(t, explored.ID.IsPlaceholder(), "the placeholder was committed")
	require.NotNil(t, explored.Answer())
	assert.True(t, strings.HasPrefix(explored.Answer().Content, "re: Please explain this point in detail: re: hello"))

	// a second open resumes the same conversation from the store
	resumed, err := a.open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, s.ConversationID(), resumed.ConversationID())
	assert.Equal(t, conversation.Count(s.Tree.Root), conversation.Count(resumed.Tree.Root))

	d := flowchart.Build(resumed.Tree, a.diagramOptions())
	box, ok := boxOf(d, explored.Answer().ID)
	require.True(t, ok)
	assert.Equal(t, explored.ID, box.ID)
	_, ok = boxOf(d, "missing")
	assert.False(t, ok)
}

func TestAppDriveReportsErrorBanner(t *testing.T) {
	a := newTestApp(t)
	_, err := a.open(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to load conversation")
}

func TestAppRenameAndList(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	s, err := a.open(ctx, "")
	require.NoError(t, err)
	id := s.ConversationID()

	s, err = a.drive(ctx, a.initialState(), orchestrator.ConversationRetitled{ID: id, Title: "  Go trees  "})
	require.NoError(t, err)
	assert.Equal(t, "Conversation renamed", s.Status.Message)
	require.Len(t, s.Conversations, 1)
	assert.Equal(t, "Go trees", s.Conversations[0].Title)

	_, err = a.drive(ctx, a.initialState(), orchestrator.ConversationRetitled{ID: id, Title: " "})
	require.Error(t, err)
}

func TestPrintConversations(t *testing.T) {
	cs := []backend.ConversationSummary{{
		ID:        "c1",
		Title:     "First",
		ModelID:   "m",
		UpdatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var table bytes.Buffer
	require.NoError(t, printConversations(&table, "table", cs))
	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "First")

	var js bytes.Buffer
	require.NoError(t, printConversations(&js, "json", nil))
	var decoded []backend.ConversationSummary
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Empty(t, decoded)

	var y bytes.Buffer
	require.NoError(t, printConversations(&y, "yaml", cs))
	assert.Contains(t, y.String(), "title: First")

	require.Error(t, printConversations(&y, "xml", cs))
}

func TestFilterConversations(t *testing.T) {
	cs := []backend.ConversationSummary{
		{ID: "c1", Title: "Go trees", ModelID: "glm-4.5-air"},
		{ID: "c2", Title: "Rust lifetimes", ModelID: "glm-4.5-air"},
		{ID: "c3", Title: "Go channels", ModelID: "gpt-4o"},
	}

	got, err := filterConversations(cs, "Go *", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = filterConversations(cs, "Go *", "glm-*")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	got, err = filterConversations(cs, "", "")
	require.NoError(t, err)
	assert.Equal(t, cs, got)
}

func TestNewBackendLocalRequiresAPIKey(t *testing.T) {
	s := settings.Default()
	s.Backend.Kind = settings.BackendLocal
	s.Store.Path = ":memory:"
	s.OpenAI.APIKey = ""

	_, _, err := newBackend(s)
	require.Error(t, err)

	s.Backend.Kind = "grpc"
	_, _, err = newBackend(s)
	require.Error(t, err)
}
