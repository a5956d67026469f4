package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, req backend.CompletionRequest) (*backend.Completion, error) {
	last := req.Messages[len(req.Messages)-1].Content
	return &backend.Completion{Content: "re: " + last, Usage: conversation.TokenUsage{Input: 1, Output: 1}}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) PublishBlind(payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := payload.(events.Event); ok {
		r.events = append(r.events, e)
	}
}

func (r *recordingPublisher) types() map[events.EventType]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[events.EventType]int{}
	for _, e := range r.events {
		out[e.Type()]++
	}
	return out
}

func TestSessionRunsCommandsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := backend.NewLocal(backend.NewInMemoryStore(), echoCompleter{}, backend.LocalOptions{HistoryWindow: 10})
	pub := &recordingPublisher{}
	session := NewSession(newTestOrchestrator(t, WithStatusTTL(time.Hour)), NewRunner(local),
		NewState("sys", "model"), WithPublisher(pub))

	errc := make(chan error, 1)
	go func() { errc <- session.Run(ctx) }()

	require.NoError(t, session.Dispatch(ctx, Started{}))
	require.Eventually(t, func() bool {
		return session.Snapshot().ConversationID() != ""
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, session.Dispatch(ctx, ChatSubmitted{Content: "What is Go?"}))
	require.Eventually(t, func() bool {
		return !session.Snapshot().Tree.Empty()
	}, 2*time.Second, 5*time.Millisecond)

	answer := session.Snapshot().Tree.Root.Answer()
	require.NotNil(t, answer)
	assert.Equal(t, "re: What is Go?", answer.Content)

	require.NoError(t, session.Dispatch(ctx, AnswerExplored{AnswerID: answer.ID}))
	require.Eventually(t, func() bool {
		s := session.Snapshot()
		return conversation.Count(s.Tree.Root) == 4 && len(s.InFlight) == 0
	}, 2*time.Second, 5*time.Millisecond)

	final := session.Snapshot()
	a, _ := final.Tree.Find(answer.ID)
	require.Len(t, a.Children, 1)
	assert.False(t, a.Children[0].ID.IsPlaceholder())
	assert.Equal(t, "Exploration complete", final.Status.Message)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.ErrorIs(t, session.Dispatch(context.Background(), DetailClosed{}), ErrSessionClosed)

	seen := pub.types()
	assert.Positive(t, seen[events.EventTypeTreeUpdated])
	assert.Positive(t, seen[events.EventTypeStatus])
	assert.Positive(t, seen[events.EventTypeConversation])
}

func TestDriveSettlesSynchronously(t *testing.T) {
	ctx := context.Background()
	local := backend.NewLocal(backend.NewInMemoryStore(), echoCompleter{}, backend.LocalOptions{HistoryWindow: 10})
	o := newTestOrchestrator(t)
	r := NewRunner(local)

	s, err := Drive(ctx, o, r, NewState("sys", "model"), Started{}, ChatSubmitted{Content: "one"})
	require.NoError(t, err)
	require.NotNil(t, s.Tree.Root)
	assert.Equal(t, "one", s.Tree.Root.Content)
	assert.Equal(t, "one", s.Title)
	assert.Len(t, s.Conversations, 1)

	s, err = Drive(ctx, o, r, s, AnswerExplored{AnswerID: s.Tree.Root.Answer().ID})
	require.NoError(t, err)
	assert.Equal(t, 4, conversation.Count(s.Tree.Root))
	assert.Empty(t, s.InFlight)

	loaded, err := local.LoadConversation(ctx, s.ConversationID())
	require.NoError(t, err)
	assert.Equal(t, 4, conversation.Count(loaded.Tree))
}
