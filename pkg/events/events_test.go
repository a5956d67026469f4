package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONRoundTrip(t *testing.T) {
	meta := NewMetadata("c1", 3)
	b, err := json.Marshal(NewTreeUpdatedEvent(meta, 7, 12, 2))
	require.NoError(t, err)

	e, err := NewEventFromJson(b)
	require.NoError(t, err)
	tree, ok := e.(*EventTreeUpdated)
	require.True(t, ok)
	assert.Equal(t, int64(7), tree.Version)
	assert.Equal(t, 12, tree.Nodes)
	assert.Equal(t, 2, tree.InFlight)
	assert.Equal(t, meta.ID, tree.Metadata().ID)
	assert.Equal(t, "c1", tree.Metadata().ConversationID)
	assert.Equal(t, b, tree.Payload())
}

func TestNewEventFromJsonRejectsUnknownTypes(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"partial"}`))
	assert.Error(t, err)
	_, err = NewEventFromJson([]byte(`null`))
	assert.Error(t, err)
	_, err = NewEventFromJson([]byte(`{`))
	assert.Error(t, err)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestRouterDeliversPublishedEvents(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)

	out := &syncBuffer{}
	router.AddHandler("printer", SessionTopic, PrinterFunc(out))

	var mu sync.Mutex
	var seq, types []string
	router.AddHandler("sequence", SessionTopic, func(msg *message.Message) error {
		defer msg.Ack()
		mu.Lock()
		defer mu.Unlock()
		seq = append(seq, msg.Metadata.Get("sequence_number"))
		types = append(types, msg.Metadata.Get("type"))
		assert.Equal(t, "c1", msg.Metadata.Get("conversation_id"))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- router.Run(ctx) }()
	<-router.Running()

	pm := NewPublisherManager()
	pm.SubscribePublisher(SessionTopic, router.Publisher)
	meta := NewMetadata("c1", 0)
	pm.PublishBlind(NewConversationEvent(meta, "Go"))
	pm.PublishBlind(NewStatusEvent(meta, "success", "Exploration complete"))
	pm.PublishBlind(NewStatusEvent(meta, "", ""))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seq) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return bytes.Count([]byte(out.String()), []byte("\n")) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Contains(t, out.String(), `[conversation] c1 "Go"`)
	assert.Contains(t, out.String(), "[success] Exploration complete")
	mu.Lock()
	assert.Equal(t, []string{"0", "1", "2"}, seq)
	assert.Equal(t, []string{string(EventTypeConversation), string(EventTypeStatus), string(EventTypeStatus)}, types)
	mu.Unlock()

	require.NoError(t, router.Close())
	cancel()
	<-done
}
