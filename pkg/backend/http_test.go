package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *HTTPClient {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestHTTPInitConversation(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"/api/init": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			body := decodeBody(t, r)
			assert.Equal(t, "be brief", body["system_msg"])
			assert.Equal(t, "glm-4.5-air", body["model_id"])
			assert.Equal(t, true, body["new_conversation"])
			writeJSON(w, 200, `{"success": true, "conversation_id": "c-1"}`)
		},
	})

	id, err := c.InitConversation(context.Background(), InitRequest{SystemPrompt: "be brief", ModelID: "glm-4.5-air", New: true})
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)
}

func TestHTTPSendMessage(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"/api/chat": func(w http.ResponseWriter, r *http.Request) {
			body := decodeBody(t, r)
			assert.Equal(t, "c-1", body["conversation_id"])
			if body["parent_id"] == nil {
				assert.Equal(t, "What is X?", body["message"])
				writeJSON(w, 200, `{"success": true, "question_id": "q-1",
					"response": {"id": "a-1", "content": "X is Y", "input_tokens": 12, "output_tokens": 34}}`)
				return
			}
			assert.Equal(t, "a-1", body["parent_id"])
			assert.Equal(t, "Explain X further", body["message"])
			writeJSON(w, 200, `{"success": true, "question_id": "q-2",
				"response": {"id": "a-2", "content": "more", "input_tokens": 1, "output_tokens": 2}}`)
		},
	})
	ctx := context.Background()

	res, err := c.SendMessage(ctx, "What is X?", "", "c-1")
	require.NoError(t, err)
	assert.Equal(t, conversation.NodeID("q-1"), res.QuestionID)
	assert.Equal(t, Answer{ID: "a-1", Content: "X is Y", Tokens: conversation.TokenUsage{Input: 12, Output: 34}}, res.Answer)

	n := res.Node("What is X?")
	assert.True(t, n.IsQuestion())
	require.Len(t, n.Children, 1)
	assert.Equal(t, 34, n.Answer().Tokens.Output)

	res, err = c.SendMessage(ctx, "Explain X further", "a-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, conversation.NodeID("q-2"), res.QuestionID)
}

func TestHTTPRejection(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"/api/chat": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 500, `{"success": false, "error": "model overloaded"}`)
		},
		"/api/conversations/gone/load": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 404, `{"success": false, "error": "Conversation not found"}`)
		},
	})
	ctx := context.Background()

	_, err := c.SendMessage(ctx, "hi", "", "c-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.False(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "model overloaded", Message(err))
	var rejection *BackendRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, 500, rejection.StatusCode)

	_, err = c.LoadConversation(ctx, "gone")
	assert.True(t, errors.Is(err, ErrConversationNotFound))
	assert.True(t, errors.Is(err, ErrRejected))
}

func TestHTTPNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	}))
	c := NewHTTPClient(srv.URL)

	_, err := c.ResetConversation(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork), "undecodable body")

	srv.Close()
	_, err = c.ListConversations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork), "closed server")
	assert.Contains(t, Message(err), "network failure")
}

func TestHTTPTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewHTTPClient(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.SendMessage(context.Background(), "hi", "", "c-1")
	assert.True(t, errors.Is(err, ErrNetwork))
}

func TestHTTPConversationManagement(t *testing.T) {
	c := newTestServer(t, map[string]http.HandlerFunc{
		"/api/conversations": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(w, 200, `{"success": true, "conversations": [
				{"id": "c-2", "title": "Go", "system_msg": "s", "model_id": "m",
				 "created_at": "2024-05-01T10:00:00.123456", "updated_at": "2024-05-02T10:00:00"}]}`)
		},
		"/api/conversations/search": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "go routines", r.URL.Query().Get("q"))
			writeJSON(w, 200, `{"success": true, "results": [{"id": "c-2", "title": "Go"}]}`)
		},
		"/api/conversations/c-2/load": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			writeJSON(w, 200, `{"success": true, "conversation": {"id": "c-2", "title": "Go",
				"system_msg": "s", "model_id": "m",
				"tree": {"id": "q1", "type": "question", "content": "What is Go?", "children": [
					{"id": "a1", "type": "answer", "content": "A language", "children": [],
					 "tokens": {"input": 1, "output": 2}}]}}}`)
		},
		"/api/conversations/c-2/title": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "Renamed", decodeBody(t, r)["title"])
			writeJSON(w, 200, `{"success": true}`)
		},
		"/api/conversations/c-2": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			writeJSON(w, 200, `{"success": true, "nodes_deleted": 4, "conversation_deleted": true}`)
		},
	})
	ctx := context.Background()

	list, err := c.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Go", list[0].Title)
	assert.Equal(t, time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC), list[0].UpdatedAt)
	assert.Equal(t, 123456000, list[0].CreatedAt.Nanosecond())

	found, err := c.SearchConversations(ctx, " go routines ")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = c.SearchConversations(ctx, "  ")
	assert.True(t, errors.Is(err, ErrEmptyQuery))

	conv, err := c.LoadConversation(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, "s", conv.SystemPrompt)
	require.NotNil(t, conv.Tree)
	assert.Equal(t, "A language", conv.Tree.Answer().Content)

	require.NoError(t, c.RenameConversation(ctx, "c-2", " Renamed "))
	assert.True(t, errors.Is(c.RenameConversation(ctx, "c-2", ""), ErrEmptyTitle))

	n, err := c.DeleteConversation(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestDecodeTreeVariants(t *testing.T) {
	tree, err := decodeTree(nil)
	require.NoError(t, err)
	assert.Nil(t, tree)

	tree, err = decodeTree(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, tree)

	tree, err = decodeTree(json.RawMessage(`[
		{"id": "q1", "type": "question", "content": "first", "children": [{"id": "a1", "type": "answer", "content": "one", "children": []}]},
		{"id": "q2", "type": "question", "content": "second", "children": [{"id": "a2", "type": "answer", "content": "two", "children": []}]}
	]`))
	require.NoError(t, err)
	assert.Equal(t, conversation.NodeID("q2"), tree.ID)
	assert.Equal(t, conversation.NodeID("q1"), tree.Children[0].ID)
	assert.Equal(t, conversation.NodeID("a2"), tree.Answer().ID)

	_, err = decodeTree(json.RawMessage(`{"id": 3}`))
	assert.Error(t, err)
}
