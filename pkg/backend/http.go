package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// HTTPClient implements Backend against the knowledge tree REST API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.client = c }
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) { h.client.Timeout = d }
}

func NewHTTPClient(baseURL string, options ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range options {
		o(h)
	}
	return h
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e envelope) result() envelope { return e }

type enveloped interface {
	result() envelope
}

type initRequest struct {
	SystemMsg       string `json:"system_msg,omitempty"`
	ModelID         string `json:"model_id,omitempty"`
	NewConversation bool   `json:"new_conversation"`
	ConversationID  string `json:"conversation_id,omitempty"`
}

type conversationIDResponse struct {
	envelope
	ConversationID string `json:"conversation_id"`
}

type chatRequest struct {
	Message        string               `json:"message"`
	ParentID       *conversation.NodeID `json:"parent_id"`
	ConversationID string               `json:"conversation_id"`
}

type chatResponse struct {
	envelope
	QuestionID conversation.NodeID `json:"question_id"`
	Response   struct {
		ID           conversation.NodeID `json:"id"`
		Content      string              `json:"content"`
		InputTokens  int                 `json:"input_tokens"`
		OutputTokens int                 `json:"output_tokens"`
	} `json:"response"`
}

type conversationJSON struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	SystemMsg string          `json:"system_msg"`
	ModelID   string          `json:"model_id"`
	CreatedAt timestamp       `json:"created_at"`
	UpdatedAt timestamp       `json:"updated_at"`
	Tree      json.RawMessage `json:"tree,omitempty"`
}

func (c conversationJSON) summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		SystemPrompt: c.SystemMsg,
		ModelID:      c.ModelID,
		CreatedAt:    time.Time(c.CreatedAt),
		UpdatedAt:    time.Time(c.UpdatedAt),
	}
}

type listResponse struct {
	envelope
	Conversations []conversationJSON `json:"conversations"`
	Results       []conversationJSON `json:"results"`
}

type loadResponse struct {
	envelope
	Conversation conversationJSON `json:"conversation"`
}

type deleteResponse struct {
	envelope
	NodesDeleted int `json:"nodes_deleted"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type emptyResponse struct {
	envelope
}

func (h *HTTPClient) InitConversation(ctx context.Context, req InitRequest) (string, error) {
	var resp conversationIDResponse
	err := h.do(ctx, "init", http.MethodPost, "/api/init", initRequest{
		SystemMsg:       req.SystemPrompt,
		ModelID:         req.ModelID,
		NewConversation: req.New,
		ConversationID:  req.ConversationID,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

func (h *HTTPClient) SendMessage(ctx context.Context, content string, parentID conversation.NodeID, conversationID string) (*MessageResult, error) {
	req := chatRequest{Message: content, ConversationID: conversationID}
	if parentID != "" {
		req.ParentID = &parentID
	}
	var resp chatResponse
	if err := h.do(ctx, "chat", http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &MessageResult{
		QuestionID: resp.QuestionID,
		Answer: Answer{
			ID:      resp.Response.ID,
			Content: resp.Response.Content,
			Tokens: conversation.TokenUsage{
				Input:  resp.Response.InputTokens,
				Output: resp.Response.OutputTokens,
			},
		},
	}, nil
}

func (h *HTTPClient) ResetConversation(ctx context.Context) (string, error) {
	var resp conversationIDResponse
	if err := h.do(ctx, "reset", http.MethodPost, "/api/reset", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

func (h *HTTPClient) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var resp listResponse
	if err := h.do(ctx, "list", http.MethodGet, "/api/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return toSummaries(resp.Conversations), nil
}

func (h *HTTPClient) SearchConversations(ctx context.Context, query string) ([]ConversationSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, reject("search", ErrEmptyQuery)
	}
	var resp listResponse
	path := "/api/conversations/search?q=" + url.QueryEscape(query)
	if err := h.do(ctx, "search", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return toSummaries(resp.Results), nil
}

func (h *HTTPClient) LoadConversation(ctx context.Context, id string) (*Conversation, error) {
	var resp loadResponse
	path := "/api/conversations/" + url.PathEscape(id) + "/load"
	if err := h.do(ctx, "load", http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	tree, err := decodeTree(resp.Conversation.Tree)
	if err != nil {
		return nil, &NetworkFailure{Op: "load", Err: err}
	}
	return &Conversation{ConversationSummary: resp.Conversation.summary(), Tree: tree}, nil
}

func (h *HTTPClient) DeleteConversation(ctx context.Context, id string) (int, error) {
	var resp deleteResponse
	if err := h.do(ctx, "delete", http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, &resp); err != nil {
		return 0, err
	}
	return resp.NodesDeleted, nil
}

func (h *HTTPClient) RenameConversation(ctx context.Context, id string, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return reject("rename", ErrEmptyTitle)
	}
	var resp emptyResponse
	path := "/api/conversations/" + url.PathEscape(id) + "/title"
	return h.do(ctx, "rename", http.MethodPut, path, titleRequest{Title: title}, &resp)
}

func (h *HTTPClient) do(ctx context.Context, op, method, path string, body interface{}, out enveloped) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	log.Trace().Str("op", op).Str("method", method).Str("path", path).Msg("backend request")
	resp, err := h.client.Do(req)
	if err != nil {
		return &NetworkFailure{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkFailure{Op: op, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkFailure{Op: op, Err: errors.Wrapf(err, "unexpected response (status %d)", resp.StatusCode)}
	}
	env := out.result()
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		rejection := &BackendRejection{Op: op, Message: msg, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			rejection.Cause = ErrConversationNotFound
		}
		return rejection
	}
	return nil
}

// decodeTree accepts null, a single root object, or a list of roots. Lists
// are stacked in order with PrependQuestion.
func decodeTree(raw json.RawMessage) (*conversation.Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var roots []*conversation.Node
		if err := json.Unmarshal(trimmed, &roots); err != nil {
			return nil, errors.Wrap(err, "decode tree")
		}
		var tree *conversation.Node
		for _, r := range roots {
			tree = conversation.PrependQuestion(tree, r)
		}
		return tree, nil
	}
	var root conversation.Node
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, errors.Wrap(err, "decode tree")
	}
	return &root, nil
}

func toSummaries(cs []conversationJSON) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.summary())
	}
	return out
}

// timestamp decodes the ISO-8601 variants the backend emits, with or
// without a zone. Unparseable values decode to the zero time.
type timestamp time.Time

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp(parsed)
			return nil
		}
	}
	*t = timestamp{}
	return nil
}

var _ Backend = (*HTTPClient)(nil)
