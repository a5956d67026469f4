package backend

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type LocalOptions struct {
	SystemPrompt string
	ModelID      string
	// HistoryWindow caps the number of messages sent to the model,
	// the system prompt included.
	HistoryWindow int
	Temperature   float32
	MaxTokens     int
}

type LocalOption func(*Local)

func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) { l.now = now }
}

func WithIDGenerator(newID func() string) LocalOption {
	return func(l *Local) { l.newID = newID }
}

// Local answers questions in-process through a Completer and persists
// conversations in a Store.
type Local struct {
	store     Store
	completer Completer
	opts      LocalOptions
	now       func() time.Time
	newID     func() string

	mu           sync.Mutex
	systemPrompt string
	modelID      string
}

func NewLocal(store Store, completer Completer, opts LocalOptions, options ...LocalOption) *Local {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.ModelID == "" {
		opts.ModelID = DefaultModelID
	}
	l := &Local{
		store:        store,
		completer:    completer,
		opts:         opts,
		now:          time.Now,
		newID:        uuid.NewString,
		systemPrompt: opts.SystemPrompt,
		modelID:      opts.ModelID,
	}
	for _, o := range options {
		o(l)
	}
	return l
}

func (l *Local) InitConversation(ctx context.Context, req InitRequest) (string, error) {
	sp, model := l.configure(req.SystemPrompt, req.ModelID)
	if !req.New {
		if req.ConversationID == "" {
			return "", reject("init", errors.New("conversation id is required"))
		}
		if _, err := l.conversation(ctx, "init", req.ConversationID); err != nil {
			return "", err
		}
		return req.ConversationID, nil
	}
	return l.create(ctx, "init", sp, model)
}

func (l *Local) ResetConversation(ctx context.Context) (string, error) {
	sp, model := l.configure("", "")
	return l.create(ctx, "reset", sp, model)
}

func (l *Local) configure(systemPrompt, modelID string) (string, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if systemPrompt != "" {
		l.systemPrompt = systemPrompt
	}
	if modelID != "" {
		l.modelID = modelID
	}
	return l.systemPrompt, l.modelID
}

func (l *Local) create(ctx context.Context, op, systemPrompt, modelID string) (string, error) {
	now := l.now()
	rec := ConversationRecord{
		ID:           l.newID(),
		Title:        DefaultTitle,
		SystemPrompt: systemPrompt,
		ModelID:      modelID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.store.CreateConversation(ctx, rec); err != nil {
		return "", errors.Wrap(err, op)
	}
	log.Debug().Str("conversation", rec.ID).Str("model", modelID).Msg("created conversation")
	return rec.ID, nil
}

func (l *Local) SendMessage(ctx context.Context, content string, parentID conversation.NodeID, conversationID string) (*MessageResult, error) {
	if conversationID == "" {
		return nil, reject("chat", errors.New("conversation id is required"))
	}
	if strings.TrimSpace(content) == "" {
		return nil, reject("chat", errors.New("message cannot be empty"))
	}
	rec, err := l.conversation(ctx, "chat", conversationID)
	if err != nil {
		return nil, err
	}
	rows, err := l.store.ListNodes(ctx, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "chat")
	}
	history, err := l.history(rec, rows, parentID, content)
	if err != nil {
		return nil, err
	}

	completion, err := l.completer.Complete(ctx, CompletionRequest{
		Model:       rec.ModelID,
		Messages:    history,
		Temperature: l.opts.Temperature,
		MaxTokens:   l.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	now := l.now()
	question := conversation.Row{
		ID:        conversation.NodeID(l.newID()),
		ParentID:  parentID,
		Type:      conversation.NodeTypeQuestion,
		Content:   content,
		CreatedAt: now,
	}
	tokens := completion.Usage
	answer := conversation.Row{
		ID:        conversation.NodeID(l.newID()),
		ParentID:  question.ID,
		Type:      conversation.NodeTypeAnswer,
		Content:   completion.Content,
		Tokens:    &tokens,
		CreatedAt: now,
	}
	for _, row := range []conversation.Row{question, answer} {
		if err := l.store.AddNode(ctx, conversationID, row); err != nil {
			return nil, errors.Wrap(err, "chat")
		}
	}

	if parentID == "" {
		rec.Title = TitleFromQuestion(content)
	}
	rec.UpdatedAt = now
	if err := l.store.UpdateConversation(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "chat")
	}

	return &MessageResult{
		QuestionID: question.ID,
		Answer:     Answer{ID: answer.ID, Content: completion.Content, Tokens: tokens},
	}, nil
}

// history builds the model input: the system prompt, the question/answer
// chain of persisted parents leading to parentID, and the new question,
// trimmed to the window.
func (l *Local) history(rec ConversationRecord, rows []conversation.Row, parentID conversation.NodeID, content string) ([]ChatMessage, error) {
	byID := make(map[conversation.NodeID]conversation.Row, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	if _, ok := byID[parentID]; parentID != "" && !ok {
		return nil, reject("chat", errors.Errorf("parent node %s not found", parentID))
	}

	var chain []conversation.Row
	for id := parentID; id != "" && len(chain) < len(rows); {
		r, ok := byID[id]
		if !ok {
			break
		}
		chain = append(chain, r)
		id = r.ParentID
	}

	msgs := make([]ChatMessage, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		role := RoleUser
		if chain[i].Type == conversation.NodeTypeAnswer {
			role = RoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: chain[i].Content})
	}
	msgs = append(msgs, ChatMessage{Role: RoleUser, Content: content})

	if w := l.opts.HistoryWindow; w > 1 && len(msgs) > w-1 {
		msgs = msgs[len(msgs)-(w-1):]
	}
	return append([]ChatMessage{{Role: RoleSystem, Content: rec.SystemPrompt}}, msgs...), nil
}

func (l *Local) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	recs, err := l.store.ListConversations(ctx, ListLimit)
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	return summaries(recs), nil
}

func (l *Local) SearchConversations(ctx context.Context, query string) ([]ConversationSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, reject("search", ErrEmptyQuery)
	}
	recs, err := l.store.SearchConversations(ctx, query, SearchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "search")
	}
	return summaries(recs), nil
}

func (l *Local) LoadConversation(ctx context.Context, id string) (*Conversation, error) {
	rec, err := l.conversation(ctx, "load", id)
	if err != nil {
		return nil, err
	}
	rows, err := l.store.ListNodes(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}
	l.configure(rec.SystemPrompt, rec.ModelID)
	return &Conversation{ConversationSummary: rec.Summary(), Tree: conversation.BuildTree(rows)}, nil
}

func (l *Local) DeleteConversation(ctx context.Context, id string) (int, error) {
	n, err := l.store.DeleteConversation(ctx, id)
	if errors.Is(err, ErrConversationNotFound) {
		return 0, reject("delete", err)
	}
	if err != nil {
		return 0, errors.Wrap(err, "delete")
	}
	return n, nil
}

func (l *Local) RenameConversation(ctx context.Context, id string, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return reject("rename", ErrEmptyTitle)
	}
	rec, err := l.conversation(ctx, "rename", id)
	if err != nil {
		return err
	}
	rec.Title = title
	rec.UpdatedAt = l.now()
	return errors.Wrap(l.store.UpdateConversation(ctx, rec), "rename")
}

func (l *Local) conversation(ctx context.Context, op, id string) (ConversationRecord, error) {
	rec, ok, err := l.store.GetConversation(ctx, id)
	if err != nil {
		return ConversationRecord{}, errors.Wrap(err, op)
	}
	if !ok {
		return ConversationRecord{}, reject(op, ErrConversationNotFound)
	}
	return rec, nil
}

// TitleFromQuestion derives a conversation title from a top-level question.
func TitleFromQuestion(question string) string {
	if utf8.RuneCountInString(question) <= TitleRunes {
		return question
	}
	return string([]rune(question)[:TitleRunes]) + "..."
}

func summaries(recs []ConversationRecord) []ConversationSummary {
	out := make([]ConversationSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Summary())
	}
	return out
}

var _ Backend = (*Local)(nil)
