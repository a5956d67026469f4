// Package backend holds the contracts a conversation session consumes from
// the service that answers questions and persists conversations, together
// with an HTTP client and an in-process implementation.
package backend

import (
	"context"
	"time"

	"github.com/Yiozolm/Knode/pkg/conversation"
)

const (
	DefaultTitle        = "New conversation"
	DefaultSystemPrompt = "You are a professional knowledge assistant."
	DefaultModelID      = "glm-4.5-air"

	ListLimit   = 50
	SearchLimit = 20
	// TitleRunes bounds titles derived from a top-level question.
	TitleRunes = 50
)

type InitRequest struct {
	SystemPrompt string
	ModelID      string
	// New creates a fresh conversation. Otherwise ConversationID is resumed.
	New            bool
	ConversationID string
}

// Answer is the committed answer returned for a message.
type Answer struct {
	ID      conversation.NodeID
	Content string
	Tokens  conversation.TokenUsage
}

// MessageResult is the committed outcome of SendMessage.
type MessageResult struct {
	QuestionID conversation.NodeID
	Answer     Answer
}

// Node builds the committed question node, with its answer as only child.
func (r *MessageResult) Node(question string) *conversation.Node {
	tokens := r.Answer.Tokens
	return conversation.NewQuestion(r.QuestionID, question,
		conversation.NewAnswer(r.Answer.ID, r.Answer.Content, &tokens))
}

type ConversationSummary struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	SystemPrompt string    `json:"systemPrompt,omitempty" yaml:"system-prompt,omitempty"`
	ModelID      string    `json:"modelId" yaml:"model-id"`
	CreatedAt    time.Time `json:"createdAt" yaml:"created-at"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updated-at"`
}

type Conversation struct {
	ConversationSummary
	Tree *conversation.Node
}

// ConversationReader lists and loads persisted conversations.
type ConversationReader interface {
	ListConversations(ctx context.Context) ([]ConversationSummary, error)
	LoadConversation(ctx context.Context, id string) (*Conversation, error)
	SearchConversations(ctx context.Context, query string) ([]ConversationSummary, error)
}

// ConversationWriter starts, extends and edits conversations.
type ConversationWriter interface {
	InitConversation(ctx context.Context, req InitRequest) (string, error)
	// SendMessage asks content under parentID, or at top level when parentID
	// is empty, and returns the committed ids.
	SendMessage(ctx context.Context, content string, parentID conversation.NodeID, conversationID string) (*MessageResult, error)
	ResetConversation(ctx context.Context) (string, error)
	// DeleteConversation returns the number of deleted nodes.
	DeleteConversation(ctx context.Context, id string) (int, error)
	RenameConversation(ctx context.Context, id string, title string) error
}

// Backend is everything a session needs from the answering service.
type Backend interface {
	ConversationReader
	ConversationWriter
}
