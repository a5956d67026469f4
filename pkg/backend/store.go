package backend

import (
	"context"
	"time"

	"github.com/Yiozolm/Knode/pkg/conversation"
)

// ConversationRecord is a persisted conversation header.
type ConversationRecord struct {
	ID           string
	Title        string
	SystemPrompt string
	ModelID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r ConversationRecord) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           r.ID,
		Title:        r.Title,
		SystemPrompt: r.SystemPrompt,
		ModelID:      r.ModelID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// StoreReader provides read access to conversations and their nodes.
type StoreReader interface {
	// ListConversations returns at most limit conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, limit int) ([]ConversationRecord, error)
	GetConversation(ctx context.Context, id string) (ConversationRecord, bool, error)
	// ListNodes returns the rows of a conversation in creation order.
	ListNodes(ctx context.Context, conversationID string) ([]conversation.Row, error)
	// SearchConversations matches query against titles and node contents.
	SearchConversations(ctx context.Context, query string, limit int) ([]ConversationRecord, error)
}

// StoreWriter provides write access to conversations and their nodes.
type StoreWriter interface {
	CreateConversation(ctx context.Context, rec ConversationRecord) error
	UpdateConversation(ctx context.Context, rec ConversationRecord) error
	AddNode(ctx context.Context, conversationID string, row conversation.Row) error
	// DeleteConversation removes a conversation and returns how many nodes
	// went with it.
	DeleteConversation(ctx context.Context, id string) (int, error)
	Close() error
}

// Store is the persistence abstraction used by the local backend.
type Store interface {
	StoreReader
	StoreWriter
}
