package orchestrator

import (
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
)

// Command is a side effect requested by Update. Each command produces
// exactly one Event when run.
type Command interface {
	CommandName() string
}

type InitConversationCmd struct {
	Epoch   int
	Request backend.InitRequest
}

// SendMessageCmd asks a question. Pending is set for explorations.
type SendMessageCmd struct {
	Epoch          int
	ConversationID string
	Content        string
	ParentID       conversation.NodeID
	Pending        *Pending
}

type ResetConversationCmd struct {
	Epoch int
}

type ListConversationsCmd struct {
	Resume bool
}

type SearchConversationsCmd struct {
	Query string
}

type LoadConversationCmd struct {
	Epoch int
	ID    string
}

type DeleteConversationCmd struct {
	ID string
}

type RenameConversationCmd struct {
	ID    string
	Title string
}

// ExpireStatusCmd waits After and then reports StatusExpired.
type ExpireStatusCmd struct {
	Seq   int
	After time.Duration
}

func (InitConversationCmd) CommandName() string    { return "init-conversation" }
func (SendMessageCmd) CommandName() string         { return "send-message" }
func (ResetConversationCmd) CommandName() string   { return "reset-conversation" }
func (ListConversationsCmd) CommandName() string   { return "list-conversations" }
func (SearchConversationsCmd) CommandName() string { return "search-conversations" }
func (LoadConversationCmd) CommandName() string    { return "load-conversation" }
func (DeleteConversationCmd) CommandName() string  { return "delete-conversation" }
func (RenameConversationCmd) CommandName() string  { return "rename-conversation" }
func (ExpireStatusCmd) CommandName() string        { return "expire-status" }
