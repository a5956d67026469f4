package orchestrator

import (
	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
)

// Event is something that happened: a user intent or a backend result.
type Event interface {
	EventName() string
}

// Started asks the session to resume the latest conversation, or create one.
type Started struct{}

// ChatSubmitted sends a top-level message.
type ChatSubmitted struct {
	Content string
}

// AnswerExplored is the double activation of an answer.
type AnswerExplored struct {
	AnswerID conversation.NodeID
}

// ExcerptExplored asks about text selected in the detail view of NodeID.
type ExcerptExplored struct {
	NodeID  conversation.NodeID
	Excerpt string
}

// ExplorationRequested asks Prompt under ParentID.
type ExplorationRequested struct {
	ParentID conversation.NodeID
	Prompt   string
}

// NodeSelected is the single activation of a box.
type NodeSelected struct {
	ID conversation.NodeID
}

type DetailClosed struct{}

type ResetRequested struct{}

type ConversationsRefreshed struct{}

type ConversationOpened struct {
	ID string
}

type ConversationRemoved struct {
	ID string
}

type ConversationRetitled struct {
	ID    string
	Title string
}

type ConversationsSearched struct {
	Query string
}

// ConversationInitialized reports the result of an InitConversation.
type ConversationInitialized struct {
	Epoch          int
	ConversationID string
	Err            error
}

// ChatAnswered reports the result of a top-level message.
type ChatAnswered struct {
	Epoch   int
	Content string
	Result  *backend.MessageResult
	Err     error
}

// ExplorationSettled reports the result of an exploration.
type ExplorationSettled struct {
	Pending Pending
	Result  *backend.MessageResult
	Err     error
}

type ConversationReset struct {
	Epoch          int
	ConversationID string
	Err            error
}

type ConversationsListed struct {
	Conversations []backend.ConversationSummary
	// Resume is set when the listing was issued by Started.
	Resume bool
	Err    error
}

type SearchCompleted struct {
	Query   string
	Results []backend.ConversationSummary
	Err     error
}

type ConversationLoaded struct {
	Epoch        int
	Conversation *backend.Conversation
	Err          error
}

type ConversationDeleted struct {
	ID           string
	NodesDeleted int
	Err          error
}

type ConversationRenamed struct {
	ID    string
	Title string
	Err   error
}

// StatusExpired clears the banner with the given sequence number.
type StatusExpired struct {
	Seq int
}

func (Started) EventName() string                 { return "started" }
func (ChatSubmitted) EventName() string           { return "chat-submitted" }
func (AnswerExplored) EventName() string          { return "answer-explored" }
func (ExcerptExplored) EventName() string         { return "excerpt-explored" }
func (ExplorationRequested) EventName() string    { return "exploration-requested" }
func (NodeSelected) EventName() string            { return "node-selected" }
func (DetailClosed) EventName() string            { return "detail-closed" }
func (ResetRequested) EventName() string          { return "reset-requested" }
func (ConversationsRefreshed) EventName() string  { return "conversations-refreshed" }
func (ConversationOpened) EventName() string      { return "conversation-opened" }
func (ConversationRemoved) EventName() string     { return "conversation-removed" }
func (ConversationRetitled) EventName() string    { return "conversation-retitled" }
func (ConversationsSearched) EventName() string   { return "conversations-searched" }
func (ConversationInitialized) EventName() string { return "conversation-initialized" }
func (ChatAnswered) EventName() string            { return "chat-answered" }
func (ExplorationSettled) EventName() string      { return "exploration-settled" }
func (ConversationReset) EventName() string       { return "conversation-reset" }
func (ConversationsListed) EventName() string     { return "conversations-listed" }
func (SearchCompleted) EventName() string         { return "search-completed" }
func (ConversationLoaded) EventName() string      { return "conversation-loaded" }
func (ConversationDeleted) EventName() string     { return "conversation-deleted" }
func (ConversationRenamed) EventName() string     { return "conversation-renamed" }
func (StatusExpired) EventName() string           { return "status-expired" }
