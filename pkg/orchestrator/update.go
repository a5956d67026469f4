package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/rs/zerolog/log"
)

const DefaultStatusTTL = 5 * time.Second

// Orchestrator holds the pure transition function of a session. It never
// performs I/O: side effects are returned as Commands.
type Orchestrator struct {
	prompter         *Prompter
	statusTTL        time.Duration
	newPlaceholderID func() conversation.NodeID
}

type Option func(*Orchestrator)

func WithStatusTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.statusTTL = ttl }
}

func WithPlaceholderIDs(f func() conversation.NodeID) Option {
	return func(o *Orchestrator) { o.newPlaceholderID = f }
}

func New(prompter *Prompter, options ...Option) *Orchestrator {
	o := &Orchestrator{
		prompter:         prompter,
		statusTTL:        DefaultStatusTTL,
		newPlaceholderID: conversation.NewPlaceholderID,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Update computes the state that follows ev and the commands to run.
func (o *Orchestrator) Update(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case Started:
		return s, []Command{ListConversationsCmd{Resume: true}}

	case ChatSubmitted:
		return o.chat(s, ev)
	case ChatAnswered:
		return o.chatAnswered(s, ev)

	case AnswerExplored:
		answer, ok := s.Tree.Find(ev.AnswerID)
		if !ok {
			log.Debug().Str("node", ev.AnswerID.String()).Msg("explored answer not in tree")
			return s, nil
		}
		prompt, err := o.prompter.AnswerPrompt(answer.Content)
		if err != nil {
			return o.status(s, StatusError, err.Error())
		}
		return o.explore(s, ev.AnswerID, prompt)
	case ExcerptExplored:
		if strings.TrimSpace(ev.Excerpt) == "" {
			return s, nil
		}
		prompt, err := o.prompter.ExcerptPrompt(ev.Excerpt)
		if err != nil {
			return o.status(s, StatusError, err.Error())
		}
		return o.explore(s, ev.NodeID, prompt)
	case ExplorationRequested:
		if strings.TrimSpace(ev.Prompt) == "" {
			return s, nil
		}
		return o.explore(s, ev.ParentID, ev.Prompt)
	case ExplorationSettled:
		return o.settle(s, ev)

	case NodeSelected:
		if _, ok := s.Tree.Find(ev.ID); ok {
			s.Selected = ev.ID
		}
		return s, nil
	case DetailClosed:
		s.Selected = ""
		return s, nil

	case ResetRequested:
		s = s.discardTree("")
		s.Title = ""
		s.Initializing = true
		return s, []Command{ResetConversationCmd{Epoch: s.Epoch}}
	case ConversationReset:
		return o.initialized(s, ev.Epoch, ev.ConversationID, ev.Err)
	case ConversationInitialized:
		return o.initialized(s, ev.Epoch, ev.ConversationID, ev.Err)

	case ConversationsRefreshed:
		return s, []Command{ListConversationsCmd{}}
	case ConversationsListed:
		return o.listed(s, ev)

	case ConversationOpened:
		if ev.ID == "" {
			return s, nil
		}
		return s, []Command{LoadConversationCmd{Epoch: s.Epoch, ID: ev.ID}}
	case ConversationLoaded:
		return o.loaded(s, ev)

	case ConversationRemoved:
		if ev.ID == "" {
			return s, nil
		}
		return s, []Command{DeleteConversationCmd{ID: ev.ID}}
	case ConversationDeleted:
		return o.deleted(s, ev)

	case ConversationRetitled:
		title := strings.TrimSpace(ev.Title)
		if title == "" {
			return o.status(s, StatusError, backend.ErrEmptyTitle.Error())
		}
		return s, []Command{RenameConversationCmd{ID: ev.ID, Title: title}}
	case ConversationRenamed:
		if ev.Err != nil {
			return o.status(s, StatusError, "Rename failed: "+backend.Message(ev.Err))
		}
		if ev.ID == s.ConversationID() {
			s.Title = ev.Title
		}
		var cmds []Command
		s, cmds = o.status(s, StatusSuccess, "Conversation renamed")
		return s, append(cmds, ListConversationsCmd{})

	case ConversationsSearched:
		query := strings.TrimSpace(ev.Query)
		s.SearchQuery = query
		if query == "" {
			s.SearchResults = nil
			return s, nil
		}
		return s, []Command{SearchConversationsCmd{Query: query}}
	case SearchCompleted:
		if ev.Query != s.SearchQuery {
			return s, nil
		}
		if ev.Err != nil {
			return o.status(s, StatusError, "Search failed: "+backend.Message(ev.Err))
		}
		s.SearchResults = ev.Results
		return s, nil

	case StatusExpired:
		if ev.Seq == s.Status.Seq {
			s.Status = Status{Seq: s.Status.Seq}
		}
		return s, nil
	}

	log.Warn().Str("event", fmt.Sprintf("%T", ev)).Msg("unhandled event")
	return s, nil
}

// chat sends a top-level message. Top-level messages have no placeholder:
// the tree changes once the answer is committed.
func (o *Orchestrator) chat(s State, ev ChatSubmitted) (State, []Command) {
	content := strings.TrimSpace(ev.Content)
	if content == "" {
		return s, nil
	}
	if s.ConversationID() == "" {
		queued := make([]string, 0, len(s.Queued)+1)
		queued = append(queued, s.Queued...)
		s.Queued = append(queued, content)
		if s.Initializing {
			return s, nil
		}
		s.Initializing = true
		return s, []Command{o.initCmd(s)}
	}
	s.Chats++
	return s, []Command{SendMessageCmd{
		Epoch:          s.Epoch,
		ConversationID: s.ConversationID(),
		Content:        content,
	}}
}

func (o *Orchestrator) initCmd(s State) Command {
	return InitConversationCmd{
		Epoch: s.Epoch,
		Request: backend.InitRequest{
			SystemPrompt: s.SystemPrompt,
			ModelID:      s.ModelID,
			New:          true,
		},
	}
}

func (o *Orchestrator) chatAnswered(s State, ev ChatAnswered) (State, []Command) {
	if ev.Epoch != s.Epoch {
		log.Debug().Int("epoch", ev.Epoch).Msg("dropping answer for a discarded tree")
		return s, nil
	}
	if s.Chats > 0 {
		s.Chats--
	}
	if ev.Err != nil {
		return o.status(s, StatusError, "Chat failed: "+backend.Message(ev.Err))
	}
	tree, err := s.Tree.Apply(conversation.MutatePrependQuestion(ev.Result.Node(ev.Content)))
	if err != nil {
		return o.status(s, StatusError, err.Error())
	}
	s.Tree = tree
	s.Title = backend.TitleFromQuestion(ev.Content)
	return s, []Command{ListConversationsCmd{}}
}

// explore inserts a loading placeholder under parentID and asks prompt there.
// A parent that is not in the tree makes the exploration a no-op. A parent
// that is still loading is rejected: its id is replaced once it settles.
func (o *Orchestrator) explore(s State, parentID conversation.NodeID, prompt string) (State, []Command) {
	if s.ConversationID() == "" {
		return o.status(s, StatusError, "Start a conversation before exploring")
	}
	if _, pending := s.InFlight[parentID]; pending || parentID.IsPlaceholder() {
		return o.status(s, StatusError, "Wait for the answer before exploring it")
	}
	if _, ok := s.Tree.Find(parentID); !ok {
		log.Debug().Str("parent", parentID.String()).Msg("exploration parent not in tree")
		return s, nil
	}
	p := Pending{
		ID:             o.newPlaceholderID(),
		ParentID:       parentID,
		Prompt:         prompt,
		ConversationID: s.ConversationID(),
	}
	tree, err := s.Tree.Apply(p.Insert())
	if err != nil {
		return o.status(s, StatusError, err.Error())
	}
	s.Tree = tree
	s = s.withInFlight(p)
	s, cmds := o.status(s, StatusInfo, "Exploring...")
	return s, append(cmds, SendMessageCmd{
		Epoch:          s.Epoch,
		ConversationID: p.ConversationID,
		Content:        p.Prompt,
		ParentID:       p.ParentID,
		Pending:        &p,
	})
}

func (o *Orchestrator) settle(s State, ev ExplorationSettled) (State, []Command) {
	p, ok := s.InFlight[ev.Pending.ID]
	if !ok {
		log.Debug().Str("placeholder", ev.Pending.ID.String()).Msg("dropping settlement of unknown placeholder")
		return s, nil
	}
	s = s.withoutInFlight(p.ID)

	var settlement Settlement
	if ev.Err != nil {
		settlement = p.Fail(backend.Message(ev.Err))
	} else {
		settlement = p.Resolve(ev.Result)
	}
	tree, err := s.Tree.Apply(settlement.Mutation())
	if err != nil {
		return o.status(s, StatusError, err.Error())
	}
	s.Tree = tree

	if f, failed := settlement.(Failed); failed {
		return o.status(s, StatusError, "Exploration failed: "+f.Reason)
	}
	s, cmds := o.status(s, StatusSuccess, "Exploration complete")
	return s, append(cmds, ListConversationsCmd{})
}

func (o *Orchestrator) initialized(s State, epoch int, id string, err error) (State, []Command) {
	if epoch != s.Epoch {
		return s, nil
	}
	s.Initializing = false
	if err != nil {
		dropped := len(s.Queued)
		s.Queued = nil
		msg := "Failed to start conversation: " + backend.Message(err)
		if dropped > 0 {
			msg = fmt.Sprintf("%s (%d message(s) not sent)", msg, dropped)
		}
		return o.status(s, StatusError, msg)
	}
	s.Tree = s.Tree.WithID(id)

	var cmds []Command
	for _, content := range s.Queued {
		s.Chats++
		cmds = append(cmds, SendMessageCmd{Epoch: s.Epoch, ConversationID: id, Content: content})
	}
	s.Queued = nil
	return s, append(cmds, ListConversationsCmd{})
}

func (o *Orchestrator) listed(s State, ev ConversationsListed) (State, []Command) {
	if ev.Err != nil {
		var cmds []Command
		s, cmds = o.status(s, StatusError, "Failed to list conversations: "+backend.Message(ev.Err))
		if ev.Resume && s.ConversationID() == "" && !s.Initializing {
			s.Initializing = true
			cmds = append(cmds, o.initCmd(s))
		}
		return s, cmds
	}
	s.Conversations = ev.Conversations
	for _, c := range ev.Conversations {
		if c.ID == s.ConversationID() {
			s.Title = c.Title
		}
	}
	if !ev.Resume || s.ConversationID() != "" || s.Initializing {
		return s, nil
	}
	if len(ev.Conversations) > 0 {
		return s, []Command{LoadConversationCmd{Epoch: s.Epoch, ID: ev.Conversations[0].ID}}
	}
	s.Initializing = true
	return s, []Command{o.initCmd(s)}
}

func (o *Orchestrator) loaded(s State, ev ConversationLoaded) (State, []Command) {
	if ev.Epoch != s.Epoch {
		return s, nil
	}
	if ev.Err != nil {
		return o.status(s, StatusError, "Failed to load conversation: "+backend.Message(ev.Err))
	}
	c := ev.Conversation
	queued := s.Queued
	s = s.discardTree(c.ID)
	s.Queued = nil
	tree, err := s.Tree.Apply(conversation.MutateLoad(c.Tree))
	if err != nil {
		return o.status(s, StatusError, err.Error())
	}
	s.Tree = tree
	s.Title = c.Title
	if c.SystemPrompt != "" {
		s.SystemPrompt = c.SystemPrompt
	}
	if c.ModelID != "" {
		s.ModelID = c.ModelID
	}
	s, cmds := o.status(s, StatusSuccess, "Conversation loaded")
	// messages typed while a new conversation was being created go to the
	// loaded one instead
	for _, content := range queued {
		s.Chats++
		cmds = append(cmds, SendMessageCmd{Epoch: s.Epoch, ConversationID: c.ID, Content: content})
	}
	return s, cmds
}

func (o *Orchestrator) deleted(s State, ev ConversationDeleted) (State, []Command) {
	if ev.Err != nil {
		return o.status(s, StatusError, "Delete failed: "+backend.Message(ev.Err))
	}
	s, cmds := o.status(s, StatusSuccess, fmt.Sprintf("Deleted %d nodes", ev.NodesDeleted))
	if ev.ID == s.ConversationID() {
		s = s.discardTree("")
		s.Title = ""
		s.Initializing = true
		cmds = append(cmds, ResetConversationCmd{Epoch: s.Epoch})
	}
	return s, append(cmds, ListConversationsCmd{})
}

// status replaces the banner and schedules its expiry.
func (o *Orchestrator) status(s State, kind StatusKind, message string) (State, []Command) {
	s.Status = Status{Seq: s.Status.Seq + 1, Kind: kind, Message: message}
	if o.statusTTL <= 0 {
		return s, nil
	}
	return s, []Command{ExpireStatusCmd{Seq: s.Status.Seq, After: o.statusTTL}}
}
