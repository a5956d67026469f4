package orchestrator

import (
	"context"
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Runner performs Commands against a backend.
type Runner struct {
	backend backend.Backend
}

func NewRunner(b backend.Backend) *Runner {
	return &Runner{backend: b}
}

// Run executes cmd and returns the event reporting its outcome. Failures are
// carried in the event, never returned.
func (r *Runner) Run(ctx context.Context, cmd Command) Event {
	log.Debug().Str("command", cmd.CommandName()).Msg("running command")

	switch cmd := cmd.(type) {
	case InitConversationCmd:
		id, err := r.backend.InitConversation(ctx, cmd.Request)
		return ConversationInitialized{Epoch: cmd.Epoch, ConversationID: id, Err: err}

	case SendMessageCmd:
		res, err := r.backend.SendMessage(ctx, cmd.Content, cmd.ParentID, cmd.ConversationID)
		if cmd.Pending != nil {
			return ExplorationSettled{Pending: *cmd.Pending, Result: res, Err: err}
		}
		return ChatAnswered{Epoch: cmd.Epoch, Content: cmd.Content, Result: res, Err: err}

	case ResetConversationCmd:
		id, err := r.backend.ResetConversation(ctx)
		return ConversationReset{Epoch: cmd.Epoch, ConversationID: id, Err: err}

	case ListConversationsCmd:
		list, err := r.backend.ListConversations(ctx)
		return ConversationsListed{Conversations: list, Resume: cmd.Resume, Err: err}

	case SearchConversationsCmd:
		results, err := r.backend.SearchConversations(ctx, cmd.Query)
		return SearchCompleted{Query: cmd.Query, Results: results, Err: err}

	case LoadConversationCmd:
		c, err := r.backend.LoadConversation(ctx, cmd.ID)
		return ConversationLoaded{Epoch: cmd.Epoch, Conversation: c, Err: err}

	case DeleteConversationCmd:
		n, err := r.backend.DeleteConversation(ctx, cmd.ID)
		return ConversationDeleted{ID: cmd.ID, NodesDeleted: n, Err: err}

	case RenameConversationCmd:
		err := r.backend.RenameConversation(ctx, cmd.ID, cmd.Title)
		return ConversationRenamed{ID: cmd.ID, Title: cmd.Title, Err: err}

	case ExpireStatusCmd:
		t := time.NewTimer(cmd.After)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
		return StatusExpired{Seq: cmd.Seq}
	}

	panic(errors.Errorf("unknown command %T", cmd))
}

// Drive applies evs and then runs every resulting command in order, feeding
// each outcome back, until no command is left. Status expiries are skipped.
// It is the synchronous counterpart of Session, used by one-shot commands.
func Drive(ctx context.Context, o *Orchestrator, r *Runner, s State, evs ...Event) (State, error) {
	queue := append([]Event{}, evs...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		ev := queue[0]
		queue = queue[1:]

		var cmds []Command
		s, cmds = o.Update(s, ev)
		for _, cmd := range cmds {
			if _, ok := cmd.(ExpireStatusCmd); ok {
				continue
			}
			queue = append(queue, r.Run(ctx, cmd))
		}
	}
	return s, nil
}
