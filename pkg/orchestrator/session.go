package orchestrator

import (
	"context"
	"sync"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Publisher receives session notifications. events.PublisherManager
// implements it.
type Publisher interface {
	PublishBlind(payload interface{})
}

// Session owns a State and applies events to it one at a time. Commands run
// concurrently and report back through the same event queue.
type Session struct {
	orch   *Orchestrator
	runner *Runner

	events chan Event
	done   chan struct{}

	mu    sync.RWMutex
	state State

	publisher Publisher
	onChange  func(State)
}

type SessionOption func(*Session)

func WithPublisher(p Publisher) SessionOption {
	return func(s *Session) { s.publisher = p }
}

// WithOnChange registers a callback invoked with every new state, from the
// session goroutine.
func WithOnChange(f func(State)) SessionOption {
	return func(s *Session) { s.onChange = f }
}

func NewSession(orch *Orchestrator, runner *Runner, initial State, options ...SessionOption) *Session {
	s := &Session{
		orch:   orch,
		runner: runner,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		state:  initial,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ErrSessionClosed is returned by Dispatch after Run returned.
var ErrSessionClosed = errors.New("session closed")

// Dispatch queues ev. It blocks while the queue is full.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run processes events until ctx is cancelled, then waits for the running
// commands to return.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()

		case ev := <-s.events:
			for _, cmd := range s.step(ev) {
				wg.Add(1)
				go func(cmd Command) {
					defer wg.Done()
					result := s.runner.Run(ctx, cmd)
					select {
					case s.events <- result:
					case <-ctx.Done():
					}
				}(cmd)
			}
		}
	}
}

func (s *Session) step(ev Event) []Command {
	s.mu.Lock()
	prev := s.state
	next, cmds := s.orch.Update(prev, ev)
	s.state = next
	s.mu.Unlock()

	log.Debug().
		Str("event", ev.EventName()).
		Int("commands", len(cmds)).
		Int64("version", next.Tree.Version).
		Msg("session event")

	s.notify(prev, next)
	return cmds
}

func (s *Session) notify(prev, next State) {
	if s.onChange != nil {
		s.onChange(next)
	}
	if s.publisher == nil {
		return
	}
	meta := func() events.EventMetadata {
		return events.NewMetadata(next.ConversationID(), next.Epoch)
	}
	if prev.ConversationID() != next.ConversationID() || prev.Title != next.Title {
		s.publisher.PublishBlind(events.NewConversationEvent(meta(), next.Title))
	}
	if prev.Tree != next.Tree {
		s.publisher.PublishBlind(events.NewTreeUpdatedEvent(meta(),
			next.Tree.Version, conversation.Count(next.Tree.Root), len(next.InFlight)))
	}
	if prev.Status != next.Status {
		s.publisher.PublishBlind(events.NewStatusEvent(meta(), string(next.Status.Kind), next.Status.Message))
	}
}
