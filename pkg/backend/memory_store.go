package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Yiozolm/Knode/pkg/conversation"
)

// InMemoryStore is a thread-safe Store implementation.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]ConversationRecord
	nodes         map[string][]conversation.Row
	closed        bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: map[string]ConversationRecord{},
		nodes:         map[string][]conversation.Row{},
	}
}

func (s *InMemoryStore) ListConversations(_ context.Context, limit int) ([]ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	out := make([]ConversationRecord, 0, len(s.conversations))
	for _, rec := range s.conversations {
		out = append(out, rec)
	}
	return newestFirst(out, limit), nil
}

func (s *InMemoryStore) GetConversation(_ context.Context, id string) (ConversationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return ConversationRecord{}, false, err
	}
	rec, ok := s.conversations[id]
	return rec, ok, nil
}

func (s *InMemoryStore) ListNodes(_ context.Context, conversationID string) ([]conversation.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	rows := s.nodes[conversationID]
	out := make([]conversation.Row, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *InMemoryStore) SearchConversations(_ context.Context, query string, limit int) ([]ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	var out []ConversationRecord
	for id, rec := range s.conversations {
		if strings.Contains(rec.Title, query) {
			out = append(out, rec)
			continue
		}
		for _, row := range s.nodes[id] {
			if strings.Contains(row.Content, query) {
				out = append(out, rec)
				break
			}
		}
	}
	return newestFirst(out, limit), nil
}

func (s *InMemoryStore) CreateConversation(_ context.Context, rec ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("conversation id is empty")
	}
	if _, ok := s.conversations[rec.ID]; ok {
		return fmt.Errorf("conversation %q already exists", rec.ID)
	}
	s.conversations[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) UpdateConversation(_ context.Context, rec ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, ok := s.conversations[rec.ID]; !ok {
		return ErrConversationNotFound
	}
	s.conversations[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) AddNode(_ context.Context, conversationID string, row conversation.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if _, ok := s.conversations[conversationID]; !ok {
		return ErrConversationNotFound
	}
	s.nodes[conversationID] = append(s.nodes[conversationID], row)
	return nil
}

func (s *InMemoryStore) DeleteConversation(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}
	if _, ok := s.conversations[id]; !ok {
		return 0, ErrConversationNotFound
	}
	n := len(s.nodes[id])
	delete(s.nodes, id)
	delete(s.conversations, id)
	return n, nil
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *InMemoryStore) ensureOpen() error {
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

func newestFirst(recs []ConversationRecord, limit int) []ConversationRecord {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UpdatedAt.Equal(recs[j].UpdatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].UpdatedAt.After(recs[j].UpdatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

var _ Store = (*InMemoryStore)(nil)
