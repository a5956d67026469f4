package backend

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/Yiozolm/Knode/pkg/conversation"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteConversationSchemaV1 = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    system_msg TEXT NOT NULL DEFAULT '',
    model_id TEXT NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL,
    updated_at_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS conversation_nodes (
    id TEXT PRIMARY KEY,
    parent_id TEXT,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    node_type TEXT NOT NULL,
    content TEXT NOT NULL,
    tokens_input INTEGER,
    tokens_output INTEGER,
    created_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS conversation_nodes_conversation
    ON conversation_nodes (conversation_id, created_at_ms);
`

// SQLiteStore persists conversations and their nodes in a SQLite database.
type SQLiteStore struct {
	mu     sync.RWMutex
	dsn    string
	db     *sql.DB
	closed bool
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite conversation store: empty dsn")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// an in-memory database only lives as long as its single connection
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{dsn: dsn, db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return errors.Wrap(err, "enable foreign keys")
	}
	if _, err := s.db.Exec(sqliteConversationSchemaV1); err != nil {
		return errors.Wrap(err, "migrate sqlite conversation schema")
	}
	return nil
}

const conversationColumns = `c.id, c.title, c.system_msg, c.model_id, c.created_at_ms, c.updated_at_ms`

func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c
		 ORDER BY c.updated_at_ms DESC, c.id ASC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	return scanConversations(rows)
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (ConversationRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return ConversationRecord{}, false, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.id = ?`, id)
	if err != nil {
		return ConversationRecord{}, false, errors.Wrapf(err, "get conversation %s", id)
	}
	recs, err := scanConversations(rows)
	if err != nil || len(recs) == 0 {
		return ConversationRecord{}, false, err
	}
	return recs[0], true, nil
}

func (s *SQLiteStore) ListNodes(ctx context.Context, conversationID string) ([]conversation.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, node_type, content, tokens_input, tokens_output, created_at_ms
		 FROM conversation_nodes WHERE conversation_id = ?
		 ORDER BY created_at_ms ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, errors.Wrapf(err, "list nodes of %s", conversationID)
	}
	defer func() { _ = rows.Close() }()

	var out []conversation.Row
	for rows.Next() {
		var (
			r              conversation.Row
			parentID       sql.NullString
			nodeType       string
			tokensIn       sql.NullInt64
			tokensOut      sql.NullInt64
			createdAtMilli int64
		)
		if err := rows.Scan(&r.ID, &parentID, &nodeType, &r.Content, &tokensIn, &tokensOut, &createdAtMilli); err != nil {
			return nil, errors.Wrap(err, "scan node")
		}
		r.ParentID = conversation.NodeID(parentID.String)
		r.Type = conversation.NodeType(nodeType)
		if tokensIn.Valid && tokensOut.Valid {
			r.Tokens = &conversation.TokenUsage{Input: int(tokensIn.Int64), Output: int(tokensOut.Int64)}
		}
		r.CreatedAt = time.UnixMilli(createdAtMilli).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SearchConversations(ctx context.Context, query string, limit int) ([]ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT `+conversationColumns+` FROM conversations c
		 LEFT JOIN conversation_nodes n ON c.id = n.conversation_id
		 WHERE c.title LIKE ? OR n.content LIKE ?
		 ORDER BY c.updated_at_ms DESC, c.id ASC LIMIT ?`, pattern, pattern, sqlLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "search conversations")
	}
	return scanConversations(rows)
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, rec ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, system_msg, model_id, created_at_ms, updated_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.SystemPrompt, rec.ModelID, rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli())
	return errors.Wrapf(err, "create conversation %s", rec.ID)
}

func (s *SQLiteStore) UpdateConversation(ctx context.Context, rec ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, system_msg = ?, model_id = ?, updated_at_ms = ? WHERE id = ?`,
		rec.Title, rec.SystemPrompt, rec.ModelID, rec.UpdatedAt.UnixMilli(), rec.ID)
	if err != nil {
		return errors.Wrapf(err, "update conversation %s", rec.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (s *SQLiteStore) AddNode(ctx context.Context, conversationID string, row conversation.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	var parentID, tokensIn, tokensOut interface{}
	if row.ParentID != "" {
		parentID = string(row.ParentID)
	}
	if row.Tokens != nil {
		tokensIn, tokensOut = row.Tokens.Input, row.Tokens.Output
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_nodes
		 (id, parent_id, conversation_id, node_type, content, tokens_input, tokens_output, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(row.ID), parentID, conversationID, string(row.Type), row.Content, tokensIn, tokensOut,
		row.CreatedAt.UnixMilli())
	return errors.Wrapf(err, "add node %s", row.ID)
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin delete")
	}
	defer func() { _ = tx.Rollback() }()

	nodes, err := tx.ExecContext(ctx, `DELETE FROM conversation_nodes WHERE conversation_id = ?`, id)
	if err != nil {
		return 0, errors.Wrapf(err, "delete nodes of %s", id)
	}
	convs, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return 0, errors.Wrapf(err, "delete conversation %s", id)
	}
	if n, err := convs.RowsAffected(); err == nil && n == 0 {
		return 0, ErrConversationNotFound
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit delete")
	}
	deleted, _ := nodes.RowsAffected()
	return int(deleted), nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) ensureOpen() error {
	if s.closed {
		return fmt.Errorf("sqlite conversation store is closed")
	}
	return nil
}

func scanConversations(rows *sql.Rows) ([]ConversationRecord, error) {
	defer func() { _ = rows.Close() }()
	var out []ConversationRecord
	for rows.Next() {
		var (
			rec              ConversationRecord
			created, updated int64
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.SystemPrompt, &rec.ModelID, &created, &updated); err != nil {
			return nil, errors.Wrap(err, "scan conversation")
		}
		rec.CreatedAt = time.UnixMilli(created).UTC()
		rec.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

var _ Store = (*SQLiteStore)(nil)
