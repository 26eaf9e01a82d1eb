// Package conversation persists the append-only message history behind the
// chat and conversation-history endpoints. Adapted from the teacher's
// syncservice push/pull idiom, simplified: conversation history has no
// concurrent-writer conflict to resolve, so append and list suffice where
// the teacher needed full bidirectional sync.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eaglechat/gateway/internal/apperr"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation's append-only log.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	TenantID       uuid.UUID
	Role           string
	Content        string
	Timestamp      time.Time
	Metadata       json.RawMessage
}

// Store persists conversations and their messages in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ensureConversation returns the conversation id for (tenantID, sessionID),
// creating it on first use. (tenant_id, session_id) is unique, so a racing
// concurrent create hits ON CONFLICT, which bumps updated_at and returns the
// existing row's id.
func (s *Store) ensureConversation(ctx context.Context, tenantID uuid.UUID, sessionID, userIP, userAgent string) (uuid.UUID, error) {
	const insertQ = `
		INSERT INTO conversation (tenant_id, session_id, user_ip, user_agent, created_at, updated_at, metadata)
		VALUES ($1, $2, $3, $4, now(), now(), '{}'::jsonb)
		ON CONFLICT (tenant_id, session_id) DO UPDATE SET updated_at = now()
		RETURNING id`

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, insertQ, tenantID, sessionID, userIP, userAgent).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.StoreUnavailable(err)
	}
	return id, nil
}

// Append adds one message to the (tenant, session) conversation, creating
// the conversation record on first use.
func (s *Store) Append(ctx context.Context, tenantID uuid.UUID, sessionID, userIP, userAgent, role, content string) (*Message, error) {
	convID, err := s.ensureConversation(ctx, tenantID, sessionID, userIP, userAgent)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO conversation_message (conversation_id, tenant_id, role, content, ts, metadata)
		VALUES ($1, $2, $3, $4, now(), '{}'::jsonb)
		RETURNING id, conversation_id, tenant_id, role, content, ts, metadata`

	var m Message
	err = s.pool.QueryRow(ctx, q, convID, tenantID, role, content).
		Scan(&m.ID, &m.ConversationID, &m.TenantID, &m.Role, &m.Content, &m.Timestamp, &m.Metadata)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	return &m, nil
}

// History returns every message for (tenantID, sessionID) in chronological
// order. Returns an empty slice, not an error, if the conversation does not
// exist yet.
func (s *Store) History(ctx context.Context, tenantID uuid.UUID, sessionID string) ([]Message, error) {
	const convQ = `SELECT id FROM conversation WHERE tenant_id = $1 AND session_id = $2`
	var convID uuid.UUID
	err := s.pool.QueryRow(ctx, convQ, tenantID, sessionID).Scan(&convID)
	if errors.Is(err, pgx.ErrNoRows) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}

	const msgQ = `
		SELECT id, conversation_id, tenant_id, role, content, ts, metadata
		FROM conversation_message
		WHERE conversation_id = $1
		ORDER BY ts ASC`

	rows, err := s.pool.Query(ctx, msgQ, convID)
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.TenantID, &m.Role, &m.Content, &m.Timestamp, &m.Metadata); err != nil {
			return nil, apperr.StoreUnavailable(err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}
