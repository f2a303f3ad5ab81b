package chat

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-match/internal/apperr"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const conversationCols = `id, user_a, user_b, created_at, last_message, last_message_at`

// GetOrCreateConversation returns the single conversation for the unordered
// pair, creating it if needed. The pair is normalized to (low, high) and the
// unique index absorbs concurrent first contact: the insert loser simply
// selects the winner's row.
func (r *Repository) GetOrCreateConversation(ctx context.Context, a, b int) (*Conversation, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (user_a, user_b) VALUES ($1, $2)
		 ON CONFLICT (user_a, user_b) DO NOTHING`, lo, hi)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	c := &Conversation{}
	err = r.db.QueryRowContext(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE user_a = $1 AND user_b = $2`, lo, hi).
		Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastMessage, &c.LastMessageAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (r *Repository) GetConversation(ctx context.Context, id int) (*Conversation, error) {
	c := &Conversation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE id = $1`, id).
		Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastMessage, &c.LastMessageAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrConversationNotFound
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

// ListConversations returns the user's conversations, most recently active
// first; never-messaged conversations sort last.
func (r *Repository) ListConversations(ctx context.Context, userID int) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conversationCols+` FROM conversations
		 WHERE user_a = $1 OR user_b = $1
		 ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	out := make([]Conversation, 0)
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastMessage, &c.LastMessageAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const messageCols = `id, conversation_id, sender_id, content, created_at, delivered_at, read_at`

// InsertMessage writes the message and the conversation's denormalized
// last-message fields in one transaction, so a failure leaves no partial
// state.
func (r *Repository) InsertMessage(ctx context.Context, conversationID, senderID int, content string) (*Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer tx.Rollback()

	m := &Message{ConversationID: conversationID, SenderID: senderID, Content: content}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content)
		 VALUES ($1, $2, $3) RETURNING id, created_at`,
		conversationID, senderID, content).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET last_message = $1, last_message_at = $2 WHERE id = $3`,
		content, m.CreatedAt, conversationID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Internal(err)
	}
	return m, nil
}

func (r *Repository) GetMessage(ctx context.Context, id int) (*Message, error) {
	m := &Message{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+messageCols+` FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.DeliveredAt, &m.ReadAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrMessageNotFound
		}
		return nil, apperr.Internal(err)
	}
	return m, nil
}

func (r *Repository) ListMessages(ctx context.Context, conversationID, limit, offset int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageCols+` FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.DeliveredAt, &m.ReadAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkDelivered sets delivered_at once. The IS NULL guard makes repeated
// calls no-ops; updated reports whether this call performed the transition.
func (r *Repository) MarkDelivered(ctx context.Context, messageID int, at time.Time) (updated bool, err error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL`,
		messageID, at)
	if err != nil {
		return false, apperr.Internal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Internal(err)
	}
	return n == 1, nil
}

// MarkRead sets read_at on the selected unread messages, backfilling
// delivered_at with the same instant where it was never set. Only messages
// addressed to the actor qualify; the sender restriction is enforced here so
// no caller can mark their own messages read. Returns the rows transitioned.
func (r *Repository) MarkRead(ctx context.Context, conversationID, actorID int, messageIDs []int, at time.Time) ([]Message, error) {
	query := `UPDATE messages
	          SET read_at = $3, delivered_at = COALESCE(delivered_at, $3)
	          WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`
	args := []any{conversationID, actorID, at}

	if len(messageIDs) > 0 {
		query += ` AND id = ANY($4)`
		args = append(args, messageIDs)
	}
	query += ` RETURNING ` + messageCols

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.DeliveredAt, &m.ReadAt); err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
