package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eRom/health-sub001/internal/database"
	"github.com/eRom/health-sub001/internal/models"
)

// MessageRepository defines the interface for message operations.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByAssociation(ctx context.Context, associationID uuid.UUID) ([]*models.Message, error)
	MarkRead(ctx context.Context, associationID, recipientID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type messageRepo struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepo{pool: pool}
}

// Create inserts a new message.
func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return database.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO messages (id, association_id, sender_id, recipient_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		msg.ID, msg.AssociationID, msg.SenderID, msg.RecipientID, msg.Body,
	).Scan(&msg.CreatedAt)
}

// ListByAssociation lists the messages of an association, oldest first.
func (r *messageRepo) ListByAssociation(ctx context.Context, associationID uuid.UUID) ([]*models.Message, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, association_id, sender_id, recipient_id, body, read_at, created_at
		FROM messages WHERE association_id = $1
		ORDER BY created_at ASC`, associationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.AssociationID, &m.SenderID, &m.RecipientID, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// MarkRead stamps every unread message addressed to recipientID in the association.
func (r *messageRepo) MarkRead(ctx context.Context, associationID, recipientID uuid.UUID) (int64, error) {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE messages SET read_at = NOW()
		WHERE association_id = $1 AND recipient_id = $2 AND read_at IS NULL`, associationID, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountUnread returns the number of unread messages addressed to recipientID.
func (r *messageRepo) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`, recipientID).Scan(&n)
	return n, err
}

// Compile-time check
var _ MessageRepository = (*messageRepo)(nil)
