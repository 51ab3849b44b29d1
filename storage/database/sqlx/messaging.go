package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/messaging"
)

const messageColumns = `id, sender_id, receiver_id, content, is_read, created_at`

type messageRow struct {
	ID         int       `db:"id"`
	SenderID   int       `db:"sender_id"`
	ReceiverID int       `db:"receiver_id"`
	Content    string    `db:"content"`
	IsRead     bool      `db:"is_read"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r messageRow) message() messaging.Message {
	return messaging.Message(r)
}

func toMessages(rows []messageRow) []messaging.Message {
	msgs := make([]messaging.Message, len(rows))
	for i, r := range rows {
		msgs[i] = r.message()
	}
	return msgs
}

type messageRepository struct {
	db *sqlx.DB
}

var _ messaging.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, m messaging.Message) (messaging.Message, error) {
	id, err := insert(ctx, repo.db, `INSERT INTO messages (sender_id, receiver_id, content, is_read, created_at)
		VALUES (:sender_id, :receiver_id, :content, :is_read, :created_at) RETURNING id`, messageRow(m))
	if err != nil {
		return messaging.Message{}, errors.Wrap(err, "inserting message")
	}
	m.ID = id
	return m, nil
}

func (repo *messageRepository) QueryConversation(ctx context.Context, a, b int) ([]messaging.Message, error) {
	var rows []messageRow
	q := `SELECT ` + messageColumns + ` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q, a, b); err != nil {
		return nil, errors.Wrap(err, "selecting conversation")
	}
	return toMessages(rows), nil
}

func (repo *messageRepository) MarkRead(ctx context.Context, receiverID, senderID int) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read`,
		receiverID, senderID)
	if err != nil {
		return 0, errors.Wrap(err, "marking messages as read")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "marking messages as read")
}

func (repo *messageRepository) CountUnread(ctx context.Context, receiverID int) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT is_read`, receiverID)
	return n, errors.Wrap(err, "counting unread messages")
}

func (repo *messageRepository) UnreadBySender(ctx context.Context, receiverID int) (map[int]int, error) {
	var rows []struct {
		SenderID int `db:"sender_id"`
		Count    int `db:"count"`
	}
	q := `SELECT sender_id, COUNT(*) AS count FROM messages WHERE receiver_id = $1 AND NOT is_read GROUP BY sender_id`
	if err := repo.db.SelectContext(ctx, &rows, q, receiverID); err != nil {
		return nil, errors.Wrap(err, "counting unread messages")
	}
	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[r.SenderID] = r.Count
	}
	return counts, nil
}

func (repo *messageRepository) LastMessages(ctx context.Context, userID int) ([]messaging.Message, error) {
	var rows []messageRow
	q := `SELECT DISTINCT ON (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id)) ` + messageColumns + `
		FROM messages WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id), created_at DESC, id DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "selecting last messages")
	}
	return toMessages(rows), nil
}

func (repo *messageRepository) HasSent(ctx context.Context, senderID, receiverID int) (bool, error) {
	var ok bool
	err := repo.db.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE sender_id = $1 AND receiver_id = $2)`, senderID, receiverID)
	return ok, errors.Wrap(err, "looking up messages")
}
