package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core/messaging"
)

type messageRepository struct {
	db *DB
}

var _ messaging.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(_ context.Context, m messaging.Message) (messaging.Message, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m.ID = repo.db.nextID("messages")
	repo.db.messages[m.ID] = m
	return m, nil
}

// QueryConversation relies on ids growing with creation time.
func (repo *messageRepository) QueryConversation(_ context.Context, a, b int) ([]messaging.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	msgs := make([]messaging.Message, 0)
	for _, m := range values(repo.db.messages) {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (repo *messageRepository) MarkRead(_ context.Context, receiverID, senderID int) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, m := range repo.db.messages {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			m.IsRead = true
			repo.db.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (repo *messageRepository) CountUnread(_ context.Context, receiverID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, m := range repo.db.messages {
		if m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (repo *messageRepository) UnreadBySender(_ context.Context, receiverID int) (map[int]int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	counts := make(map[int]int)
	for _, m := range repo.db.messages {
		if m.ReceiverID == receiverID && !m.IsRead {
			counts[m.SenderID]++
		}
	}
	return counts, nil
}

func (repo *messageRepository) LastMessages(_ context.Context, userID int) ([]messaging.Message, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	last := make(map[int]messaging.Message) // by counterpart
	order := make([]int, 0)
	for _, m := range values(repo.db.messages) {
		var other int
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if _, seen := last[other]; !seen {
			order = append(order, other)
		}
		last[other] = m
	}

	msgs := make([]messaging.Message, len(order))
	for i, other := range order {
		msgs[i] = last[other]
	}
	return msgs, nil
}

func (repo *messageRepository) HasSent(_ context.Context, senderID, receiverID int) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, m := range repo.db.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID {
			return true, nil
		}
	}
	return false, nil
}
