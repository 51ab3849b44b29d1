package messaging

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// Message is directed and immutable once sent, except for its read flag.
type Message struct {
	ID         int       `json:"id"`
	SenderID   int       `json:"sender_id"`
	ReceiverID int       `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// counterpart returns the other side of the message for `userID`.
func (m Message) counterpart(userID int) int {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

type MessageForm struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (f *MessageForm) Validate(validate *validator.Validate) error {
	f.Content = core.CleanString(f.Content)
	return validate.Struct(f)
}

// Contact is the public profile of a counterpart.
type Contact struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func contactOf(u user.User) Contact {
	return Contact{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Chat struct {
	With        Contact  `json:"with"`
	LastMessage *Message `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
}

type Conversation struct {
	With     Contact   `json:"with"`
	Messages []Message `json:"messages"`
}
