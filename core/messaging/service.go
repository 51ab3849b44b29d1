package messaging

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

const (
	searchMinLen     = 2
	adminSearchLimit = 10
)

var ErrSelfMessage = core.NewFieldError("user_id", "you cannot message yourself")

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		// QueryConversation returns the messages exchanged by a and b, oldest first.
		QueryConversation(ctx context.Context, a, b int) ([]Message, error)
		// MarkRead flags the messages sent by senderID to receiverID as read.
		MarkRead(ctx context.Context, receiverID, senderID int) (int, error)
		CountUnread(ctx context.Context, receiverID int) (int, error)
		// UnreadBySender counts the unread messages of receiverID per sender.
		UnreadBySender(ctx context.Context, receiverID int) (map[int]int, error)
		// LastMessages returns the latest message of each conversation userID takes part in.
		LastMessages(ctx context.Context, userID int) ([]Message, error)
		// HasSent reports whether senderID ever sent a message to receiverID.
		HasSent(ctx context.Context, senderID, receiverID int) (bool, error)
	}

	Service struct {
		repo     Repository
		resolver *Resolver
		policy   *access.Evaluator
		users    UserQuerier
		validate *validator.Validate
		now      func() time.Time
	}
)

func NewService(repo Repository, policy *access.Evaluator, users UserQuerier, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		resolver: NewResolver(policy, users),
		policy:   policy,
		users:    users,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (svc *Service) Resolver() *Resolver { return svc.resolver }

// counterpart loads the other side of a conversation and checks the actor may read it.
func (svc *Service) counterpart(ctx context.Context, actor user.User, otherID int) (user.User, error) {
	if otherID == actor.ID {
		return user.User{}, ErrSelfMessage
	}
	other, err := svc.users.GetByID(ctx, otherID)
	if err != nil {
		return user.User{}, err
	}
	if err = access.Require(svc.policy.CanConverse(ctx, actor, other)); err != nil {
		return user.User{}, err
	}
	return other, nil
}

// canSend allows messaging the actor's allowed counterparts, and replying to
// anyone who already wrote to the actor.
func (svc *Service) canSend(ctx context.Context, actor, receiver user.User) (bool, error) {
	ok, err := svc.policy.CanMessage(ctx, actor, receiver)
	if err != nil || ok {
		return ok, err
	}
	ok, err = svc.repo.HasSent(ctx, receiver.ID, actor.ID)
	return ok, errors.Wrap(err, "looking up earlier messages")
}

// Chats lists the actor's allowed counterparts and the people they already talk to,
// most recent conversation first.
func (svc *Service) Chats(ctx context.Context, actor user.User) ([]Chat, error) {
	allowed, err := svc.resolver.AllowedCounterparts(ctx, actor, "", 0)
	if err != nil {
		return nil, err
	}
	last, err := svc.repo.LastMessages(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying last messages")
	}
	unread, err := svc.repo.UnreadBySender(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "counting unread messages")
	}

	lastByUser := make(map[int]Message, len(last))
	for _, m := range last {
		lastByUser[m.counterpart(actor.ID)] = m
	}

	chats := make([]Chat, 0, len(allowed)+len(last))
	listed := map[int]bool{}
	add := func(u user.User) {
		listed[u.ID] = true
		c := Chat{With: contactOf(u), UnreadCount: unread[u.ID]}
		if m, ok := lastByUser[u.ID]; ok {
			c.LastMessage = &m
		}
		chats = append(chats, c)
	}
	for _, u := range allowed {
		add(u)
	}

	// people outside the scope who may still converse with the actor
	var extra []int
	for id := range lastByUser {
		if !listed[id] {
			extra = append(extra, id)
		}
	}
	if len(extra) > 0 {
		users, err := svc.users.Query(ctx, &user.QueryFilter{IDs: extra}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying users")
		}
		for _, u := range users {
			ok, err := svc.policy.CanConverse(ctx, actor, u)
			if err != nil {
				return nil, errors.Wrap(err, "evaluating access policy")
			}
			if ok {
				add(u)
			}
		}
	}

	sort.SliceStable(chats, func(i, j int) bool {
		li, lj := chats[i].LastMessage, chats[j].LastMessage
		switch {
		case li != nil && lj != nil:
			return li.CreatedAt.After(lj.CreatedAt)
		case li != nil || lj != nil:
			return li != nil
		}
		return chats[i].With.Name < chats[j].With.Name
	})
	return chats, nil
}

// Conversation returns the messages exchanged with another user and marks the incoming ones as read.
func (svc *Service) Conversation(ctx context.Context, actor user.User, otherID int) (Conversation, error) {
	other, err := svc.counterpart(ctx, actor, otherID)
	if err != nil {
		return Conversation{}, err
	}
	if _, err = svc.repo.MarkRead(ctx, actor.ID, other.ID); err != nil {
		return Conversation{}, errors.Wrap(err, "marking messages as read")
	}
	msgs, err := svc.repo.QueryConversation(ctx, actor.ID, other.ID)
	if err != nil {
		return Conversation{}, errors.Wrap(err, "querying conversation")
	}
	return Conversation{With: contactOf(other), Messages: msgs}, nil
}

// Send delivers a message from the actor. Users outside the actor's allowed set
// can only be answered once they have written first.
func (svc *Service) Send(ctx context.Context, actor user.User, receiverID int, form MessageForm) (Message, error) {
	if err := form.Validate(svc.validate); err != nil {
		return Message{}, err
	}
	if receiverID == actor.ID {
		return Message{}, ErrSelfMessage
	}
	receiver, err := svc.users.GetByID(ctx, receiverID)
	if err != nil {
		return Message{}, err
	}
	if err = access.Require(svc.canSend(ctx, actor, receiver)); err != nil {
		return Message{}, err
	}
	m, err := svc.repo.CreateMessage(ctx, Message{
		SenderID:   actor.ID,
		ReceiverID: receiver.ID,
		Content:    form.Content,
		CreatedAt:  svc.now(),
	})
	return m, errors.Wrap(err, "creating message")
}

func (svc *Service) UnreadCount(ctx context.Context, actor user.User) (int, error) {
	n, err := svc.repo.CountUnread(ctx, actor.ID)
	return n, errors.Wrap(err, "counting unread messages")
}

// SearchUsers finds counterparts by name, email or student code. Queries shorter than
// two characters return nothing; admins search every user, capped at ten results.
func (svc *Service) SearchUsers(ctx context.Context, actor user.User, q string) ([]Contact, error) {
	q = core.CleanString(q)
	if utf8.RuneCountInString(q) < searchMinLen {
		return []Contact{}, nil
	}
	limit := 0
	if actor.IsAdmin() {
		limit = adminSearchLimit
	}
	users, err := svc.resolver.AllowedCounterparts(ctx, actor, q, limit)
	if err != nil {
		return nil, err
	}
	contacts := make([]Contact, len(users))
	for i, u := range users {
		contacts[i] = contactOf(u)
	}
	return contacts, nil
}
