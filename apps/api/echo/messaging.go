package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/messaging"
)

func (s *server) registerMessagingAPI(g *echo.Group) {
	mg := g.Group("/messages")
	mg.GET("", s.queryChats)
	mg.GET("/unread", s.unreadMessages)
	mg.GET("/:user_id", s.retrieveConversation)
	mg.POST("/:user_id", s.sendMessage)
}

func (s *server) queryChats(ctx echo.Context) error {
	chats, err := s.MessagingSvc.Chats(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "listing chats")
	}
	return ctx.JSON(http.StatusOK, chats)
}

func (s *server) unreadMessages(ctx echo.Context) error {
	n, err := s.MessagingSvc.UnreadCount(ctx.Request().Context(), contextUser(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UnreadResponse{UnreadCount: n})
}

// retrieveConversation also marks the incoming messages as read.
func (s *server) retrieveConversation(ctx echo.Context) error {
	otherID, err := idParam(ctx, "user_id")
	if err != nil {
		return err
	}
	conv, err := s.MessagingSvc.Conversation(ctx.Request().Context(), contextUser(ctx), otherID)
	if err != nil {
		return errors.Wrap(err, "loading conversation")
	}
	return ctx.JSON(http.StatusOK, conv)
}

func (s *server) sendMessage(ctx echo.Context) error {
	receiverID, err := idParam(ctx, "user_id")
	if err != nil {
		return err
	}
	var data messaging.MessageForm
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MessageForm")
	}
	msg, err := s.MessagingSvc.Send(ctx.Request().Context(), contextUser(ctx), receiverID, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

type UnreadResponse struct {
	UnreadCount int `json:"unread_count"`
}
