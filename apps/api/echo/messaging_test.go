package echoapi

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/messaging"
	"github.com/trezcool/campus/core/user"
)

func messagesPath(u user.User) string {
	return "/api/messages/" + strconv.Itoa(u.ID)
}

func Test_messagingApi(t *testing.T) {
	app := setup(t)
	c := app.seedCampus(t)
	studentToken := app.token(t, c.student)
	lecturerToken := app.token(t, c.lecturer)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/api/messages", wantCode: http.StatusUnauthorized},
		{
			name: "empty message", method: http.MethodPost, path: messagesPath(c.lecturer), token: studentToken,
			body: []byte(`{"content": "   "}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"content": "this field is required"}`),
		},
		{
			name: "to self", method: http.MethodPost, path: messagesPath(c.student), token: studentToken,
			body: []byte(`{"content": "hi me"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"user_id": "you cannot message yourself"}`),
		},
		{
			name: "to a student of another group", method: http.MethodPost, path: messagesPath(c.outsider), token: studentToken,
			body: []byte(`{"content": "hi"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/api/messages/9999", token: studentToken,
			body: []byte(`{"content": "hi"}`), wantCode: http.StatusNotFound,
		},
		{
			name: "to their lecturer", method: http.MethodPost, path: messagesPath(c.lecturer), token: studentToken,
			body: []byte(`{"content": "  When is the exam?  "}`), wantCode: http.StatusCreated,
		},
		{name: "lecturer has one unread", path: "/api/messages/unread", token: lecturerToken, wantData: []byte(`{"unread_count": 1}`)},
	})

	t.Run("chats", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, "/api/messages", lecturerToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var chats []messaging.Chat
		decode(t, rec, &chats)
		require.NotEmpty(t, chats)

		// the latest conversation comes first
		assert.Equal(t, c.student.ID, chats[0].With.ID)
		assert.Equal(t, 1, chats[0].UnreadCount)
		require.NotNil(t, chats[0].LastMessage)
		assert.Equal(t, "When is the exam?", chats[0].LastMessage.Content)
	})

	t.Run("reading marks as read", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, messagesPath(c.student), lecturerToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var conv messaging.Conversation
		decode(t, rec, &conv)
		assert.Equal(t, c.student.ID, conv.With.ID)
		require.Len(t, conv.Messages, 1)
		assert.Equal(t, c.student.ID, conv.Messages[0].SenderID)

		rec = app.do(newAuthRequest(http.MethodGet, "/api/messages/unread", lecturerToken))
		checkCodeAndData(t, httpTest{wantData: []byte(`{"unread_count": 0}`)}, rec)
	})

	t.Run("outside the allowed set", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{
				name: "student to admin", method: http.MethodPost, path: messagesPath(c.admin), token: studentToken,
				body: []byte(`{"content": "hi"}`), wantCode: http.StatusForbidden,
			},
			{
				name: "dean to a teacher", method: http.MethodPost, path: messagesPath(c.lecturer), token: app.token(t, c.dean),
				body: []byte(`{"content": "hi"}`), wantCode: http.StatusForbidden,
			},
			{
				name: "student to accounting before being written to", method: http.MethodPost, path: messagesPath(c.cashier), token: studentToken,
				body: []byte(`{"content": "hi"}`), wantCode: http.StatusForbidden,
			},
		})
	})

	t.Run("replies to out-of-scope senders", func(t *testing.T) {
		// students do not see the cashier in their scope, but accounting may message anyone
		rec := app.do(newAuthRequest(http.MethodPost, messagesPath(c.student), app.token(t, c.cashier), []byte(`{"content": "Your invoice"}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(newAuthRequest(http.MethodPost, messagesPath(c.cashier), studentToken, []byte(`{"content": "Thanks"}`)))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(newAuthRequest(http.MethodGet, messagesPath(c.cashier), studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var conv messaging.Conversation
		decode(t, rec, &conv)
		assert.Len(t, conv.Messages, 2)
	})

	t.Run("search", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{name: "too short", path: "/api/users/search?q=l", token: studentToken, wantData: []byte(`[]`)},
			{name: "outside the scope", path: "/api/users/search?q=olga", token: studentToken, wantData: []byte(`[]`)},
		})

		rec := app.do(newAuthRequest(http.MethodGet, "/api/users/search?q=leo", studentToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var contacts []messaging.Contact
		decode(t, rec, &contacts)
		require.Len(t, contacts, 1)
		assert.Equal(t, c.lecturer.ID, contacts[0].ID)
	})
}
