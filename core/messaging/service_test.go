package messaging

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

// fakeMessages keeps only what Send and HasSent need.
type fakeMessages struct {
	Repository
	msgs []Message
}

func (r *fakeMessages) CreateMessage(_ context.Context, m Message) (Message, error) {
	m.ID = len(r.msgs) + 1
	r.msgs = append(r.msgs, m)
	return m, nil
}

func (r *fakeMessages) HasSent(_ context.Context, senderID, receiverID int) (bool, error) {
	for _, m := range r.msgs {
		if m.SenderID == senderID && m.ReceiverID == receiverID {
			return true, nil
		}
	}
	return false, nil
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	repo := &fakeMessages{}
	svc := NewService(repo, newTestEvaluator(), testUsers, validator.New())
	send := func(from, to int) error {
		_, err := svc.Send(ctx, testUsers[from-1], to, MessageForm{Content: "hello"})
		return err
	}

	tests := []struct {
		name     string
		from, to int
		wantErr  error
	}{
		{name: "student to their lecturer", from: tStudent.ID, to: tLect.ID},
		{name: "student to their dean", from: tStudent.ID, to: tDean.ID},
		{name: "dean to a student of the faculty", from: tDean.ID, to: tStudent.ID},
		{name: "dean to a teacher", from: tDean.ID, to: tLect.ID, wantErr: core.ErrPermissionDenied},
		{name: "dean to another faculty", from: tDean.ID, to: tOther.ID, wantErr: core.ErrPermissionDenied},
		{name: "student to admin", from: tStudent.ID, to: tAdmin.ID, wantErr: core.ErrPermissionDenied},
		{name: "student to accounting", from: tStudent.ID, to: tCashier.ID, wantErr: core.ErrPermissionDenied},
		{name: "to self", from: tStudent.ID, to: tStudent.ID, wantErr: ErrSelfMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := send(tt.from, tt.to)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("reply once written to", func(t *testing.T) {
		require.NoError(t, send(tAdmin.ID, tStudent.ID))
		assert.NoError(t, send(tStudent.ID, tAdmin.ID))

		require.NoError(t, send(tLect.ID, tDean.ID))
		assert.NoError(t, send(tDean.ID, tLect.ID))

		// only the person who wrote may be answered
		assert.ErrorIs(t, send(tDean.ID, tTutor.ID), core.ErrPermissionDenied)
	})
}
