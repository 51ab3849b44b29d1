package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMakeVerifyToken(t *testing.T) {
	tg := newTokenGenerator("secret", time.Hour)

	now := time.Now()
	usr := User{
		ID:        1,
		Name:      "T",
		Email:     "t@test.test",
		Role:      RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := tg.MakeToken(usr)
	assert.NoError(t, err)

	// generate an expired token
	late := tg.timeout + time.Minute
	tg.now = func() time.Time { return time.Now().Add(-late) }
	expiredToken, err := tg.MakeToken(usr)
	assert.NoError(t, err)
	tg.now = time.Now // reset

	// password changed since token was issued
	changed := usr
	_ = changed.SetPassword("other-pwd")

	// logged in since token was issued
	relogged := usr
	relogged.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: changed, token: validToken, wantErr: errInvalidToken},
		{name: "logged in again", usr: relogged, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tg.verifyToken(tt.usr, tt.token))
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	uid := EncodeUID(User{ID: 42})
	id, err := decodeUID(uid)
	assert.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = decodeUID("!!")
	assert.Error(t, err)
}
