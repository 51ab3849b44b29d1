package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	salt      = []byte("campus.core.user.token_gen")
	tsEncoder = base32.StdEncoding.WithPadding(base32.NoPadding)
	tokenRef  = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator issues password reset tokens. A token is bound to the user's password hash and last login,
// so it stops working once it has been used or the user logged in again.
type tokenGenerator struct {
	secret  string
	timeout time.Duration
	now     func() time.Time
}

func newTokenGenerator(secret string, timeout time.Duration) tokenGenerator {
	return tokenGenerator{secret: secret, timeout: timeout, now: time.Now}
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(usr.ID)))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (int, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(idBytes))
}

// MakeToken generates a password reset token for a given User.
func (tg tokenGenerator) MakeToken(usr User) (string, error) {
	return tg.makeTokenWithTimestamp(usr, secondsSinceRef(tg.now()))
}

// verifyToken checks that a password reset token for a given User is valid.
func (tg tokenGenerator) verifyToken(usr User, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := tsEncoder.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := tg.makeTokenWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if secondsSinceRef(tg.now())-ts > int64(tg.timeout/time.Second) {
		return errTokenExpired
	}
	return nil
}

func (tg tokenGenerator) makeTokenWithTimestamp(usr User, ts int64) (string, error) {
	tsB32 := tsEncoder.EncodeToString([]byte(strconv.FormatInt(ts, 10)))
	sig, err := tg.sign(hashValue(usr, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func (tg tokenGenerator) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, tg.secret...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func secondsSinceRef(t time.Time) int64 {
	return int64(t.Sub(tokenRef) / time.Second)
}

func hashValue(usr User, ts int64) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.Itoa(usr.ID))
	val.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		val.WriteString(usr.LastLogin.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.FormatInt(ts, 10))
	return val.Bytes()
}
