package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"` // the portal to open
}

func (c Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// tokenIssuer signs and refreshes the JWTs of the API.
type tokenIssuer struct {
	key        []byte
	issuer     string
	expiration time.Duration
	refresh    time.Duration
}

func newTokenIssuer(conf *core.Config) tokenIssuer {
	return tokenIssuer{
		key:        []byte(conf.SecretKey),
		issuer:     conf.AppName,
		expiration: conf.Server.JWTExpirationDelta,
		refresh:    conf.Server.JWTRefreshExpirationDelta,
	}
}

// jwtConfig is the JWT auth middleware config.
func (ti tokenIssuer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (ti tokenIssuer) claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  "Campus",
			ExpiresAt: now.Add(ti.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
	}
}

// sign generates a signed JWT token string representing the user Claims.
func (ti tokenIssuer) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti tokenIssuer) tokenFor(usr user.User) (string, error) {
	return ti.sign(ti.claims(usr))
}

// refreshToken issues a new token for the context user as long as the first token
// of the session is younger than the refresh delta.
func (ti tokenIssuer) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refresh)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := ti.sign(ti.claims(contextUser(ctx), claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextUser returns the user loaded by contextUserMiddleware.
// Outside authenticated routes it is the zero User, which every policy denies.
func contextUser(ctx echo.Context) user.User {
	usr, _ := ctx.Get(contextUserKey).(user.User)
	return usr
}

// contextUserMiddleware loads the token's user on every authenticated request,
// so deactivations and role changes apply immediately.
func (s *server) contextUserMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		id, err := claims.UserID()
		if err != nil {
			return errUnauthorized
		}
		usr, err := s.UserSvc.GetByID(ctx.Request().Context(), id)
		if err != nil {
			if core.IsNotFound(err) {
				return errUnauthorized
			}
			return errors.Wrap(err, "finding user by ID")
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
		ctx.Set(contextUserKey, usr)
		return next(ctx)
	}
}
