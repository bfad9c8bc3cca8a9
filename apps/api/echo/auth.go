package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// Id is the session id checked against the revoked sessions on every request.
type Claims struct {
	jwt.StandardClaims
	Username string    `json:"username,omitempty"`
	Role     user.Role `json:"role,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims opens a new session for usr.
func NewClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Role:     usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the user of the current session; errUnauthorized for anonymous requests.
func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// getViewer returns the user of the current session if any.
func getViewer(ctx echo.Context) *user.User {
	if usr, err := getContextUser(ctx); err == nil {
		return &usr
	}
	return nil
}

// authMiddleware checks the JWT, rejects revoked sessions and loads the session user into the context.
// When optional is set, requests without an Authorization header go through anonymously.
func (s *Server) authMiddleware(optional bool) echo.MiddlewareFunc {
	jwtConf := s.jwtConf
	if optional {
		jwtConf.Skipper = func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		}
	}
	checkJWT := middleware.JWTWithConfig(jwtConf)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return checkJWT(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return next(ctx) // anonymous
			}

			reqCtx := ctx.Request().Context()
			revoked, err := s.deps.Sessions.IsRevoked(reqCtx, claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking session")
			}
			if revoked {
				return errSessionRevoked
			}

			usr, err := s.deps.UserSvc.GetByID(reqCtx, claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding session user")
			}
			if !usr.IsActive() {
				return errUnauthorized
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		})
	}
}

// respondWithToken opens a session for usr and sends its token.
func respondWithToken(ctx echo.Context, usr user.User, conf *core.Config) error {
	token, err := GenerateToken(NewClaims(usr, conf), conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
