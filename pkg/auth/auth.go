// Package auth guards the prediction endpoints with HS256 bearer tokens.
// Authentication is optional: an empty secret produces a pass-through
// middleware, so open deployments need no token plumbing.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apierr "github.com/kardialab/kardia/pkg/api/types/errors"
	"github.com/kardialab/kardia/pkg/xerrors"
)

// SubjectKey is where the middleware stores the verified token subject on
// the echo context.
const SubjectKey = "auth.subject"

// Middleware verifies "Authorization: Bearer <token>" headers against the
// secret. Tokens must be HS256 signed and unexpired.
func Middleware(secret string) echo.MiddlewareFunc {
	if secret == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return apierr.Unauthorized("authorization header is missing", nil)
			}
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return apierr.Unauthorized("authorization header is not a bearer token", nil)
			}

			token, err := jwt.Parse(
				raw,
				func(*jwt.Token) (any, error) { return key, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			)
			if err != nil || !token.Valid {
				return apierr.Unauthorized("token is invalid", err)
			}

			if sub, err := token.Claims.GetSubject(); err == nil {
				c.Set(SubjectKey, sub)
			}
			return next(c)
		}
	}
}

// IssueToken signs a token for the subject. Used by operators to mint
// credentials, and by tests.
func IssueToken(secret string, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", xerrors.New("cannot issue a token without a secret")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", xerrors.Wrap(err)
	}
	return signed, nil
}
