package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
)

const accountKey = "account"

// Auth resolves the bearer token to an account. Stream endpoints may pass the
// token as ?token= since browsers cannot set headers on EventSource or
// WebSocket handshakes.
func Auth(repo domain.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c.Request())
			if token == "" {
				return c.JSON(http.StatusUnauthorized, domain.ErrorEnvelope{
					Message:   "missing bearer token",
					ErrorCode: domain.CodeTokenExpired,
				})
			}

			acc, err := repo.AccountByToken(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, domain.ErrorEnvelope{
					Message:   "session expired, please sign in again",
					ErrorCode: domain.CodeTokenExpired,
				})
			}

			c.Set(accountKey, acc)
			return next(c)
		}
	}
}

// RequireRole rejects accounts whose role is not listed. It must run after Auth.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acc := AccountFrom(c)
			if acc != nil {
				for _, r := range roles {
					if acc.Role == r {
						return next(c)
					}
				}
			}
			return c.JSON(http.StatusForbidden, domain.ErrorEnvelope{
				Message:   "you do not have access to this resource",
				ErrorCode: domain.CodeForbidden,
			})
		}
	}
}

// AccountFrom returns the account Auth stored on c, or nil.
func AccountFrom(c echo.Context) *domain.Account {
	acc, _ := c.Get(accountKey).(*domain.Account)
	return acc
}

func BearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}
