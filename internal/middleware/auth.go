package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dashboard/internal/models"
	"dashboard/internal/service"
)

const sessionKey = "session"

// LoginPath is where the gate sends requests without a usable session.
const LoginPath = "/login"

// SessionReader resolves a cookie value to the stored session and removes
// sessions whose cookie has expired.
type SessionReader interface {
	ParseCookie(value string) (string, error)
	Read(ctx context.Context, id string) (*models.Session, error)
	Expire(ctx context.Context, id string) error
}

// SessionCookie describes the browser cookie that carries the session id.
type SessionCookie struct {
	Name   string
	Secure bool
}

func (sc SessionCookie) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, value, maxAge, "/", "", sc.Secure, true)
}

func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

// AuthGate allows a request only when its cookie resolves to a complete
// session; otherwise it clears the cookie and redirects to the login page.
// The decision is made per request from the store, never cached.
func AuthGate(sessions SessionReader, cookie SessionCookie, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := resolveSession(c, sessions, cookie.Name)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionExpired):
				logger.Info("Session expired, redirecting to login", zap.String("path", c.Request.URL.Path), zap.Error(err))
			case errors.Is(err, http.ErrNoCookie), errors.Is(err, service.ErrNoSession):
				logger.Debug("No session, redirecting to login", zap.String("path", c.Request.URL.Path))
			case errors.Is(err, models.ErrIncompleteSession), errors.Is(err, service.ErrInvalidCookie):
				logger.Info("Unusable session, redirecting to login", zap.String("path", c.Request.URL.Path), zap.Error(err))
			default:
				logger.Error("Failed to read session, redirecting to login", zap.String("path", c.Request.URL.Path), zap.Error(err))
			}

			cookie.Clear(c)
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

func resolveSession(c *gin.Context, sessions SessionReader, cookieName string) (*models.Session, error) {
	value, err := c.Cookie(cookieName)
	if err != nil {
		return nil, err
	}
	id, err := sessions.ParseCookie(value)
	if errors.Is(err, service.ErrSessionExpired) {
		if expireErr := sessions.Expire(c.Request.Context(), id); expireErr != nil {
			return nil, errors.Join(err, expireErr)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return sessions.Read(c.Request.Context(), id)
}

// CurrentSession returns the session placed on the context by AuthGate, or
// nil outside a gated route.
func CurrentSession(c *gin.Context) *models.Session {
	value, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}

// OptionalSession resolves the session without gating, for pages such as
// /login that behave differently for signed-in users.
func OptionalSession(c *gin.Context, sessions SessionReader, cookieName string) *models.Session {
	session, err := resolveSession(c, sessions, cookieName)
	if err != nil {
		return nil
	}
	return session
}
