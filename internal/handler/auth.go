package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dashboard/internal/api_client"
	"dashboard/internal/middleware"
	"dashboard/internal/service"
)

const msgInvalidCredentials = "Invalid credentials! Please try again."

type loginPage struct {
	Login string
	Error string
}

// LoginPage shows the login form, or the dashboard when already signed in.
func (h *Handler) LoginPage(c *gin.Context) {
	if session := middleware.OptionalSession(c, h.sessions, h.cookie.Name); session != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "login", loginPage{})
}

func (h *Handler) Login(c *gin.Context) {
	login := strings.TrimSpace(c.PostForm("login"))
	password := c.PostForm("password")

	session, err := h.sessions.Login(c.Request.Context(), login, password)
	if err != nil {
		if !errors.Is(err, api_client.ErrInvalidCredentials) {
			h.logger.Error("Login failed", zap.String("login", login), zap.Error(err))
		}
		c.HTML(http.StatusUnauthorized, "login", loginPage{Login: login, Error: msgInvalidCredentials})
		return
	}

	h.dropPrevious(c, session.ID)

	value, expiresAt, err := h.sessions.IssueCookie(session)
	if err != nil {
		_ = h.sessions.Logout(c.Request.Context(), session.ID)
		h.fail(c, err)
		return
	}

	h.cookie.Set(c, value, expiresAt)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// dropPrevious removes the session named by the request's existing cookie,
// live or expired, after the browser signed in with a new one.
func (h *Handler) dropPrevious(c *gin.Context, current string) {
	value, err := c.Cookie(h.cookie.Name)
	if err != nil {
		return
	}

	id, err := h.sessions.ParseCookie(value)
	switch {
	case id == "" || id == current:
		return
	case errors.Is(err, service.ErrSessionExpired):
		err = h.sessions.Expire(c.Request.Context(), id)
	case err == nil:
		err = h.sessions.Logout(c.Request.Context(), id)
	default:
		return
	}
	if err != nil {
		h.logger.Warn("Failed to remove previous session", zap.Error(err))
	}
}

// Logout clears the session as a whole and returns to the login page.
func (h *Handler) Logout(c *gin.Context) {
	session := middleware.CurrentSession(c)

	if err := h.sessions.Logout(c.Request.Context(), session.ID); err != nil {
		h.logger.Error("Failed to logout", zap.String("username", session.Username), zap.Error(err))
	}

	h.cookie.Clear(c)
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}
