package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dashboard/internal/api_client"
	"dashboard/internal/middleware"
	"dashboard/internal/models"
	"dashboard/internal/service"
	"dashboard/internal/shell"
	"dashboard/internal/views"
)

// Handler serves the dashboard pages. Every page talks to the monitoring API
// through a client bound to the request's session.
type Handler struct {
	sessions *service.SessionService
	cookie   middleware.SessionCookie
	layout   *shell.Layout
	registry *views.Registry

	dashboard     *views.Dashboard
	events        *views.Events
	students      *views.Students
	schools       *views.Schools
	faceEncodings *views.FaceEncodings

	logger *zap.Logger
}

func NewHandler(sessions *service.SessionService, cookie middleware.SessionCookie, layout *shell.Layout, registry *views.Registry, logger *zap.Logger) *Handler {
	h := &Handler{
		sessions:      sessions,
		cookie:        cookie,
		layout:        layout,
		registry:      registry,
		dashboard:     views.NewDashboard(registry, logger),
		events:        views.NewEvents(registry, logger),
		students:      views.NewStudents(registry, logger),
		schools:       views.NewSchools(registry, logger),
		faceEncodings: views.NewFaceEncodings(registry, logger),
		logger:        logger,
	}

	sessions.OnClear(registry.Teardown)
	sessions.OnClear(layout.Forget)

	return h
}

type page struct {
	Title string
	Shell shell.Shell
	View  any
}

const msgSuperseded = "Эта страница загружается в другой вкладке. Обновите страницу, чтобы увидеть данные."

// notice is the view of a page that could not be shown.
type notice struct {
	Message string
	Reload  string
}

func (h *Handler) render(c *gin.Context, name, title string, view any) {
	h.renderStatus(c, http.StatusOK, name, title, view)
}

func (h *Handler) renderStatus(c *gin.Context, status int, name, title string, view any) {
	session := middleware.CurrentSession(c)
	c.HTML(status, name, page{
		Title: title,
		Shell: shell.Build(session, c.Request.URL.Path, h.layout.Collapsed(session.ID)),
		View:  view,
	})
}

// client returns the monitoring API client of the request's session.
func (h *Handler) client(c *gin.Context) (*models.Session, *api_client.Client) {
	session := middleware.CurrentSession(c)
	return session, h.sessions.Client(session.ID)
}

// fail handles an error a view could not turn into a message. A rejected
// session has already been cleared by the client; the browser is sent to
// the login page.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case api_client.IsUnauthorized(err):
		h.logger.Info("Session rejected by monitoring api, redirecting to login", zap.String("path", c.Request.URL.Path))
		h.cookie.Clear(c)
		c.Redirect(http.StatusFound, middleware.LoginPath)
	case errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil:
		h.logger.Debug("Client went away during view load", zap.String("path", c.Request.URL.Path))
		c.Abort()
	case errors.Is(err, context.Canceled) && middleware.CurrentSession(c) != nil:
		// The same view was mounted again by a newer request of the session.
		h.logger.Debug("View load superseded", zap.String("path", c.Request.URL.Path))
		h.renderStatus(c, http.StatusConflict, "notice", "Обновление", notice{
			Message: msgSuperseded,
			Reload:  reloadTarget(c),
		})
		c.Abort()
	default:
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Внутренняя ошибка. Попробуйте еще раз.")
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// ToggleShell flips the sidebar collapse state and returns to the page the
// form was posted from.
func (h *Handler) ToggleShell(c *gin.Context) {
	session := middleware.CurrentSession(c)
	h.layout.Toggle(session.ID)

	back := c.PostForm("back")
	if !isMenuPath(session.Role, back) {
		back = "/dashboard"
	}
	c.Redirect(http.StatusSeeOther, back)
}

// reloadTarget is the page a superseded request should be retried at: the
// same URL for a GET, the owning menu page for a form post.
func reloadTarget(c *gin.Context) string {
	if c.Request.Method == http.MethodGet {
		return c.Request.URL.RequestURI()
	}
	session := middleware.CurrentSession(c)
	for _, item := range shell.MenuFor(session.Role) {
		if c.Request.URL.Path == item.Path || strings.HasPrefix(c.Request.URL.Path, item.Path+"/") {
			return item.Path
		}
	}
	return "/dashboard"
}

func isMenuPath(role models.Role, path string) bool {
	for _, item := range shell.MenuFor(role) {
		if item.Path == path {
			return true
		}
	}
	return false
}
