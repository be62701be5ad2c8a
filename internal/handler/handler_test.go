package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/api_client"
	"dashboard/internal/crypto"
	"dashboard/internal/middleware"
	"dashboard/internal/models"
	"dashboard/internal/repository"
	"dashboard/internal/service"
	"dashboard/internal/shell"
	"dashboard/internal/views"
	"dashboard/internal/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newFailRouter serves routes that fail with err behind the real gate, and
// returns a cookie of a stored staff session.
func newFailRouter(t *testing.T, err error) (*gin.Engine, *http.Cookie) {
	t.Helper()

	ctx := context.Background()
	repo := repository.NewMemorySessionRepository()
	cipher, cipherErr := crypto.NewTokenCipher("test-secret")
	require.NoError(t, cipherErr)

	sessions := service.NewSessionService(repo, api_client.NewClient("http://127.0.0.1:1", 0, zap.NewNop()), cipher, nil, time.Hour, zap.NewNop())
	cookie := middleware.SessionCookie{Name: "tirek_session"}
	h := NewHandler(sessions, cookie, shell.NewLayout(), views.NewRegistry(), zap.NewNop())

	sealed, sealErr := cipher.Seal("sid", "api-token")
	require.NoError(t, sealErr)
	require.NoError(t, repo.Save(ctx, &models.Session{
		ID: "sid", Token: sealed, Username: "aigerim", Role: models.RoleStaff, CreatedAt: time.Now().UTC(),
	}))
	value, _, issueErr := sessions.IssueCookie(&models.Session{ID: "sid"})
	require.NoError(t, issueErr)

	tmpl, tmplErr := web.Templates()
	require.NoError(t, tmplErr)

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	fail := func(c *gin.Context) { h.fail(c, err) }
	protected := router.Group("/", middleware.AuthGate(sessions, cookie, zap.NewNop()))
	protected.GET("/students", fail)
	protected.POST("/students/:id/delete", fail)

	return router, &http.Cookie{Name: cookie.Name, Value: value}
}

func TestFail_SupersededLoadRendersReloadNotice(t *testing.T) {
	t.Parallel()

	router, cookie := newFailRouter(t, fmt.Errorf("load students: %w", context.Canceled))

	req := httptest.NewRequest(http.MethodGet, "/students?q=ali", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), msgSuperseded)
	require.Contains(t, rec.Body.String(), `href="/students?q=ali"`)
	require.Contains(t, rec.Body.String(), "aigerim", "the notice keeps the shell")

	req = httptest.NewRequest(http.MethodPost, "/students/17/delete", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), `href="/students"`)
}

func TestFail_ClientGoneWritesNothing(t *testing.T) {
	t.Parallel()

	router, cookie := newFailRouter(t, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/students", nil).WithContext(ctx)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Empty(t, rec.Body.String())
}

func TestFail_UnexpectedError(t *testing.T) {
	t.Parallel()

	router, cookie := newFailRouter(t, fmt.Errorf("decode: boom"))

	req := httptest.NewRequest(http.MethodGet, "/students", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
