package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/api_client"
	"dashboard/internal/crypto"
	"dashboard/internal/handler"
	"dashboard/internal/middleware"
	"dashboard/internal/repository"
	"dashboard/internal/server"
	"dashboard/internal/service"
	"dashboard/internal/shell"
	"dashboard/internal/views"
	"dashboard/internal/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// monitoringAPI fakes the backend. Accounts: admin/secret (ADMIN) and
// staff/secret (STAFF).
type monitoringAPI struct {
	mu       sync.Mutex
	reject   bool
	deletes  []string
	students []map[string]any
}

func (m *monitoringAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req api_client.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		role := "STAFF"
		if req.Login == "admin" {
			role = "ADMIN"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + req.Login, "login": req.Login, "user_role": role})
	})

	authed := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			m.mu.Lock()
			reject := m.reject
			m.mu.Unlock()
			if reject || !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fn(w, r)
		}
	}

	mux.HandleFunc("/students/count", authed(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"student_count": 3}`)
	}))
	mux.HandleFunc("/events/count", authed(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"event_count": 12}`)
	}))
	mux.HandleFunc("/schools/count", authed(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"school_count": 1}`)
	}))
	mux.HandleFunc("/events/weekly", authed(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6, "g": 7}`)
	}))
	mux.HandleFunc("/schools", authed(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"school_id": 10, "org_name": "Школа №1"}]`)
	}))
	mux.HandleFunc("/students", authed(func(w http.ResponseWriter, _ *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		_ = json.NewEncoder(w).Encode(m.students)
	}))
	mux.HandleFunc("/students/", authed(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.deletes = append(m.deletes, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	return mux
}

type testEnv struct {
	api    *monitoringAPI
	url    string
	client *http.Client
	repo   repository.SessionRepository
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	api := &monitoringAPI{students: []map[string]any{
		{"student_id": 1, "student_name": "Алия"},
		{"student_id": 2, "student_name": "Ержан"},
	}}
	apiServer := httptest.NewServer(api.handler(t))
	t.Cleanup(apiServer.Close)

	logger := zap.NewNop()
	accessLog := logrus.New()
	accessLog.SetOutput(io.Discard)

	cipher, err := crypto.NewTokenCipher("test-secret")
	require.NoError(t, err)

	repo := repository.NewMemorySessionRepository()
	sessions := service.NewSessionService(repo, api_client.NewClient(apiServer.URL, 0, logger), cipher, nil, time.Hour, logger)
	cookie := middleware.SessionCookie{Name: "tirek_session"}

	templates, err := web.Templates()
	require.NoError(t, err)

	srv := server.NewServer(server.Options{
		Handler:   handler.NewHandler(sessions, cookie, shell.NewLayout(), views.NewRegistry(), logger),
		Sessions:  sessions,
		Cookie:    cookie,
		Templates: templates,
		AccessLog: accessLog,
		Logger:    logger,
	})

	dashboard := httptest.NewServer(srv.Handler())
	t.Cleanup(dashboard.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{api: api, url: dashboard.URL, client: client, repo: repo}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.url + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.url+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) login(t *testing.T, login string) {
	t.Helper()
	resp, _ := e.post(t, "/login", url.Values{"login": {login}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestProtectedRoutesRedirectWithoutSession(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	for _, path := range []string{"/", "/dashboard", "/events", "/students", "/schools", "/face_encodings"} {
		resp, body := env.get(t, path)
		require.Equal(t, http.StatusFound, resp.StatusCode, path)
		require.Equal(t, "/login", resp.Header.Get("Location"), path)
		require.NotContains(t, body, "Журнал событий", path)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	resp, body := env.post(t, "/login", url.Values{"login": {"admin"}, "password": {"nope"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, body, "Invalid credentials! Please try again.")
}

func TestLoginLogout(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.login(t, "admin")

	resp, body := env.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "admin")
	require.Contains(t, body, "Администратор")
	require.Contains(t, body, `href="/schools"`)

	resp, _ = env.get(t, "/login")
	require.Equal(t, http.StatusFound, resp.StatusCode, "signed-in users skip the login form")

	resp, _ = env.post(t, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = env.get(t, "/dashboard")
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestStaffMenuHidesSchools(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.login(t, "staff")

	resp, body := env.get(t, "/students")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, body, `href="/schools"`)
	require.Contains(t, body, `href="/students"`)
	require.Contains(t, body, "Ержан")
}

func TestUnauthorizedApiResponseEndsSession(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.login(t, "admin")

	env.api.mu.Lock()
	env.api.reject = true
	env.api.mu.Unlock()

	resp, _ := env.get(t, "/students")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	env.api.mu.Lock()
	env.api.reject = false
	env.api.mu.Unlock()

	resp, _ = env.get(t, "/students")
	require.Equal(t, http.StatusFound, resp.StatusCode, "the session must stay cleared")
}

func TestDeleteStudent(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.login(t, "staff")

	_, body := env.get(t, "/students")
	require.Contains(t, body, "Алия")

	resp, body := env.post(t, "/students/1/delete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, body, "Алия")
	require.Contains(t, body, "Ержан")

	env.api.mu.Lock()
	defer env.api.mu.Unlock()
	require.Equal(t, []string{"DELETE /students/1"}, env.api.deletes)
}

func TestShellToggle(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.login(t, "staff")

	resp, _ := env.post(t, "/shell/toggle", url.Values{"back": {"/events"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/events", resp.Header.Get("Location"))

	_, body := env.get(t, "/dashboard")
	require.Contains(t, body, "sidebar-collapsed")
}

func TestPing(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	resp, body := env.get(t, "/ping")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"message": "pong"}`, body)
}

func TestLoginAgainReplacesPreviousSession(t *testing.T) {
	t.Parallel()

	env := newEnv(t)
	env.login(t, "admin")
	env.login(t, "staff")

	resp, body := env.get(t, "/students")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Сотрудник")

	// Draining the store shows only the session of the second login remains.
	stored, err := env.repo.DeleteExpired(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "staff", stored[0].Username)
}
