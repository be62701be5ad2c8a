package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"dashboard/internal/handler"
	"dashboard/internal/middleware"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

type Options struct {
	Handler   *handler.Handler
	Sessions  middleware.SessionReader
	Cookie    middleware.SessionCookie
	Templates *template.Template
	AccessLog *logrus.Logger
	Logger    *zap.Logger
}

func NewServer(opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(opts.AccessLog))
	router.SetHTMLTemplate(opts.Templates)

	s := &Server{router: router, logger: opts.Logger}
	s.setupRoutes(opts)

	return s
}

func (s *Server) setupRoutes(opts Options) {
	h := opts.Handler

	// Ping route for health check
	s.router.GET("/ping", h.Ping)

	s.router.GET("/login", h.LoginPage)
	s.router.POST("/login", h.Login)

	protected := s.router.Group("/")
	protected.Use(middleware.AuthGate(opts.Sessions, opts.Cookie, opts.Logger))
	{
		protected.GET("/", h.Dashboard)
		protected.GET("/dashboard", h.Dashboard)

		protected.GET("/events", h.Events)
		protected.POST("/events/count", h.RefreshEventCount)

		protected.GET("/students", h.Students)
		protected.POST("/students", h.AddStudent)
		protected.POST("/students/:id/delete", h.DeleteStudent)

		protected.GET("/schools", h.Schools)
		protected.POST("/schools", h.AddSchool)

		protected.GET("/face_encodings", h.FaceEncodings)
		protected.POST("/face_encodings", h.EnrollFace)

		protected.POST("/shell/toggle", h.ToggleShell)
		protected.POST("/logout", h.Logout)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}
