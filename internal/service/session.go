package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dashboard/internal/api_client"
	"dashboard/internal/audit"
	"dashboard/internal/crypto"
	"dashboard/internal/models"
	"dashboard/internal/repository"
)

var (
	ErrInvalidCookie = errors.New("invalid session cookie")
	// ErrSessionExpired is returned by ParseCookie for a genuine cookie past
	// its expiry. The session id is returned with it.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoSession is returned by Read when no session is stored under the id.
	ErrNoSession = errors.New("no session")
)

const auditTimeout = 2 * time.Second

// ClearFunc is notified after a session has been removed from the store.
type ClearFunc func(sessionID string)

// SessionService is the only writer of the session store. A session is
// created whole by Login and removed whole by Logout or Revoke.
type SessionService struct {
	repo   repository.SessionRepository
	api    *api_client.Client
	cipher *crypto.TokenCipher
	audit  audit.Sink
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.RWMutex
	onClear []ClearFunc
}

func NewSessionService(
	repo repository.SessionRepository,
	api *api_client.Client,
	cipher *crypto.TokenCipher,
	sink audit.Sink,
	ttl time.Duration,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		repo:   repo,
		api:    api,
		cipher: cipher,
		audit:  sink,
		ttl:    ttl,
		logger: logger,
	}
}

// OnClear registers fn to run whenever a session is logged out, revoked or
// expired.
func (s *SessionService) OnClear(fn ClearFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

// Login authenticates against the monitoring API and stores the resulting
// session. Nothing is stored unless token, username and role are all present.
func (s *SessionService) Login(ctx context.Context, login, password string) (*models.Session, error) {
	resp, err := s.api.Login(ctx, login, password)
	if err != nil {
		s.publish(ctx, audit.NewRecord(models.AuditLoginFailed, &models.Session{Username: login}))
		return nil, err
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		Token:     resp.Token,
		Username:  resp.Login,
		Role:      resp.UserRole,
		CreatedAt: time.Now().UTC(),
	}
	if err := session.Validate(); err != nil {
		s.logger.Error("Monitoring api returned an incomplete login response", zap.String("login", login), zap.Error(err))
		return nil, err
	}

	sealed, err := s.cipher.Seal(session.ID, session.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to seal token: %w", err)
	}

	record := *session
	record.Token = sealed
	if err := s.repo.Save(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("User logged in", zap.String("username", session.Username), zap.String("role", string(session.Role)))
	s.publish(ctx, audit.NewRecord(models.AuditLogin, session))

	return session, nil
}

// Read returns the stored session with its token decrypted. A stored record
// missing any field is reported as models.ErrIncompleteSession.
func (s *SessionService) Read(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	token, err := s.cipher.Open(session.ID, session.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to open session token: %w", err)
	}
	session.Token = token

	return session, nil
}

// Logout removes the session. Logging out an absent session is not an error.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	return s.clear(ctx, id, models.AuditLogout)
}

// Revoke removes a session the monitoring API no longer accepts.
func (s *SessionService) Revoke(ctx context.Context, id string) error {
	return s.clear(ctx, id, models.AuditRevoked)
}

// Expire removes a session whose cookie has run out.
func (s *SessionService) Expire(ctx context.Context, id string) error {
	return s.clear(ctx, id, models.AuditExpired)
}

// PurgeExpired removes every session older than the session ttl, including
// those whose browser never came back. It returns how many were removed.
func (s *SessionService) PurgeExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.DeleteExpired(ctx, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	for _, session := range expired {
		s.cleared(ctx, session.ID, session, models.AuditExpired)
	}
	return len(expired), nil
}

// RunPurge calls PurgeExpired every interval until ctx is done.
func (s *SessionService) RunPurge(ctx context.Context, interval time.Duration) {
	s.logger.Info("Session purge started.", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session purge stopped.")
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.Error("Session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("Expired sessions purged", zap.Int("count", n))
			}
		}
	}
}

func (s *SessionService) clear(ctx context.Context, id string, action models.AuditAction) error {
	session, err := s.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		s.logger.Warn("Failed to load session before clearing", zap.String("action", string(action)), zap.Error(err))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.cleared(ctx, id, session, action)
	return nil
}

// cleared runs the OnClear hooks for a removed session and audits it when
// the record was known.
func (s *SessionService) cleared(ctx context.Context, id string, session *models.Session, action models.AuditAction) {
	s.mu.RLock()
	hooks := s.onClear
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(id)
	}

	if session != nil {
		s.logger.Info("Session cleared", zap.String("username", session.Username), zap.String("action", string(action)))
		s.publish(ctx, audit.NewRecord(action, session))
	}
}

func (s *SessionService) publish(ctx context.Context, record models.AuditRecord) {
	if s.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := s.audit.Publish(ctx, record); err != nil {
		s.logger.Warn("Failed to publish audit record", zap.String("action", string(record.Action)), zap.Error(err))
	}
}

// IssueCookie signs a cookie value carrying the session id.
func (s *SessionService) IssueCookie(session *models.Session) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := &models.Claims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cipher.SigningKey())
	if err != nil {
		s.logger.Error("Failed to sign session cookie", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseCookie verifies a cookie value and returns the session id it carries.
// An expired cookie yields its session id together with ErrSessionExpired so
// the caller can remove the session.
func (s *SessionService) ParseCookie(value string) (string, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.cipher.SigningKey(), nil
	})
	// Claims are validated after the signature, so an expired token is genuine.
	if errors.Is(err, jwt.ErrTokenExpired) && claims.SessionID != "" {
		return claims.SessionID, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}
	if !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}

// Client returns a monitoring API client authenticated as the session.
func (s *SessionService) Client(sessionID string) *api_client.Client {
	return s.api.WithCredentials(&sessionCredentials{service: s, sessionID: sessionID})
}

// sessionCredentials reads the token from the store on every call, so a
// logout in another request is seen by the next API call.
type sessionCredentials struct {
	service   *SessionService
	sessionID string
}

func (c *sessionCredentials) Token(ctx context.Context) (string, error) {
	session, err := c.service.Read(ctx, c.sessionID)
	switch {
	case errors.Is(err, ErrNoSession), errors.Is(err, models.ErrIncompleteSession):
		return "", fmt.Errorf("%w: %w", api_client.ErrUnauthorized, err)
	case err != nil:
		return "", err
	}
	return session.Token, nil
}

func (c *sessionCredentials) Revoke(ctx context.Context) {
	if err := c.service.Revoke(ctx, c.sessionID); err != nil {
		c.service.logger.Error("Failed to revoke session", zap.Error(err))
	}
}
