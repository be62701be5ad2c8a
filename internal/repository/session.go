package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"dashboard/internal/models"

	"go.uber.org/zap"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=session.go -destination=../mocks/session_repository.go -package=mocks

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores sessions as whole records. Implementations never
// expose a partially written session.
type SessionRepository interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every session created before the cutoff and
	// returns the removed records.
	DeleteExpired(ctx context.Context, before time.Time) ([]*models.Session, error)
}

type sqlSessionRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewSQLSessionRepository(db *DB, logger *zap.Logger) SessionRepository {
	return &sqlSessionRepository{db: db, logger: logger}
}

func (r *sqlSessionRepository) Save(ctx context.Context, session *models.Session) error {
	query, args, err := r.db.Builder.
		Insert("sessions").
		Columns("id", "token", "username", "role", "created_at").
		Values(session.ID, session.Token, session.Username, session.Role, session.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET token = excluded.token, username = excluded.username, role = excluded.role").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to save session", zap.String("username", session.Username), zap.Error(err))
		return err
	}
	return nil
}

func (r *sqlSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query, args, err := r.db.Builder.
		Select("id", "token", "username", "role", "created_at").
		From("sessions").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session: %w", err)
	}

	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		r.logger.Error("Failed to get session", zap.Error(err))
		return nil, err
	}
	return &session, nil
}

func (r *sqlSessionRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.db.Builder.
		Delete("sessions").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to delete session", zap.Error(err))
		return err
	}
	return nil
}

func (r *sqlSessionRepository) DeleteExpired(ctx context.Context, before time.Time) ([]*models.Session, error) {
	query, args, err := r.db.Builder.
		Delete("sessions").
		Where("created_at < ?", before).
		Suffix("RETURNING id, token, username, role, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete expired sessions: %w", err)
	}

	var sessions []*models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		r.logger.Error("Failed to delete expired sessions", zap.Time("before", before), zap.Error(err))
		return nil, err
	}
	return sessions, nil
}

type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemorySessionRepository keeps sessions in process memory; they are lost
// on restart.
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[string]models.Session)}
}

func (r *memorySessionRepository) Save(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepository) DeleteExpired(_ context.Context, before time.Time) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*models.Session
	for id, session := range r.sessions {
		if session.CreatedAt.Before(before) {
			expired = append(expired, &session)
			delete(r.sessions, id)
		}
	}
	return expired, nil
}
