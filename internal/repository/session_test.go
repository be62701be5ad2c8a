package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/models"
	"dashboard/internal/repository"
	"dashboard/internal/repository/repositorytest"
)

func sessionRepositories(t *testing.T) map[string]repository.SessionRepository {
	t.Helper()

	return map[string]repository.SessionRepository{
		"memory": repository.NewMemorySessionRepository(),
		"sqlite": repository.NewSQLSessionRepository(repositorytest.NewSQLiteDB(t), zap.NewNop()),
	}
}

func TestSessionRepository_SaveGetDelete(t *testing.T) {
	t.Parallel()

	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			session := &models.Session{
				ID:        "8c6f3a4e-0000-4000-8000-000000000001",
				Token:     "sealed-token",
				Username:  "aigerim",
				Role:      models.RoleAdmin,
				CreatedAt: time.Now().UTC().Truncate(time.Second),
			}

			_, err := repo.Get(ctx, session.ID)
			require.ErrorIs(t, err, repository.ErrSessionNotFound)

			require.NoError(t, repo.Save(ctx, session))

			got, err := repo.Get(ctx, session.ID)
			require.NoError(t, err)
			require.Equal(t, session.Token, got.Token)
			require.Equal(t, session.Username, got.Username)
			require.Equal(t, session.Role, got.Role)
			require.True(t, session.CreatedAt.Equal(got.CreatedAt))

			require.NoError(t, repo.Delete(ctx, session.ID))

			_, err = repo.Get(ctx, session.ID)
			require.ErrorIs(t, err, repository.ErrSessionNotFound)

			// Deleting an absent session is not an error.
			require.NoError(t, repo.Delete(ctx, session.ID))
		})
	}
}

func TestSessionRepository_SaveOverwritesWholeRecord(t *testing.T) {
	t.Parallel()

	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			require.NoError(t, repo.Save(ctx, &models.Session{
				ID: "s1", Token: "old", Username: "old-user", Role: models.RoleStaff, CreatedAt: now,
			}))
			require.NoError(t, repo.Save(ctx, &models.Session{
				ID: "s1", Token: "new", Username: "new-user", Role: models.RoleAdmin, CreatedAt: now,
			}))

			got, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, "new", got.Token)
			require.Equal(t, "new-user", got.Username)
			require.Equal(t, models.RoleAdmin, got.Role)
		})
	}
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	t.Parallel()

	for name, repo := range sessionRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			require.NoError(t, repo.Save(ctx, &models.Session{
				ID: "old", Token: "t1", Username: "aigerim", Role: models.RoleStaff, CreatedAt: now.Add(-2 * time.Hour),
			}))
			require.NoError(t, repo.Save(ctx, &models.Session{
				ID: "fresh", Token: "t2", Username: "ержан", Role: models.RoleAdmin, CreatedAt: now,
			}))

			expired, err := repo.DeleteExpired(ctx, now.Add(-time.Hour))
			require.NoError(t, err)
			require.Len(t, expired, 1)
			require.Equal(t, "old", expired[0].ID)
			require.Equal(t, "aigerim", expired[0].Username)

			_, err = repo.Get(ctx, "old")
			require.ErrorIs(t, err, repository.ErrSessionNotFound)
			_, err = repo.Get(ctx, "fresh")
			require.NoError(t, err)

			expired, err = repo.DeleteExpired(ctx, now.Add(-time.Hour))
			require.NoError(t, err)
			require.Empty(t, expired)
		})
	}
}
