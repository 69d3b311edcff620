//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	"github.com/sqlhaven/sqlhaven-engine/pkg/testhelpers"
)

func TestRedisProjectRepositoryCRUD(t *testing.T) {
	rds := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	repo := NewRedisProjectRepository(rds.Client)

	project := &models.Project{
		Name:     "integration",
		Dialect:  models.DialectAnalytics,
		Database: "warehouse",
	}
	require.NoError(t, repo.Create(ctx, project))
	defer func() { _ = repo.Delete(ctx, project.ID) }()

	got, err := repo.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.Name, got.Name)
	assert.Equal(t, models.DialectAnalytics, got.Dialect)

	got.ActualEngine = models.DialectTrino
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DialectTrino, got.ActualEngine)

	require.NoError(t, repo.Delete(ctx, project.ID))
	_, err = repo.Get(ctx, project.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRedisProjectDeleteCascades(t *testing.T) {
	rds := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	projects := NewRedisProjectRepository(rds.Client)
	schemas := NewRedisSchemaRepository(rds.Client)
	intents := NewRedisIntentRepository(rds.Client)

	project := &models.Project{Name: "cascade", Dialect: models.DialectMySQL, Database: "d"}
	require.NoError(t, projects.Create(ctx, project))
	require.NoError(t, schemas.Put(ctx, project.ID, &models.SchemaSnapshot{Discovered: true}))
	require.NoError(t, intents.Append(ctx, project.ID, &models.QueryIntent{ID: uuid.New(), SQL: "SELECT 1"}, 10))

	require.NoError(t, projects.Delete(ctx, project.ID))

	_, err := schemas.Get(ctx, project.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	history, err := intents.List(ctx, project.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRedisIntentRepositoryCap(t *testing.T) {
	rds := testhelpers.GetTestRedis(t)
	ctx := context.Background()
	repo := NewRedisIntentRepository(rds.Client)
	projectID := uuid.New()
	defer func() { _ = repo.Delete(ctx, projectID) }()

	for i := 0; i < 7; i++ {
		intent := &models.QueryIntent{ID: uuid.New(), SQL: "SELECT " + string(rune('a'+i))}
		require.NoError(t, repo.Append(ctx, projectID, intent, 5))
	}

	history, err := repo.List(ctx, projectID, 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "SELECT g", history[0].SQL)
	assert.Equal(t, "SELECT c", history[4].SQL)
}
