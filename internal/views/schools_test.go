package views_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/models"
	"dashboard/internal/views"
)

func TestSchools_AddAppendsWithoutRefetch(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.schools = []models.School{{ID: 1, OrgName: "Школа №1"}, {ID: 2, OrgName: "Лицей"}}
	schools := views.NewSchools(views.NewRegistry(), zap.NewNop())
	ctx := context.Background()

	_, err := schools.Mount(ctx, "sid", api)
	require.NoError(t, err)

	state, err := schools.Add(ctx, "sid", api, "Гимназия №5")
	require.NoError(t, err)
	require.Len(t, state.Schools, 3)
	require.Equal(t, models.School{ID: 101, OrgName: "Гимназия №5"}, state.Schools[2])

	require.Equal(t, 1, api.count("CreateSchool"))
	require.Equal(t, 1, api.count("Schools"))
}

func TestSchools_AddEmptyName(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	schools := views.NewSchools(views.NewRegistry(), zap.NewNop())

	state, err := schools.Add(context.Background(), "sid", api, " ")
	require.NoError(t, err)
	require.Equal(t, "School name cannot be empty.", state.Error)
	require.Zero(t, api.count("CreateSchool"))
}

func TestPageSchools(t *testing.T) {
	t.Parallel()

	list := make([]models.School, 0, 30)
	for i := 1; i <= 30; i++ {
		list = append(list, models.School{ID: int64(i), OrgName: fmt.Sprintf("Школа №%d", i)})
	}

	page := views.PageSchools(list, "", 10)
	require.Equal(t, 10, page.Shown)
	require.Equal(t, 30, page.Total)
	require.Equal(t, int64(1), page.Rows[0].ID)

	page = views.PageSchools(list, "№2", 25)
	require.Equal(t, 11, page.Total)
	require.Equal(t, 11, page.Shown)

	page = views.PageSchools(nil, "", 50)
	require.Zero(t, page.Shown)
}

func TestParsePerPage(t *testing.T) {
	t.Parallel()

	require.Equal(t, 10, views.ParsePerPage(""))
	require.Equal(t, 25, views.ParsePerPage("25"))
	require.Equal(t, 50, views.ParsePerPage("50"))
	require.Equal(t, 10, views.ParsePerPage("7"))
	require.Equal(t, 10, views.ParsePerPage("abc"))
}
