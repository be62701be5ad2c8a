package views_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dashboard/internal/views"
)

func TestRegistry_MountCancelsPreviousTask(t *testing.T) {
	t.Parallel()

	reg := views.NewRegistry()

	first := reg.Mount(context.Background(), "sid", views.ViewStudents)
	defer first.Done()

	second := reg.Mount(context.Background(), "sid", views.ViewStudents)
	defer second.Done()

	<-first.Context().Done()
	require.ErrorIs(t, first.Context().Err(), context.Canceled)
	require.NoError(t, second.Context().Err())

	require.False(t, first.Commit("stale"))
	require.True(t, second.Commit("fresh"))

	state, ok := reg.State("sid", views.ViewStudents)
	require.True(t, ok)
	require.Equal(t, "fresh", state)
}

func TestRegistry_ViewsAreIndependent(t *testing.T) {
	t.Parallel()

	reg := views.NewRegistry()

	students := reg.Mount(context.Background(), "sid", views.ViewStudents)
	defer students.Done()
	other := reg.Mount(context.Background(), "other", views.ViewStudents)
	defer other.Done()
	schools := reg.Mount(context.Background(), "sid", views.ViewSchools)
	defer schools.Done()

	require.NoError(t, students.Context().Err())
	require.NoError(t, other.Context().Err())
	require.NoError(t, schools.Context().Err())
}

func TestRegistry_RequestCancellation(t *testing.T) {
	t.Parallel()

	reg := views.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	task := reg.Mount(ctx, "sid", views.ViewEvents)
	defer task.Done()

	cancel()
	<-task.Context().Done()
	require.False(t, task.Commit("late"))
}

func TestRegistry_Teardown(t *testing.T) {
	t.Parallel()

	reg := views.NewRegistry()

	a := reg.Mount(context.Background(), "sid", views.ViewDashboard)
	defer a.Done()
	b := reg.Mount(context.Background(), "sid", views.ViewFaceEncodings)
	defer b.Done()
	keep := reg.Mount(context.Background(), "other", views.ViewDashboard)
	defer keep.Done()

	require.True(t, a.Commit("state"))
	require.Equal(t, 3, reg.Len())

	reg.Teardown("sid")

	<-a.Context().Done()
	<-b.Context().Done()
	require.NoError(t, keep.Context().Err())
	require.Equal(t, 1, reg.Len())

	_, ok := reg.State("sid", views.ViewDashboard)
	require.False(t, ok)
}

func TestRegistry_Update(t *testing.T) {
	t.Parallel()

	reg := views.NewRegistry()
	require.False(t, reg.Update("sid", views.ViewSchools, func(v any) any { return v }))

	task := reg.Mount(context.Background(), "sid", views.ViewSchools)
	require.True(t, task.Commit(1))
	task.Done()

	require.True(t, reg.Update("sid", views.ViewSchools, func(v any) any { return v.(int) + 1 }))

	state, ok := reg.State("sid", views.ViewSchools)
	require.True(t, ok)
	require.Equal(t, 2, state)
}
