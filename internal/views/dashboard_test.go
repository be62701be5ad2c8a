package views_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/api_client"
	"dashboard/internal/views"
)

func TestWeekLabels(t *testing.T) {
	t.Parallel()

	today := time.Date(2025, time.March, 3, 15, 4, 0, 0, time.UTC)

	require.Equal(t, []string{
		"25.02.2025",
		"26.02.2025",
		"27.02.2025",
		"28.02.2025",
		"01.03.2025",
		"02.03.2025",
		"03.03.2025",
	}, views.WeekLabels(today))
}

func TestDashboard_Mount(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.counts = [3]int{120, 45, 3}
	api.weekly = []api_client.WeeklyBucket{
		{Day: "d7", Count: 7}, {Day: "d1", Count: 1}, {Day: "d2", Count: 2},
		{Day: "d3", Count: 3}, {Day: "d4", Count: 4}, {Day: "d5", Count: 5}, {Day: "d6", Count: 6},
	}

	dashboard := views.NewDashboard(views.NewRegistry(), zap.NewNop())

	state, err := dashboard.Mount(context.Background(), "sid", api)
	require.NoError(t, err)
	require.Equal(t, 120, state.StudentCount)
	require.Equal(t, 45, state.EventCount)
	require.Equal(t, 3, state.SchoolCount)

	require.Len(t, state.Week, 7)
	counts := make([]int, 0, 7)
	for _, point := range state.Week {
		counts = append(counts, point.Count)
	}
	require.Equal(t, []int{7, 1, 2, 3, 4, 5, 6}, counts, "buckets are aligned by position")

	labels := views.WeekLabels(time.Now())
	require.Equal(t, labels[0], state.RangeStart)
	require.Equal(t, labels[6], state.RangeEnd)
	require.Equal(t, labels[6], state.Week[6].Label)
}

func TestDashboard_ShortWeekAndFailedCounter(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.counts = [3]int{120, 45, 3}
	api.weekly = []api_client.WeeklyBucket{{Count: 9}, {Count: 8}}
	api.failWith("EventCount", errors.New("boom"))

	dashboard := views.NewDashboard(views.NewRegistry(), zap.NewNop())

	state, err := dashboard.Mount(context.Background(), "sid", api)
	require.NoError(t, err)
	require.Zero(t, state.EventCount)
	require.Equal(t, 120, state.StudentCount)
	require.Equal(t, 9, state.Week[0].Count)
	require.Equal(t, 8, state.Week[1].Count)
	require.Zero(t, state.Week[6].Count)
}

func TestDashboard_Unauthorized(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.failWith("SchoolCount", api_client.ErrUnauthorized)

	dashboard := views.NewDashboard(views.NewRegistry(), zap.NewNop())

	_, err := dashboard.Mount(context.Background(), "sid", api)
	require.ErrorIs(t, err, api_client.ErrUnauthorized)
}

func TestDashboard_TeardownCancelsLoad(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.block = make(chan struct{})

	reg := views.NewRegistry()
	dashboard := views.NewDashboard(reg, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := dashboard.Mount(context.Background(), "sid", api)
		done <- err
	}()

	require.Eventually(t, func() bool { return api.count("WeeklyEvents") == 1 }, time.Second, time.Millisecond)
	reg.Teardown("sid")

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("load was not cancelled")
	}
}
