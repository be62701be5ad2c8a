package views

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dashboard/internal/api_client"
)

const (
	weekDays    = 7
	labelLayout = "02.01.2006"
)

type DashboardAPI interface {
	StudentCount(ctx context.Context) (int, error)
	EventCount(ctx context.Context) (int, error)
	SchoolCount(ctx context.Context) (int, error)
	WeeklyEvents(ctx context.Context) ([]api_client.WeeklyBucket, error)
}

type WeekPoint struct {
	Label string
	Count int
}

type DashboardState struct {
	StudentCount int
	EventCount   int
	SchoolCount  int
	Week         []WeekPoint
	RangeStart   string
	RangeEnd     string
}

// WeekLabels returns the seven calendar dates ending on today, oldest first.
func WeekLabels(today time.Time) []string {
	labels := make([]string, weekDays)
	start := today.AddDate(0, 0, -(weekDays - 1))
	for i := range labels {
		labels[i] = start.AddDate(0, 0, i).Format(labelLayout)
	}
	return labels
}

// alignWeek pairs bucket counts with labels by position. Missing buckets
// count as zero and extra buckets are dropped.
func alignWeek(labels []string, buckets []api_client.WeeklyBucket) []WeekPoint {
	week := make([]WeekPoint, len(labels))
	for i, label := range labels {
		week[i].Label = label
		if i < len(buckets) {
			week[i].Count = buckets[i].Count
		}
	}
	return week
}

type Dashboard struct {
	controller[DashboardState]
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboard(reg *Registry, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		controller: controller[DashboardState]{reg: reg, view: ViewDashboard},
		logger:     logger,
		now:        time.Now,
	}
}

// Mount fetches the three counters and the weekly series concurrently. A
// failed fetch leaves its value at zero.
func (d *Dashboard) Mount(ctx context.Context, sessionID string, api DashboardAPI) (DashboardState, error) {
	return d.mount(ctx, sessionID, func(ctx context.Context) (DashboardState, error) {
		var (
			state   DashboardState
			buckets []api_client.WeeklyBucket
		)

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return d.keep("student count", func() (err error) {
				state.StudentCount, err = api.StudentCount(gctx)
				return err
			})
		})
		g.Go(func() error {
			return d.keep("event count", func() (err error) {
				state.EventCount, err = api.EventCount(gctx)
				return err
			})
		})
		g.Go(func() error {
			return d.keep("school count", func() (err error) {
				state.SchoolCount, err = api.SchoolCount(gctx)
				return err
			})
		})
		g.Go(func() error {
			return d.keep("weekly events", func() (err error) {
				buckets, err = api.WeeklyEvents(gctx)
				return err
			})
		})

		if err := g.Wait(); err != nil {
			return DashboardState{}, err
		}

		labels := WeekLabels(d.now())
		state.Week = alignWeek(labels, buckets)
		state.RangeStart = labels[0]
		state.RangeEnd = labels[len(labels)-1]

		return state, nil
	})
}

// keep runs fetch and swallows its error unless it is fatal to the view.
func (d *Dashboard) keep(what string, fetch func() error) error {
	err := fetch()
	if err == nil {
		return nil
	}
	if fatal(err) {
		return err
	}
	d.logger.Error("Failed to fetch dashboard data", zap.String("what", what), zap.Error(err))
	return nil
}
