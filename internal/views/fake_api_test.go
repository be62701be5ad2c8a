package views_test

import (
	"context"
	"sync"

	"dashboard/internal/api_client"
	"dashboard/internal/models"
)

// fakeAPI implements every view's API interface and records calls.
type fakeAPI struct {
	mu sync.Mutex

	students  []models.Student
	schools   []models.School
	events    map[models.EventCategory][]models.Event
	encodings []models.FaceEncoding
	weekly    []api_client.WeeklyBucket
	counts    [3]int

	nextID int64
	err    map[string]error
	calls  map[string]int
	block  chan struct{}

	deleted  []int64
	enrolled []int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID: 100,
		err:    map[string]error{},
		calls:  map[string]int{},
		events: map[models.EventCategory][]models.Event{},
	}
}

func (f *fakeAPI) call(ctx context.Context, name string) error {
	f.mu.Lock()
	f.calls[name]++
	err := f.err[name]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) failWith(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err[name] = err
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) StudentCount(ctx context.Context) (int, error) {
	if err := f.call(ctx, "StudentCount"); err != nil {
		return 0, err
	}
	return f.counts[0], nil
}

func (f *fakeAPI) EventCount(ctx context.Context) (int, error) {
	if err := f.call(ctx, "EventCount"); err != nil {
		return 0, err
	}
	return f.counts[1], nil
}

func (f *fakeAPI) SchoolCount(ctx context.Context) (int, error) {
	if err := f.call(ctx, "SchoolCount"); err != nil {
		return 0, err
	}
	return f.counts[2], nil
}

func (f *fakeAPI) WeeklyEvents(ctx context.Context) ([]api_client.WeeklyBucket, error) {
	if err := f.call(ctx, "WeeklyEvents"); err != nil {
		return nil, err
	}
	return f.weekly, nil
}

func (f *fakeAPI) Events(ctx context.Context, category models.EventCategory) ([]models.Event, error) {
	if err := f.call(ctx, "Events"); err != nil {
		return nil, err
	}
	return f.events[category], nil
}

func (f *fakeAPI) Students(ctx context.Context) ([]models.Student, error) {
	if err := f.call(ctx, "Students"); err != nil {
		return nil, err
	}
	return append([]models.Student(nil), f.students...), nil
}

func (f *fakeAPI) Schools(ctx context.Context) ([]models.School, error) {
	if err := f.call(ctx, "Schools"); err != nil {
		return nil, err
	}
	return append([]models.School(nil), f.schools...), nil
}

func (f *fakeAPI) CreateStudent(ctx context.Context, _ string, _ int64) (int64, error) {
	if err := f.call(ctx, "CreateStudent"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAPI) CreateSchool(ctx context.Context, _ string) (int64, error) {
	if err := f.call(ctx, "CreateSchool"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID, nil
}

func (f *fakeAPI) DeleteStudent(ctx context.Context, id int64) error {
	if err := f.call(ctx, "DeleteStudent"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) FaceEncodings(ctx context.Context) ([]models.FaceEncoding, error) {
	if err := f.call(ctx, "FaceEncodings"); err != nil {
		return nil, err
	}
	return f.encodings, nil
}

func (f *fakeAPI) EnrollFace(ctx context.Context, userID int64, _ api_client.FaceImage) error {
	if err := f.call(ctx, "EnrollFace"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrolled = append(f.enrolled, userID)
	return nil
}
