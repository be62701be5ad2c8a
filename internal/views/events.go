package views

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dashboard/internal/models"
)

const (
	msgFetchEvents     = "Failed to fetch events. Please try again."
	msgFetchEventCount = "Failed to fetch event count."
)

type EventsAPI interface {
	Events(ctx context.Context, category models.EventCategory) ([]models.Event, error)
	EventCount(ctx context.Context) (int, error)
}

type EventsState struct {
	Category   models.EventCategory
	Events     []models.Event
	EventCount int
	Error      string
}

// Find returns the event with id from the loaded set.
func (s EventsState) Find(id int64) (models.Event, bool) {
	for _, event := range s.Events {
		if event.ID == id {
			return event, true
		}
	}
	return models.Event{}, false
}

// FilterEvents keeps events whose student name or type label contains q,
// ignoring case.
func FilterEvents(events []models.Event, q string) []models.Event {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, event := range events {
		if strings.Contains(strings.ToLower(event.StudentName), q) ||
			strings.Contains(strings.ToLower(event.Type.Label()), q) ||
			strings.Contains(strings.ToLower(string(event.Type)), q) {
			out = append(out, event)
		}
	}
	return out
}

type Events struct {
	controller[EventsState]
	logger *zap.Logger
}

func NewEvents(reg *Registry, logger *zap.Logger) *Events {
	return &Events{
		controller: controller[EventsState]{reg: reg, view: ViewEvents},
		logger:     logger,
	}
}

// Mount loads the events of one category. The count keeps its previous
// value; it is refreshed on request only.
func (v *Events) Mount(ctx context.Context, sessionID string, api EventsAPI, category models.EventCategory) (EventsState, error) {
	return v.mount(ctx, sessionID, v.load(sessionID, api, category))
}

func (v *Events) load(sessionID string, api EventsAPI, category models.EventCategory) func(context.Context) (EventsState, error) {
	previous, _ := v.current(sessionID)

	return func(ctx context.Context) (EventsState, error) {
		state := EventsState{Category: category, EventCount: previous.EventCount}

		events, err := api.Events(ctx, category)
		switch {
		case fatal(err):
			return EventsState{}, err
		case err != nil:
			v.logger.Error("Error fetching events", zap.String("category", string(category)), zap.Error(err))
			state.Error = msgFetchEvents
		default:
			state.Events = events
		}
		return state, nil
	}
}

// RefreshCount fetches the total event count into the mounted view.
func (v *Events) RefreshCount(ctx context.Context, sessionID string, api EventsAPI) (EventsState, error) {
	if _, err := v.ensure(ctx, sessionID, v.load(sessionID, api, models.CategoryAll)); err != nil {
		return EventsState{}, err
	}

	count, err := api.EventCount(ctx)
	if fatal(err) {
		return EventsState{}, err
	}
	if err != nil {
		v.logger.Error("Error fetching event count", zap.Error(err))
	}

	state, _ := v.update(sessionID, func(s EventsState) EventsState {
		if err != nil {
			s.Error = msgFetchEventCount
			return s
		}
		s.EventCount = count
		s.Error = ""
		return s
	})
	return state, nil
}
