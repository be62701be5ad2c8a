package event_notifier

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"dashboard/internal/models"
	"dashboard/internal/repository"
)

const fetchTimeout = 15 * time.Second

// EventSource lists the detection events of a category.
type EventSource interface {
	Events(ctx context.Context, category models.EventCategory) ([]models.Event, error)
}

// Sender delivers one event to one chat.
type Sender interface {
	NotifyEvent(ctx context.Context, chatID int64, event models.Event) error
}

// Notifier polls the monitoring API for new events and alerts the chats
// subscribed to the student and event type.
type Notifier struct {
	events       EventSource
	subs         repository.SubscriptionRepository
	sender       Sender
	pollInterval time.Duration
	logger       *zap.Logger

	primed bool
	lastID int64
}

// NewNotifier creates a new event notifier.
func NewNotifier(events EventSource, subs repository.SubscriptionRepository, sender Sender, pollInterval time.Duration, logger *zap.Logger) *Notifier {
	return &Notifier{
		events:       events,
		subs:         subs,
		sender:       sender,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run starts the periodic polling. It returns when ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	n.logger.Info("Event notifier started.", zap.Duration("poll_interval", n.pollInterval))

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	// Events that exist on startup are not announced.
	n.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Event notifier stopped.")
			return
		case <-ticker.C:
			n.poll(ctx)
		}
	}
}

// poll fetches all events and notifies about those newer than lastID. The
// first successful fetch only records the newest id.
func (n *Notifier) poll(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	events, err := n.events.Events(fetchCtx, models.CategoryAll)
	cancel()
	if err != nil {
		n.logger.Error("Failed to fetch events", zap.Error(err))
		return
	}

	if !n.primed {
		for _, event := range events {
			if event.ID > n.lastID {
				n.lastID = event.ID
			}
		}
		n.primed = true
		n.logger.Info("Event notifier primed", zap.Int64("last_event_id", n.lastID))
		return
	}

	fresh := make([]models.Event, 0)
	for _, event := range events {
		if event.ID > n.lastID {
			fresh = append(fresh, event)
		}
	}
	if len(fresh) == 0 {
		return
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	n.logger.Info("New events", zap.Int("count", len(fresh)))

	for _, event := range fresh {
		if ctx.Err() != nil {
			return
		}
		n.dispatch(ctx, event)
		n.lastID = event.ID
	}
}

func (n *Notifier) dispatch(ctx context.Context, event models.Event) {
	if !event.Type.IsDanger() || event.StudentName == "" {
		return
	}

	subs, err := n.subs.GetMatching(ctx, event.StudentName, event.Type)
	if err != nil {
		n.logger.Error("Failed to get matching subscriptions", zap.Int64("event_id", event.ID), zap.Error(err))
		return
	}

	for _, sub := range subs {
		if err := n.sender.NotifyEvent(ctx, sub.ChatID, event); err != nil {
			n.logger.Warn("Notification not delivered",
				zap.Int64("event_id", event.ID),
				zap.Int64("chat_id", sub.ChatID),
				zap.Error(err),
			)
			continue
		}
		n.logger.Debug("Notification sent", zap.Int64("event_id", event.ID), zap.Int64("chat_id", sub.ChatID))
	}
}
