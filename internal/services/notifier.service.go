package services

import (
	"time"

	"github.com/rs/xid"

	"memviz/internal/models"
)

const notificationUnits = 5

// Notifier keeps the dismissible messages shown above the dashboard. Each one
// expires on its own after five time units.
type Notifier struct {
	pub   Publisher
	sched Scheduler
	unit  time.Duration
	now   func() time.Time

	items []models.Notification
}

// NewNotifier creates a notifier; now may be nil
func NewNotifier(pub Publisher, sched Scheduler, unit time.Duration, now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{pub: pub, sched: sched, unit: unit, now: now}
}

// Notify shows a message at the given level (success, warning, danger)
func (n *Notifier) Notify(level, message string) models.Notification {
	ttl := time.Duration(notificationUnits) * n.unit
	created := n.now()
	item := models.Notification{
		ID:        xid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
	}

	n.items = append([]models.Notification{item}, n.items...)
	n.pub.Publish(models.ViewEvent{Type: models.EventNotification, Data: item})

	n.sched.After(ttl, func() {
		n.Dismiss(item.ID)
	})
	return item
}

// Dismiss removes a notification. Dismissing an unknown or already expired
// notification is a no-op.
func (n *Notifier) Dismiss(id string) bool {
	for i, item := range n.items {
		if item.ID != id {
			continue
		}
		n.items = append(n.items[:i], n.items[i+1:]...)
		n.pub.Publish(models.ViewEvent{
			Type: models.EventNotificationRemove,
			Data: map[string]string{"id": id},
		})
		return true
	}
	return false
}

// Active returns the visible notifications, newest first
func (n *Notifier) Active() []models.Notification {
	items := make([]models.Notification, len(n.items))
	copy(items, n.items)
	return items
}
