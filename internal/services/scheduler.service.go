package services

import (
	"sync"
	"time"

	"memviz/internal/models"
)

// Publisher receives view events. The websocket hub is the production
// implementation; every view component is handed the same one.
type Publisher interface {
	Publish(event models.ViewEvent)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(event models.ViewEvent)

func (f PublisherFunc) Publish(event models.ViewEvent) { f(event) }

// Scheduler runs fn once after d has elapsed. The returned func cancels the
// callback if it has not run yet.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

type timerScheduler struct{}

// NewTimerScheduler returns a Scheduler backed by time.AfterFunc
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// lockedScheduler runs callbacks while holding mu, the lock that guards all
// view mutation.
type lockedScheduler struct {
	mu   sync.Locker
	base Scheduler
}

func (s lockedScheduler) After(d time.Duration, fn func()) func() {
	return s.base.After(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		fn()
	})
}
