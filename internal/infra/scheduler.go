package infra

import (
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// TimerScheduler implements domain.Scheduler with time.AfterFunc.
// Stop cancels callbacks that have not fired yet.
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
}

// NewTimerScheduler creates a scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[*time.Timer]struct{})}
}

// After runs fn on its own goroutine once d has elapsed.
func (s *TimerScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		fn()
	})
	s.timers[t] = struct{}{}
}

// Stop cancels pending callbacks. Later calls to After are ignored.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[*time.Timer]struct{})
}

// Ensure TimerScheduler implements domain.Scheduler.
var _ domain.Scheduler = (*TimerScheduler)(nil)
