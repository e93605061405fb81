// Package monitor turns raw OS foreground notifications into application
// switch events and mirrors them to a single subscriber.
package monitor

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// Foreground de-duplicates raw events and classifies application switches.
// It retains the last foreground identifier across calls; Reset clears it
// when the monitor restarts.
type Foreground struct {
	mu       sync.Mutex
	last     domain.AppID
	lastSeen time.Time
	sub      *subscription
	now      func() time.Time
	logger   *zap.Logger
}

type subscription struct {
	fn func(domain.Notification)
}

// NewForeground creates a monitor with empty history.
func NewForeground(logger *zap.Logger) *Foreground {
	return &Foreground{
		now:    time.Now,
		logger: logger,
	}
}

// OnRawEvent classifies a raw event. It returns a switch event only when the
// foreground identifier differs from the previously seen one.
func (f *Foreground) OnRawEvent(ev domain.RawEvent) (domain.SwitchEvent, bool) {
	if ev.Kind != domain.KindWindowStateChanged {
		return domain.SwitchEvent{}, false
	}

	current := domain.AppID(strings.TrimSpace(ev.PackageName))
	if current.IsBlank() {
		f.logger.Debug("dropping event without package name",
			zap.String("class", ev.ClassName))
		return domain.SwitchEvent{}, false
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = f.now()
	}

	f.mu.Lock()
	previous := f.last
	f.last = current
	f.lastSeen = ts
	sub := f.sub
	f.mu.Unlock()

	if current == previous {
		return domain.SwitchEvent{}, false
	}

	sw := domain.SwitchEvent{
		Previous:  previous,
		Current:   current,
		ClassName: ev.ClassName,
		Timestamp: ts,
	}

	f.logger.Debug("app switched",
		zap.String("from", string(previous)),
		zap.String("to", string(current)))

	if sub != nil {
		f.notify(sub, domain.Notification{
			PackageName: string(current),
			ClassName:   ev.ClassName,
		})
	}

	return sw, true
}

// notify delivers fire-and-forget; a misbehaving subscriber must not take
// the monitor down.
func (f *Foreground) notify(sub *subscription, n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("notification subscriber panicked", zap.Any("panic", r))
		}
	}()
	sub.fn(n)
}

// Subscribe installs fn as the only notification subscriber, replacing any
// previous one. The returned func removes the subscription if it is still
// the active one.
func (f *Foreground) Subscribe(fn func(domain.Notification)) (unsubscribe func()) {
	s := &subscription{fn: fn}

	f.mu.Lock()
	f.sub = s
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.sub == s {
			f.sub = nil
		}
	}
}

// Reset forgets the previous foreground identifier.
func (f *Foreground) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = ""
	f.lastSeen = time.Time{}
}

// Last returns the retained identifier and when it was last seen.
func (f *Foreground) Last() (domain.AppID, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.lastSeen
}
