package daemon

import (
	"sync"
)

// Locator holds the one live monitor service of the process, reachable by
// event callbacks and by the administrative layer.
type Locator struct {
	mu      sync.RWMutex
	service *Service
}

// Default is the process-wide locator.
var Default = &Locator{}

// Register makes s the live service. Registering a second live service
// fails with ErrAlreadyRunning.
func (l *Locator) Register(s *Service) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.service != nil && l.service != s {
		return ErrAlreadyRunning
	}
	l.service = s
	return nil
}

// Unregister clears s if it is the live service.
func (l *Locator) Unregister(s *Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.service == s {
		l.service = nil
	}
}

// Current returns the live service, if any.
func (l *Locator) Current() (*Service, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.service, l.service != nil
}
