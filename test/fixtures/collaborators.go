// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
	"github.com/eliteGoblin/focusd/app_lock/internal/usecase"
)

// Recorder implements every engine collaborator and records the calls in
// order, e.g. "suppress", "gate:<id>", "resume:<id>".
type Recorder struct {
	mu        sync.Mutex
	calls     []string
	ResumeErr error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

// Suppress records a home redirect.
func (r *Recorder) Suppress() error {
	r.add("suppress")
	return nil
}

// PresentGate records a gate presentation.
func (r *Recorder) PresentGate(id domain.AppID) error {
	r.add("gate:" + string(id))
	return nil
}

// Resume records a relaunch and returns ResumeErr.
func (r *Recorder) Resume(id domain.AppID) error {
	r.add("resume:" + string(id))
	return r.ResumeErr
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset forgets the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Collaborators wires the recorder into all three engine roles.
func (r *Recorder) Collaborators() usecase.Collaborators {
	return usecase.Collaborators{Suppressor: r, Presenter: r, Launcher: r}
}

// InlineScheduler runs scheduled callbacks immediately.
type InlineScheduler struct{}

// After calls fn without waiting.
func (InlineScheduler) After(_ time.Duration, fn func()) { fn() }

// SwitchTo builds the raw event a platform emits when pkg comes to the front.
func SwitchTo(pkg string) domain.RawEvent {
	return domain.RawEvent{
		Kind:        domain.KindWindowStateChanged,
		PackageName: pkg,
		Timestamp:   time.Now(),
	}
}

var (
	_ domain.ForegroundSuppressor = (*Recorder)(nil)
	_ domain.GatePresenter        = (*Recorder)(nil)
	_ domain.AppLauncher          = (*Recorder)(nil)
	_ domain.Scheduler            = InlineScheduler{}
)
