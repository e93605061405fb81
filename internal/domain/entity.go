// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"strings"
	"time"
)

// PinLength is the fixed number of digits in a PIN.
const PinLength = 4

// AppID is an opaque, stable token naming an installed application
// (an Android package name, a desktop process name).
type AppID string

// IsBlank reports whether the identifier carries no usable value.
func (id AppID) IsBlank() bool {
	return strings.TrimSpace(string(id)) == ""
}

func (id AppID) String() string {
	return string(id)
}

// EventKind tags a raw OS notification.
type EventKind string

const (
	KindWindowStateChanged   EventKind = "window_state_changed"
	KindWindowContentChanged EventKind = "window_content_changed"
	KindViewClicked          EventKind = "view_clicked"
	KindNotification         EventKind = "notification"
)

// RawEvent is a foreground notification as delivered by the OS bridge.
type RawEvent struct {
	Kind        EventKind `json:"kind"`
	PackageName string    `json:"package_name"`
	ClassName   string    `json:"class_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SwitchEvent is an application switch derived from raw events.
// Previous is empty for the first switch after a monitor (re)start.
type SwitchEvent struct {
	Previous  AppID
	Current   AppID
	ClassName string
	Timestamp time.Time
}

// Notification is published to the state-mirroring subscriber on every switch.
type Notification struct {
	PackageName string `json:"packageName"`
	ClassName   string `json:"className"`
}

// Action is the outcome of a decision.
type Action int

const (
	ActionAllow Action = iota
	ActionInterceptAndGate
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionInterceptAndGate:
		return "intercept"
	default:
		return "unknown"
	}
}

// AllowReason explains why an Allow decision was taken.
type AllowReason string

const (
	AllowNone               AllowReason = ""
	AllowMonitoringDisabled AllowReason = "monitoring_disabled"
	AllowExempt             AllowReason = "exempt"
	AllowNotLocked          AllowReason = "not_locked"
	AllowGraceWindow        AllowReason = "grace_window"
)

// Decision captures what the engine decided for a single switch event.
type Decision struct {
	Action Action
	Target AppID       // set for ActionInterceptAndGate
	Reason AllowReason // set for ActionAllow
	// Rearmed is the previous app whose grace window was closed by this
	// switch. It can accompany either action.
	Rearmed AppID
}

// GateOutcome is the observable result of a PIN gate input.
type GateOutcome int

const (
	GatePending GateOutcome = iota
	GateUnlocked
	GateRejected
)

func (o GateOutcome) String() string {
	switch o {
	case GatePending:
		return "pending"
	case GateUnlocked:
		return "unlocked"
	case GateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RejectReason distinguishes a wrong PIN from a missing or unreadable credential.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectWrongPin     RejectReason = "wrong_pin"
	RejectNoCredential RejectReason = "no_credential"
	RejectStoreFailure RejectReason = "store_failure"
)

// GateResult is returned by every PIN gate input.
type GateResult struct {
	Outcome GateOutcome
	Reason  RejectReason
	// ResumeErr is set when the gate unlocked but the target could not be resumed.
	ResumeErr error
}

// LockStatus is a snapshot of the lock state (for the status command).
type LockStatus struct {
	MonitoringEnabled bool
	LockedApps        []AppID
	TemporarilyOpen   []AppID
	PinConfigured     bool
}

// MonitorRecord describes the running monitor process.
type MonitorRecord struct {
	PID           int
	StartedAt     time.Time
	LastHeartbeat time.Time
	AppVersion    string
}
