package policy

import (
	"github.com/eliteGoblin/focusd/app_lock/internal/domain"
)

// Classifier is the self/system predicate: an identifier is exempt from
// locking if it is the gate application itself or matches any rule.
// False positives are preferred over locking system UI.
type Classifier struct {
	selfID domain.AppID
	rules  []Rule
}

// NewClassifier snapshots the rules of the registry.
func NewClassifier(selfID domain.AppID, registry *Registry) *Classifier {
	return &Classifier{
		selfID: selfID,
		rules:  registry.Rules(),
	}
}

// IsExempt reports whether id must never be intercepted.
func (c *Classifier) IsExempt(id domain.AppID) bool {
	if id == c.selfID && c.selfID != "" {
		return true
	}
	s := string(id)
	for _, r := range c.rules {
		if r.Matches(s) {
			return true
		}
	}
	return false
}

// SelfID returns the gate application's own identifier.
func (c *Classifier) SelfID() domain.AppID {
	return c.selfID
}

// Ensure Classifier implements domain.ExemptionPolicy.
var _ domain.ExemptionPolicy = (*Classifier)(nil)
