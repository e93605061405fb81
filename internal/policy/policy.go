// Package policy implements the Strategy pattern for lock exemption rules.
// Each shell family (Android system UI, vendor launchers, desktop shells)
// has its own policy listing identifiers that must never be locked.
package policy

import "strings"

// MatchKind selects how a Rule pattern is compared with an identifier.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchPrefix   MatchKind = "prefix"
	MatchContains MatchKind = "contains"
)

// Rule is one row of the exemption table.
type Rule struct {
	Kind    MatchKind
	Pattern string
}

// Matches reports whether id satisfies the rule. Comparison is case-sensitive.
func (r Rule) Matches(id string) bool {
	if r.Pattern == "" {
		return false
	}
	switch r.Kind {
	case MatchExact:
		return id == r.Pattern
	case MatchPrefix:
		return strings.HasPrefix(id, r.Pattern)
	case MatchContains:
		return strings.Contains(id, r.Pattern)
	default:
		return false
	}
}

// ShellPolicy defines the strategy interface for a family of shell,
// launcher or system-UI identifiers.
type ShellPolicy interface {
	// ID returns unique identifier (e.g., "android-shell").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// Rules returns the exemption rules contributed by this policy.
	Rules() []Rule
}

// Exact, Prefix and Contains build rules for policy tables.
func Exact(pattern string) Rule    { return Rule{Kind: MatchExact, Pattern: pattern} }
func Prefix(pattern string) Rule   { return Rule{Kind: MatchPrefix, Pattern: pattern} }
func Contains(pattern string) Rule { return Rule{Kind: MatchContains, Pattern: pattern} }
