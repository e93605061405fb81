package policy

import (
	"fmt"
	"sort"
)

// Registry holds all shell exemption policies.
type Registry struct {
	policies map[string]ShellPolicy
}

// NewRegistry creates a registry with all default policies.
func NewRegistry() *Registry {
	r := &Registry{
		policies: make(map[string]ShellPolicy),
	}

	// Register default policies
	r.Register(NewAndroidShellPolicy())
	r.Register(NewVendorLauncherPolicy())
	r.Register(NewDesktopShellPolicy())

	return r
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...ShellPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]ShellPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds a policy to the registry, replacing one with the same ID.
func (r *Registry) Register(p ShellPolicy) {
	r.policies[p.ID()] = p
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (ShellPolicy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// GetAll returns all registered policies ordered by ID.
func (r *Registry) GetAll() []ShellPolicy {
	result := make([]ShellPolicy, 0, len(r.policies))
	for _, id := range r.List() {
		result = append(result, r.policies[id])
	}
	return result
}

// List returns all policy IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rules flattens the rules of every registered policy.
func (r *Registry) Rules() []Rule {
	var rules []Rule
	for _, p := range r.GetAll() {
		rules = append(rules, p.Rules()...)
	}
	return rules
}

// StaticPolicy is a ShellPolicy built from a fixed rule list,
// used for rules coming from configuration.
type StaticPolicy struct {
	id    string
	name  string
	rules []Rule
}

// NewStaticPolicy creates a policy from explicit rules.
func NewStaticPolicy(id, name string, rules ...Rule) *StaticPolicy {
	return &StaticPolicy{id: id, name: name, rules: rules}
}

// NewConfigPolicy builds the "config" policy from exact, prefix and contains
// pattern lists. Empty patterns are skipped.
func NewConfigPolicy(exact, prefix, contains []string) *StaticPolicy {
	var rules []Rule
	for _, p := range exact {
		if p != "" {
			rules = append(rules, Exact(p))
		}
	}
	for _, p := range prefix {
		if p != "" {
			rules = append(rules, Prefix(p))
		}
	}
	for _, p := range contains {
		if p != "" {
			rules = append(rules, Contains(p))
		}
	}
	return NewStaticPolicy("config", "Configured exemptions", rules...)
}

func (p *StaticPolicy) ID() string    { return p.id }
func (p *StaticPolicy) Name() string  { return p.name }
func (p *StaticPolicy) Rules() []Rule { return p.rules }

// Describe renders a rule for listings.
func Describe(r Rule) string {
	return fmt.Sprintf("%s %q", r.Kind, r.Pattern)
}

// Ensure StaticPolicy implements ShellPolicy.
var _ ShellPolicy = (*StaticPolicy)(nil)
