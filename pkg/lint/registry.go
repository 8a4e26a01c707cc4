package lint

import (
	"cmp"
	"fmt"
	"slices"
)

// Registry holds the available rules. It is immutable once built.
type Registry struct {
	rules map[string]RuleDef // keyed by ID
	names map[string]string  // name -> ID
}

// NewRegistry builds a registry from rule definitions. IDs and names must be
// unique.
func NewRegistry(defs ...RuleDef) (*Registry, error) {
	r := &Registry{
		rules: make(map[string]RuleDef, len(defs)),
		names: make(map[string]string, len(defs)),
	}
	for _, def := range defs {
		if def.ID == "" || def.New == nil {
			return nil, fmt.Errorf("rule %q: id and constructor are required", def.Name)
		}
		if _, dup := r.rules[def.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %s", def.ID)
		}
		if _, dup := r.names[def.Name]; dup && def.Name != "" {
			return nil, fmt.Errorf("duplicate rule name %s", def.Name)
		}
		r.rules[def.ID] = def
		if def.Name != "" {
			r.names[def.Name] = def.ID
		}
	}
	return r, nil
}

// All returns all rules sorted by ID.
func (r *Registry) All() []RuleDef {
	rules := make([]RuleDef, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	slices.SortFunc(rules, func(a, b RuleDef) int { return cmp.Compare(a.ID, b.ID) })
	return rules
}

// ByID returns a rule by its ID or symbolic name.
func (r *Registry) ByID(id string) (RuleDef, bool) {
	if rule, ok := r.rules[id]; ok {
		return rule, true
	}
	if full, ok := r.names[id]; ok {
		return r.rules[full], true
	}
	return RuleDef{}, false
}

// ByGroup returns all rules in a specific group, sorted by ID.
func (r *Registry) ByGroup(group string) []RuleDef {
	var rules []RuleDef
	for _, rule := range r.All() {
		if rule.Group == group {
			rules = append(rules, rule)
		}
	}
	return rules
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	return len(r.rules)
}
