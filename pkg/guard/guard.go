// Package guard decides which archive entry names may never be imported.
package guard

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrDisallowed is returned by Check when a name matches a rule.
var ErrDisallowed = errors.New("disallowed collection name")

// Rule is a named pattern. A name matching Pattern is rejected.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Guard holds an ordered, immutable list of rules.
type Guard struct {
	rules []Rule
}

// New builds a guard from rules. Rules are evaluated in order.
func New(rules ...Rule) (*Guard, error) {
	g := &Guard{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("guard: rule %d (%q) has no pattern", i, r.Name)
		}
		g.rules = append(g.rules, r)
	}
	return g, nil
}

// Default rejects the internal index and user collections of the source
// database plus metadata sidecar files.
func Default() *Guard {
	return &Guard{rules: []Rule{
		{Name: "system-indexes", Pattern: regexp.MustCompile(`^system\.indexes\.(json|csv|bson)`)},
		{Name: "system-users", Pattern: regexp.MustCompile(`^system\.users\.(json|csv|bson)`)},
		{Name: "metadata", Pattern: regexp.MustCompile(`.+\.metadata\.json$`)},
	}}
}

// Check returns an error wrapping ErrDisallowed if any rule matches name.
func (g *Guard) Check(name string) error {
	for _, r := range g.rules {
		if r.Pattern.MatchString(name) {
			return fmt.Errorf("%w: %q matches rule %s", ErrDisallowed, name, r.Name)
		}
	}
	return nil
}

// Disallowed reports whether name matches any rule.
func (g *Guard) Disallowed(name string) bool {
	return g.Check(name) != nil
}

// Rules returns a copy of the guard's rules.
func (g *Guard) Rules() []Rule {
	return append([]Rule(nil), g.rules...)
}
