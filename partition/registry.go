package partition

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/tally/stream"
)

// Registry holds one rule per entry kind.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry returns a registry holding rules. It panics on an invalid or
// duplicate rule; use Register to handle those as errors.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a rule. A kind may only be registered once.
func (r *Registry) Register(rule Rule) error {
	if err := rule.check(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.Kind]; exists {
		return fmt.Errorf("%w: kind %q already registered", ErrInvalidRule, rule.Kind)
	}
	r.rules[rule.Kind] = rule
	return nil
}

// Replace adds or overwrites the rule for its kind.
func (r *Registry) Replace(rule Rule) error {
	if err := rule.check(); err != nil {
		return err
	}

	r.mu.Lock()
	r.rules[rule.Kind] = rule
	r.mu.Unlock()
	return nil
}

// Rule returns the rule for kind.
func (r *Registry) Rule(kind string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[kind]
	return rule, ok
}

// Resolve returns the rule producing key, or ErrUnknownStream.
func (r *Registry) Resolve(key stream.Key) (Rule, error) {
	rule, ok := r.Rule(key.Kind())
	if !ok || !rule.Accepts(key) {
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownStream, key)
	}
	return rule, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.rules))
	for k := range r.rules {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
