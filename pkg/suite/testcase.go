// Package suite defines test cases and resolves them by name, from Go
// registrations or from a YAML suite file.
package suite

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mslinn/perftest/pkg/window"
)

// Hook prepares or cleans up state around a run. Hooks are opaque to the
// harness: it calls them but never interprets what they do.
type Hook func(ctx context.Context) error

// TestCase is a named unit of code to measure
type TestCase struct {
	Name     string
	Body     window.Body
	Setup    Hook
	Teardown Hook
}

// Validate checks that the case can be run
func (tc TestCase) Validate() error {
	if strings.TrimSpace(tc.Name) == "" {
		return fmt.Errorf("test case name is required")
	}
	if strings.ContainsAny(tc.Name, `/\`) {
		return fmt.Errorf("test case name %q must not contain path separators", tc.Name)
	}
	if tc.Body == nil {
		return fmt.Errorf("test case %q has no body", tc.Name)
	}
	return nil
}

// Registry holds test cases by name, preserving registration order
type Registry struct {
	mu    sync.RWMutex
	cases map[string]TestCase
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{cases: make(map[string]TestCase)}
}

// Default is the registry the command-line tools resolve names against
var Default = NewRegistry()

// Register adds a case to the default registry
func Register(tc TestCase) error {
	return Default.Register(tc)
}

// Register adds a case; names must be unique
func (r *Registry) Register(tc TestCase) error {
	if err := tc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cases[tc.Name]; exists {
		return fmt.Errorf("test case %q already registered", tc.Name)
	}
	r.cases[tc.Name] = tc
	r.order = append(r.order, tc.Name)
	return nil
}

// MustRegister is Register that panics on error, for package init
func (r *Registry) MustRegister(tc TestCase) {
	if err := r.Register(tc); err != nil {
		panic(err)
	}
}

// Get returns the case with the given name
func (r *Registry) Get(name string) (TestCase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tc, ok := r.cases[name]
	return tc, ok
}

// Names returns registered names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Resolve returns the named cases in the order given, or every registered
// case when names is empty. Unknown names are reported together.
func (r *Registry) Resolve(names []string) ([]TestCase, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	cases := make([]TestCase, 0, len(names))
	var unknown []string
	for _, name := range names {
		tc, err := r.Expression(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		cases = append(cases, tc)
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown test case(s): %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}
	return cases, nil
}

// Expression turns a command-line expression into a case: a registered name,
// or "sh:<command line>" which runs the command through the shell.
func (r *Registry) Expression(expr string) (TestCase, error) {
	if command, ok := strings.CutPrefix(expr, ShellPrefix); ok {
		return ShellCase(expr, CommandSpec{Command: command})
	}
	tc, ok := r.Get(expr)
	if !ok {
		return TestCase{}, fmt.Errorf("unknown test case %q", expr)
	}
	return tc, nil
}
