// Package calculator is the compile-time-registered calculator dispatch
// table (spec §4.C7, §9 Design Notes: "replace runtime module import with a
// compile-time-registered table of name -> constructor").
//
// Grounded on original_source/hooks/lib/calculator_interface.py (the
// single-method calculate(project_dir, branch) contract) and
// strategy_registry.py (the registration pattern this package mirrors for
// calculators instead of strategies).
package calculator

import (
	"sync"

	"requirements/internal/logging"
)

var log = logging.For("calculator")

// Output is a calculator's result (spec §4.C7: {value, summary,
// ...extras}). A nil *Output from Calculate means "skip this check"
// (fail-open); calculators must never panic.
type Output struct {
	Value   float64
	Summary string
	Extra   map[string]any
}

// Calculator computes a single numeric result for a project/branch pair.
type Calculator interface {
	Calculate(projectDir, branch string) (*Output, error)
}

var (
	mu       sync.Mutex
	registry = map[string]Calculator{}
)

// Register adds name to the dispatch table. Called from each calculator
// package's init(), the way strategy_registry.py's decorator-based
// registration works, translated to Go's compile-time init ordering.
func Register(name string, c Calculator) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = c
}

// Lookup resolves name to a registered Calculator, or (nil, false) if
// unregistered — callers treat an unresolved calculator as a configuration
// error (spec §3 policy-reader invariant: "calculator must resolve").
func Lookup(name string) (Calculator, bool) {
	mu.Lock()
	defer mu.Unlock()
	c, ok := registry[name]
	return c, ok
}

// Run invokes calc, converting a panic or error into a nil result (spec
// §4.C7 "Calculators must never throw"; §5 "the engine wraps their
// execution in a try/ignore").
func Run(name, projectDir, branch string) (out *Output) {
	calc, ok := Lookup(name)
	if !ok {
		log.Error("calculator not registered, skipping", "calculator", name)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("calculator panicked, skipping", "calculator", name, "recover", r)
			out = nil
		}
	}()

	result, err := calc.Calculate(projectDir, branch)
	if err != nil {
		log.Warn("calculator returned error, skipping", "calculator", name, "error", err)
		return nil
	}
	return result
}
