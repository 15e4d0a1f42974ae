package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/lyzr/colorsort/common/models"
)

// DefaultSortable allows sorting of image collections only
const DefaultSortable = `collection.media_type == "image"`

// Evaluator evaluates collection policies written in CEL (Common Expression Language).
// Compiled programs are cached per expression.
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new policy evaluator
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("collection", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Compile compiles and caches expr, reporting syntax and type errors
func (e *Evaluator) Compile(expr string) error {
	_, err := e.program(expr)
	return err
}

// Evaluate evaluates expr against a collection
func (e *Evaluator) Evaluate(expr string, col *models.Collection) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"collection": map[string]interface{}{
			"id":         col.ID,
			"media_type": string(col.MediaType),
			"url":        col.URL,
		},
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}

	return result, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, exists := e.cache[expr]
	e.mu.RUnlock()
	if exists {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	if out := ast.OutputType().String(); out != "bool" && out != "dyn" {
		return nil, fmt.Errorf("CEL expression must return bool, got %s", out)
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()

	return prg, nil
}

// CacheSize returns the number of cached expressions
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// SortablePolicy decides whether a collection may be color sorted
type SortablePolicy struct {
	eval *Evaluator
	expr string
}

// NewSortablePolicy compiles expr up front so a bad configuration fails at startup
func NewSortablePolicy(expr string) (*SortablePolicy, error) {
	if expr == "" {
		expr = DefaultSortable
	}

	eval, err := NewEvaluator()
	if err != nil {
		return nil, err
	}
	if err := eval.Compile(expr); err != nil {
		return nil, fmt.Errorf("invalid sortable policy %q: %w", expr, err)
	}

	return &SortablePolicy{eval: eval, expr: expr}, nil
}

// Sortable reports whether col may be sorted
func (p *SortablePolicy) Sortable(col *models.Collection) (bool, error) {
	return p.eval.Evaluate(p.expr, col)
}
