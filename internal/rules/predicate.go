// Package rules evaluates named permissions built from composable predicates.
package rules

import (
	"context"
	"strings"

	"cashup-backend/internal/models"
)

// Func answers whether actor may act on target. target is nil for
// permissions that do not concern a particular object.
type Func func(ctx context.Context, actor *models.Personnel, target any) (bool, error)

// Predicate is a named Func. Predicates are values; combine them with And,
// Or and Not.
type Predicate struct {
	name string
	fn   Func
}

func New(name string, fn Func) Predicate {
	return Predicate{name: name, fn: fn}
}

func (p Predicate) Name() string { return p.name }

// Test evaluates the predicate. A zero Predicate is always false.
func (p Predicate) Test(ctx context.Context, actor *models.Personnel, target any) (bool, error) {
	if p.fn == nil {
		return false, nil
	}
	return p.fn(ctx, actor, target)
}

// And is true when every predicate is. Evaluation stops at the first false
// result or error.
func And(ps ...Predicate) Predicate {
	return New(join(ps, " & "), func(ctx context.Context, actor *models.Personnel, target any) (bool, error) {
		for _, p := range ps {
			ok, err := p.Test(ctx, actor, target)
			if err != nil || !ok {
				return false, err
			}
		}
		return len(ps) > 0, nil
	})
}

// Or is true when any predicate is. Evaluation stops at the first true
// result or error.
func Or(ps ...Predicate) Predicate {
	return New(join(ps, " | "), func(ctx context.Context, actor *models.Personnel, target any) (bool, error) {
		for _, p := range ps {
			ok, err := p.Test(ctx, actor, target)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

func Not(p Predicate) Predicate {
	return New("~"+p.name, func(ctx context.Context, actor *models.Personnel, target any) (bool, error) {
		ok, err := p.Test(ctx, actor, target)
		if err != nil {
			return false, err
		}
		return !ok, nil
	})
}

func join(ps []Predicate, sep string) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.name
	}
	return "(" + strings.Join(names, sep) + ")"
}

// on adapts a predicate over a concrete target type. Other targets, and an
// anonymous actor, evaluate to false.
func on[T any](name string, fn func(ctx context.Context, actor *models.Personnel, target T) (bool, error)) Predicate {
	return New(name, func(ctx context.Context, actor *models.Personnel, target any) (bool, error) {
		t, ok := target.(T)
		if !ok || actor == nil {
			return false, nil
		}
		return fn(ctx, actor, t)
	})
}
