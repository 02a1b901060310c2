package rules

import (
	"context"
	"fmt"
	"sort"

	"cashup-backend/internal/models"
)

// Registry maps permission names to predicates. It is built once at start-up
// and only read afterwards.
type Registry struct {
	perms map[string]Predicate
}

func NewRegistry() *Registry {
	return &Registry{perms: map[string]Predicate{}}
}

func (r *Registry) Add(name string, p Predicate) error {
	if _, ok := r.perms[name]; ok {
		return fmt.Errorf("permission %q already registered", name)
	}
	r.perms[name] = p
	return nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.perms[name]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.perms))
	for name := range r.perms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check evaluates the named permission. Unknown permissions are denied.
func (r *Registry) Check(ctx context.Context, name string, actor *models.Personnel, target any) (bool, error) {
	p, ok := r.perms[name]
	if !ok {
		return false, nil
	}
	return p.Test(ctx, actor, target)
}
