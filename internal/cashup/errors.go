package cashup

import (
	"errors"
	"sort"
	"strings"

	"cashup-backend/internal/closure"
	"cashup-backend/internal/directory"
	"cashup-backend/internal/locks"
)

var (
	ErrPermissionDenied       = errors.New("permission denied")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("the closure was changed by someone else, reload and try again")
	ErrInvalidCredentials     = errors.New("invalid email or password")
)

// ValidationError reports every rejected input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// translate maps storage errors onto the package's error set.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, closure.ErrNotFound), errors.Is(err, directory.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, closure.ErrConcurrentModification), errors.Is(err, locks.ErrLocked):
		return ErrConcurrentModification
	}
	return err
}
