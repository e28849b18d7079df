package rbac

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidArgument is returned for malformed input: an empty required field,
	// a value outside an enumerated set or a violated cross-field constraint.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateCode is returned when a permission with the same code already exists.
	ErrDuplicateCode = errors.New("duplicate permission code")

	// ErrConflict is returned when a change collides with existing state,
	// e.g. a role name already in use or a permission still granted by a role.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a referenced role, permission or assignment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownPermission is returned when a permission code is not in the catalog.
	ErrUnknownPermission = errors.New("unknown permission")

	// ErrStorageFailure is returned when the backing store fails or a transaction aborts.
	// Mutations are transactional, so the operation is safe to retry.
	ErrStorageFailure = errors.New("storage failure")
)

// ValidationError carries per field messages next to its taxonomy error.
type ValidationError struct {
	Kind   error
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}

	return e.Kind.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap returns the taxonomy error so errors.Is works on the kind.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalidFields(fields map[string]string) error {
	return &ValidationError{Kind: ErrInvalidArgument, Fields: fields}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// isTaxonomy reports whether err already carries one of the package errors.
func isTaxonomy(err error) bool {
	for _, kind := range []error{
		ErrInvalidArgument, ErrDuplicateCode, ErrConflict,
		ErrNotFound, ErrUnknownPermission, ErrStorageFailure,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}

	return false
}

// storageError translates a store error into the taxonomy. Errors that were
// already classified inside a transaction pass through unchanged.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}

	if isTaxonomy(err) {
		return err
	}

	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}
