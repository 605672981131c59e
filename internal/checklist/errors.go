package checklist

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStorageUnavailable matches every StorageUnavailableError with errors.Is.
var ErrStorageUnavailable = errors.New("storage unavailable")

// NotFoundError reports a missing checklist, section, chore or staff member.
type NotFoundError struct {
	Kind string
	Key  any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.Key)
}

// BlackoutWindowError rejects a mutation made while the reset window is open.
// Start and End bound today's window so the caller knows when to retry.
type BlackoutWindowError struct {
	Start time.Time
	End   time.Time
}

func (e *BlackoutWindowError) Error() string {
	return fmt.Sprintf("checklist is resetting between %s and %s, try again later",
		e.Start.Format("15:04"), e.End.Format("15:04"))
}

// IncompleteChecklistError blocks a submission while chores are outstanding.
type IncompleteChecklistError struct {
	Checklist string
	ChoreIDs  []int64
}

func (e *IncompleteChecklistError) Error() string {
	ids := make([]string, len(e.ChoreIDs))
	for i, id := range e.ChoreIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("checklist %s has %d incomplete chores: %s",
		e.Checklist, len(e.ChoreIDs), strings.Join(ids, ", "))
}

// StorageUnavailableError wraps a persistence failure or timeout. Mutations
// are not retried by the engine.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("%s: storage unavailable: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// ConflictError reports a catalog or roster entry whose name is taken.
type ConflictError struct {
	Kind string
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Key)
}

// ValidationError rejects malformed input before any storage access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// resultLabel classifies an operation outcome for metrics.
func resultLabel(err error) string {
	var (
		nf  *NotFoundError
		bw  *BlackoutWindowError
		inc *IncompleteChecklistError
		cf  *ConflictError
		ve  *ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &bw):
		return "blackout"
	case errors.As(err, &inc):
		return "incomplete"
	case errors.As(err, &cf):
		return "conflict"
	case errors.As(err, &ve):
		return "invalid"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage"
	default:
		return "error"
	}
}
