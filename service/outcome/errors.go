package outcome

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is matched by every StructuralError.
	ErrMalformedRecord = errors.New("malformed transaction record")

	// ErrTransactionNotFound is returned when the RPC result is null.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// StructuralError reports a raw record that cannot be classified: a required
// array is missing, or an index implied by the record falls outside the array
// it points into.
type StructuralError struct {
	Field  string // e.g. "meta.preBalances"
	Index  int    // offending position, -1 when not applicable
	Reason string
}

func (e *StructuralError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedRecord, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s[%d]: %s", ErrMalformedRecord, e.Field, e.Index, e.Reason)
}

// Is lets errors.Is(err, ErrMalformedRecord) match.
func (e *StructuralError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func structuralf(field string, index int, format string, args ...any) *StructuralError {
	return &StructuralError{Field: field, Index: index, Reason: fmt.Sprintf(format, args...)}
}
