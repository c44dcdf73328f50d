// Package coreerr defines the error taxonomy shared by the LVM/iSCSI
// drivers, the metadata store, and the Core, so the HTTP layer can map
// failures to the right response shape with a single errors.As check.
package coreerr

import "fmt"

// Kind classifies a failure the way the Core boundary expects.
type Kind int

const (
	// KindNotFound means a metadata row or external resource is missing.
	KindNotFound Kind = iota
	// KindConflict means a state-machine transition was refused.
	KindConflict
	// KindExternal means an LVM or tgtadm command failed.
	KindExternal
	// KindInvariant means an impossible mapping was observed; no metadata
	// mutation may follow.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is the Core's typed error. The HTTP layer uses errors.As to recover
// the Kind and pick a status code and envelope shape.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// External builds a KindExternal error, optionally wrapping the underlying
// command failure.
func External(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Invariant builds a KindInvariant error.
func Invariant(format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}
