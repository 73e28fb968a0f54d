// Package nerrors defines the bounded error-kind vocabulary shared by every
// core component, mirroring the small set of sentinel fs.Error* values
// rclone's backends translate transport failures into.
package nerrors

import "fmt"

// Kind classifies an error for callers that need to branch on failure mode
// rather than match error strings.
type Kind string

// The bounded error-kind set from the specification.
const (
	EAuth            Kind = "EAuth"
	EUnreachable     Kind = "EUnreachable"
	ENotFound        Kind = "ENotFound"
	ETimeout         Kind = "ETimeout"
	ETransient       Kind = "ETransient"
	EScanBusy        Kind = "EScanBusy"
	ENoSources       Kind = "ENoSources"
	EDuplicateSource Kind = "EDuplicateSource"
	EKeyLost         Kind = "EKeyLost"
	EInvalidConfig   Kind = "EInvalidConfig"
)

// Error is the concrete error type every core package returns for
// classifiable failures.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, nerrors.New(kind, "")) to match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error of the given kind around a cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Sentinel values for errors.Is comparisons that don't need a message.
var (
	ErrAuth            = New(EAuth, "")
	ErrUnreachable     = New(EUnreachable, "")
	ErrNotFound        = New(ENotFound, "")
	ErrTimeout         = New(ETimeout, "")
	ErrTransient       = New(ETransient, "")
	ErrScanBusy        = New(EScanBusy, "")
	ErrNoSources       = New(ENoSources, "")
	ErrDuplicateSource = New(EDuplicateSource, "")
	ErrKeyLost         = New(EKeyLost, "")
	ErrInvalidConfig   = New(EInvalidConfig, "")
)

// KindOf extracts the Kind of err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
