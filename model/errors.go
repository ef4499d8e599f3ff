package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can map it without inspecting messages.
type Kind uint8

const (
	// KindUnknown is any error that carries no kind.
	KindUnknown Kind = iota
	// KindNotFound means the referenced image, annotation or category does not exist.
	KindNotFound
	// KindInUse means a category is still referenced by at least one annotation.
	KindInUse
	// KindPrecondition means the document was accessed before it was loaded.
	KindPrecondition
	// KindTransient means a remote call failed after exhausting its retry budget.
	KindTransient
	// KindPermanentIO means a local disk operation failed. It is not retried.
	KindPermanentIO
	// KindParse means a document or sidecar could not be decoded.
	KindParse
	// KindInvalid means the caller passed a malformed locator or argument.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInUse:
		return "in use"
	case KindPrecondition:
		return "precondition"
	case KindTransient:
		return "transient"
	case KindPermanentIO:
		return "permanent io"
	case KindParse:
		return "parse"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a kinded failure with an optional entity reference and cause.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	ID     int64
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Entity != "" {
		if e.ID != 0 {
			msg = fmt.Sprintf("%s %d: %s", e.Entity, e.ID, msg)
		} else {
			msg = fmt.Sprintf("%s: %s", e.Entity, msg)
		}
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is. A sentinel that carries a Msg also requires the same Msg.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Op != "" || t.Entity != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	// ErrNotFound matches every KindNotFound error.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrInUse matches every KindInUse error.
	ErrInUse = &Error{Kind: KindInUse}
	// ErrNotLoaded is returned when the document is used before Load.
	ErrNotLoaded = &Error{Kind: KindPrecondition, Msg: "dataset not loaded"}
	// ErrTransient matches every KindTransient error.
	ErrTransient = &Error{Kind: KindTransient}
	// ErrPermanentIO matches every KindPermanentIO error.
	ErrPermanentIO = &Error{Kind: KindPermanentIO}
	// ErrParse matches every KindParse error.
	ErrParse = &Error{Kind: KindParse}
	// ErrInvalid matches every KindInvalid error.
	ErrInvalid = &Error{Kind: KindInvalid}
)

// NotFound builds a KindNotFound error for an entity id.
func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// InUse builds a KindInUse error for an entity id.
func InUse(entity string, id int64, msg string) error {
	return &Error{Kind: KindInUse, Entity: entity, ID: id, Msg: msg}
}

// Wrap attaches a kind and operation to err. It returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
