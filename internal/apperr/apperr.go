// Package apperr defines the typed failures surfaced by the core to its
// callers. Every rejected operation carries a kind plus a snake_case code
// usable as an i18n key, and enough detail (offending field or role) for the
// caller to render an actionable message.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an application error. The HTTP layer maps kinds to status
// codes; the core never maps to HTTP itself.
type Kind string

const (
	KindValidation    Kind = "validation"    // missing/malformed required fields
	KindAuthorization Kind = "authorization" // actor lacks permission
	KindState         Kind = "state"         // operation invalid for current status
	KindPrecondition  Kind = "precondition"  // dependent condition unmet
	KindNotFound      Kind = "not_found"     // referenced entity absent
	KindUnknownRole   Kind = "unknown_role"  // unrecognized actor role
	KindStorage       Kind = "storage"       // entity store I/O failure
)

type Error struct {
	Kind    Kind
	Code    string            // snake_case, ex: "validation_failed"
	Details map[string]string // champ ou rôle fautif
	Err     error             // cause (storage)
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Code)
	if len(e.Details) > 0 {
		b.WriteString(fmt.Sprintf(" %v", e.Details))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: code, Details: details}
}

func Authorization(code string, role string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Details: map[string]string{"role": role}}
}

func State(code string, details map[string]string) *Error {
	return &Error{Kind: KindState, Code: code, Details: details}
}

func Precondition(code string, details map[string]string) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Details: details}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Details: map[string]string{"entity": entity}}
}

func UnknownRole(role string) *Error {
	return &Error{Kind: KindUnknownRole, Code: "unknown_role", Details: map[string]string{"role": role}}
}

// Storage wraps an entity store failure unchanged; the core never masks it.
func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Code: "storage_error", Err: err}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
