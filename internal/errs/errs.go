// Package errs implements the error taxonomy from the propagation policy
// table: each error carries a Kind that tells the caller whether to retry,
// surface verbatim, or treat it as a caller bug.
package errs

import (
	"errors"
	"fmt"
)

// Kind groups errors by propagation policy.
type Kind string

const (
	KindTransient      Kind = "transient"
	KindPermission     Kind = "permission"
	KindInvariant      Kind = "invariant"
	KindInfrastructure Kind = "infrastructure"
	KindMembership     Kind = "membership"
	KindAuthentication Kind = "authentication"
)

// Error is a taxonomy-tagged error. Code identifies the specific failure
// (e.g. "NotOwner") and is stable across wraps so callers can match on it
// with errors.Is against the exported sentinels below.
type Error struct {
	Kind Kind
	Code string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by Code, so a wrapped/annotated error still satisfies
// errors.Is(err, errs.NotOwner).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func sentinel(kind Kind, code string) *Error { return &Error{Kind: kind, Code: code} }

// Sentinels named after the failure kinds enumerated in spec.md.
var (
	Timeout          = sentinel(KindTransient, "Timeout")
	NotConnected     = sentinel(KindTransient, "NotConnected")
	TransportHiccup  = sentinel(KindTransient, "TransportHiccup")
	NotMember        = sentinel(KindPermission, "NotMember")
	NotOwner         = sentinel(KindPermission, "NotOwner")
	PermanentGrant   = sentinel(KindPermission, "PermanentGrant")
	NotGranted       = sentinel(KindPermission, "NotGranted")
	AlreadySelf      = sentinel(KindPermission, "AlreadySelf")
	InvalidOperation = sentinel(KindInvariant, "InvalidOperation")
	AlreadyGranted   = sentinel(KindInvariant, "AlreadyGranted")
	InvalidMode      = sentinel(KindInvariant, "InvalidMode")
	Schema           = sentinel(KindInvariant, "Schema")
	SyncPayloadInvalid = sentinel(KindInvariant, "SyncPayloadInvalid")
	Storage          = sentinel(KindInfrastructure, "Storage")
	Crypto           = sentinel(KindInfrastructure, "Crypto")
	Serialization    = sentinel(KindInfrastructure, "Serialization")
	Io               = sentinel(KindInfrastructure, "Io")
	Network          = sentinel(KindInfrastructure, "Network")
	RealmFull        = sentinel(KindMembership, "RealmFull")
	RemovedFromRealm = sentinel(KindMembership, "RemovedFromRealm")
	RealmNotFound    = sentinel(KindMembership, "RealmNotFound")
	ArtifactNotFound = sentinel(KindMembership, "ArtifactNotFound")
	StoryAuth        = sentinel(KindAuthentication, "StoryAuth")
	InvalidSignature = sentinel(KindAuthentication, "InvalidSignature")
)

// New annotates sentinel with an operation name and optional cause,
// preserving Kind and Code for errors.Is matching.
func New(op string, s *Error, cause error) *Error {
	return &Error{Kind: s.Kind, Code: s.Code, Op: op, Err: cause}
}

// OfKind reports whether err (or anything it wraps) carries the given Kind.
func OfKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
