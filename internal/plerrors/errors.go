// Package plerrors centralizes error construction for placewall.
//
// It re-exports github.com/cockroachdb/errors so every package gets stack
// traces, hint/detail annotations, and safe Sentry-style reporting without
// importing the third-party package directly everywhere.
package plerrors

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	WithHint     = crdb.WithHint
	WithHintf    = crdb.WithHintf
	WithDetail   = crdb.WithDetail
	WithDetailf  = crdb.WithDetailf
	Is           = crdb.Is
	As           = crdb.As
	Unwrap       = crdb.Unwrap
)

// Kind classifies an error for protocol-level handling without leaking
// internal detail to clients (see SPEC_FULL.md §7).
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindQuotaExhausted
	KindInternal
)

// kindedError pairs a public, client-safe message with an internal cause
// that carries the real stack trace and detail. The dispatcher unicasts
// clientMsg verbatim and logs cause with full detail.
type kindedError struct {
	clientMsg string
	kind      Kind
	cause     error
}

func (k *kindedError) Error() string { return k.clientMsg }
func (k *kindedError) Unwrap() error { return k.cause }

// ClientError builds an error meant to reach a WebSocket client unicast: the
// message shown to the client is exactly clientMsg, while cause (optionally
// nil) is preserved for server-side logs via Unwrap/As.
func ClientError(kind Kind, clientMsg string, cause error) error {
	return &kindedError{clientMsg: clientMsg, kind: kind, cause: cause}
}

// KindOf returns the Kind attached via ClientError, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ke *kindedError
	if crdb.As(err, &ke) {
		return ke.kind
	}
	return KindInternal
}

// ClientMessage returns the message safe to unicast to the originating
// client: the kinded message if present, otherwise a generic fallback so
// internal detail never leaks.
func ClientMessage(err error) string {
	var ke *kindedError
	if crdb.As(err, &ke) {
		return ke.clientMsg
	}
	return "internal error"
}
