// Package errkind classifies the errors a relay stage can return so the
// worker runtime knows whether to log-and-isolate, retry, or treat the
// failure as fatal at boot.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is the coarse error category a stage failure falls into.
type Kind int

const (
	// Unexpected is an unclassified error: logged and isolated to the
	// single item that produced it, never fatal.
	Unexpected Kind = iota
	// Config is a misconfiguration discovered at boot; fatal.
	Config
	// Store is a transient Transaction Store failure; retried.
	Store
	// Indexer is a transient Event Source failure; retried.
	Indexer
	// RPC is a transient chain RPC failure; retried.
	RPC
	// BroadcastReverted is a domain outcome (the on-chain call reverted),
	// not a transport failure; handled by moving the message to Failed.
	BroadcastReverted
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Store:
		return "store"
	case Indexer:
		return "indexer"
	case RPC:
		return "rpc"
	case BroadcastReverted:
		return "broadcast_reverted"
	default:
		return "unexpected"
	}
}

// Error wraps an underlying error with its Kind and the stage operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap builds an *Error, or returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) classifies as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether a worker should back off and retry the item
// that produced err rather than treat it as a terminal outcome.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case Store, Indexer, RPC:
		return true
	default:
		return false
	}
}

// Fatal reports whether err should abort the process at boot.
func Fatal(err error) bool {
	return Is(err, Config)
}
