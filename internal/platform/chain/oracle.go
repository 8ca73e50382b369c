// Package chain talks to the external access oracle: an Ethereum-compatible
// node running the MedicalRecordRegistry contract. The oracle is the
// authoritative answer to "does delegate X have access to record hash Y" and
// the anchor store for record content hashes.
package chain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an oracle failure. Callers branch on the kind and must
// never see a raw transport or EVM error across this boundary.
type ErrorKind int

const (
	// KindUnavailable covers network failures, timeouts, and node errors.
	// Must surface as service-unavailable, never as an access denial.
	KindUnavailable ErrorKind = iota
	// KindRejected means the contract explicitly reverted the operation.
	KindRejected
	// KindBadInput means the hash or delegate address is malformed; nothing
	// was sent to the node.
	KindBadInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindBadInput:
		return "bad_input"
	default:
		return "unavailable"
	}
}

// OracleError is the only error type returned by Oracle implementations.
type OracleError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

// AsOracleError extracts an *OracleError from an error chain.
func AsOracleError(err error) (*OracleError, bool) {
	var oe *OracleError
	ok := errors.As(err, &oe)
	return oe, ok
}

// Oracle is the access-oracle boundary the record service depends on.
// Implementations must classify every failure as an *OracleError; panics are
// reserved for programmer error.
type Oracle interface {
	// AnchorHash records a content hash for an owner subject on the chain and
	// returns the transaction hash as the anchor id. Best-effort from the
	// caller's point of view: record creation does not roll back on failure.
	AnchorHash(ctx context.Context, contentHash, ownerSubject, recordType string) (string, error)

	// ListHashesForSubject returns every content hash anchored for a subject,
	// used to reconcile chain state against local records.
	ListHashesForSubject(ctx context.Context, ownerSubject string) ([]string, error)

	// Grant delegates access to contentHash for the delegate address.
	// Ownership is enforced by the caller, not here.
	Grant(ctx context.Context, contentHash, delegate string) (string, error)

	// Revoke removes a previously granted delegation.
	Revoke(ctx context.Context, contentHash, delegate string) (string, error)

	// CheckAccess reports whether the delegate currently holds access to
	// contentHash. Read-only and authoritative for non-owner reads.
	CheckAccess(ctx context.Context, contentHash, delegate string) (bool, error)
}
