// Package audit records every access-control decision and mutation as an
// immutable row, written synchronously before the response leaves the server.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action types, one per terminal branch of the access-decision protocol and
// per auth outcome. The audit trail is only useful if every branch lands on
// exactly one of these.
const (
	ActionViewRecordSuccess        = "VIEW_RECORD_SUCCESS"
	ActionViewRecordDeniedRole     = "VIEW_RECORD_DENIED_ROLE"
	ActionViewRecordDeniedNoWallet = "VIEW_RECORD_DENIED_NO_WALLET"
	ActionViewRecordDeniedNoHash   = "VIEW_RECORD_DENIED_NO_HASH"
	ActionViewRecordDeniedOracle   = "VIEW_RECORD_DENIED_ORACLE"
	ActionViewRecordOracleError    = "VIEW_RECORD_ORACLE_ERROR"
	ActionViewRecordDecryptFailure = "VIEW_RECORD_DECRYPT_FAILURE"
	ActionCreateRecord             = "CREATE_RECORD"
	ActionGrantAccessSuccess       = "GRANT_ACCESS_SUCCESS"
	ActionGrantAccessDenied        = "GRANT_ACCESS_DENIED"
	ActionGrantAccessFailed        = "GRANT_ACCESS_FAILED"
	ActionRevokeAccessSuccess      = "REVOKE_ACCESS_SUCCESS"
	ActionRevokeAccessDenied       = "REVOKE_ACCESS_DENIED"
	ActionRevokeAccessFailed       = "REVOKE_ACCESS_FAILED"
	ActionLoginSuccess             = "LOGIN_SUCCESS"
	ActionLoginFailure             = "LOGIN_FAILURE"
)

// Entry is one immutable audit row. Actor and owner ids are opaque principal
// identifiers: user UUIDs on the record paths, the attempted login name on
// auth failures where no user was resolved.
type Entry struct {
	ID            uuid.UUID              `db:"id" json:"id"`
	ActorID       string                 `db:"actor_id" json:"actor_id"`
	OwnerID       string                 `db:"owner_id" json:"owner_id"`
	RecordID      *uuid.UUID             `db:"record_id" json:"record_id,omitempty"`
	ActionType    string                 `db:"action_type" json:"action_type"`
	TargetAddress *string                `db:"target_address" json:"target_address,omitempty"`
	SourceIP      string                 `db:"source_ip" json:"source_ip"`
	Details       map[string]interface{} `db:"details" json:"details,omitempty"`
	Timestamp     time.Time              `db:"created_at" json:"timestamp"`
}
