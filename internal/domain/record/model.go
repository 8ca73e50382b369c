// Package record stores encrypted medical records and implements the
// access-decision protocol that gates who may read them.
package record

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RecordType is the closed set of record categories.
type RecordType string

const (
	TypeDiagnosis     RecordType = "diagnosis"
	TypeLabResult     RecordType = "lab_result"
	TypePrescription  RecordType = "prescription"
	TypeTreatmentPlan RecordType = "treatment_plan"
	TypeHistory       RecordType = "history"
	TypeVitalSigns    RecordType = "vital_signs"
	TypeImaging       RecordType = "imaging"
	TypeVaccination   RecordType = "vaccination"
)

func (t RecordType) Valid() bool {
	switch t {
	case TypeDiagnosis, TypeLabResult, TypePrescription, TypeTreatmentPlan,
		TypeHistory, TypeVitalSigns, TypeImaging, TypeVaccination:
		return true
	}
	return false
}

var (
	ErrNotFound = errors.New("record: not found")
	// ErrOracleUnavailable means the access oracle could not be reached or
	// errored; it is never a statement about the requester's rights.
	ErrOracleUnavailable = errors.New("record: access oracle unavailable")
)

// ForbiddenError means the authenticated principal lacks rights for this
// record or action. Reason feeds the audit trail, not the HTTP response.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return "record: forbidden: " + e.Reason
}

// InvalidInputError reports a malformed or missing request field.
type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string {
	return "record: invalid input: " + e.Msg
}

// Record is one medical record. Ciphertext is opaque outside the cipher
// layer; ContentHash is the plaintext fingerprint anchored with the oracle,
// computed once at creation. AnchorTxHash stays nil until anchoring succeeds.
type Record struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	OwnerID      uuid.UUID              `db:"owner_id" json:"owner_id"`
	RecordType   RecordType             `db:"record_type" json:"record_type"`
	Ciphertext   []byte                 `db:"ciphertext" json:"-"`
	ContentHash  string                 `db:"content_hash" json:"content_hash"`
	AnchorTxHash *string                `db:"anchor_tx_hash" json:"anchor_tx_hash,omitempty"`
	Metadata     map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time              `db:"updated_at" json:"updated_at"`
}

// View is a record with its decrypted content, returned only after the
// access-decision protocol allowed the read.
type View struct {
	*Record
	Content string `json:"content"`
}
