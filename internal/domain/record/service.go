package record

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meditrust/meditrust/internal/domain/audit"
	"github.com/meditrust/meditrust/internal/domain/identity"
	"github.com/meditrust/meditrust/internal/platform/chain"
	"github.com/meditrust/meditrust/internal/platform/crypto"
)

// Requester is the authenticated principal behind one request, extracted from
// the token by the handler. Wallet is empty when the account has no delegate
// principal configured.
type Requester struct {
	ID       uuid.UUID
	Role     string
	Wallet   string
	SourceIP string
}

type Service struct {
	repo          Repository
	oracle        chain.Oracle
	audits        audit.Recorder
	key           []byte
	oracleTimeout time.Duration
	log           zerolog.Logger
}

func NewService(repo Repository, oracle chain.Oracle, audits audit.Recorder, key []byte, oracleTimeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:          repo,
		oracle:        oracle,
		audits:        audits,
		key:           key,
		oracleTimeout: oracleTimeout,
		log:           log.With().Str("component", "record").Logger(),
	}
}

func (s *Service) audit(ctx context.Context, req Requester, rec *Record, action string, details map[string]interface{}) {
	e := audit.Entry{
		ActorID:    req.ID.String(),
		ActionType: action,
		SourceIP:   req.SourceIP,
		Details:    details,
	}
	if rec != nil {
		e.OwnerID = rec.OwnerID.String()
		id := rec.ID
		e.RecordID = &id
	} else {
		e.OwnerID = req.ID.String()
	}
	s.audits.Record(ctx, e)
}

// Read runs the access-decision protocol for one record read. The owner path
// never touches the oracle; the delegate path makes exactly one oracle call
// and one decrypt per invocation. Every terminal branch after the record is
// resolved writes exactly one audit entry before returning. A missing record
// is not audited: there is no owner to attribute the entry to.
func (s *Service) Read(ctx context.Context, req Requester, recordID uuid.UUID) (*View, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if rec.OwnerID != req.ID {
		if req.Role != identity.RoleDoctor {
			s.audit(ctx, req, rec, audit.ActionViewRecordDeniedRole, nil)
			return nil, &ForbiddenError{Reason: "role not authorized for delegated access"}
		}
		if req.Wallet == "" {
			s.audit(ctx, req, rec, audit.ActionViewRecordDeniedNoWallet, nil)
			return nil, &ForbiddenError{Reason: "no delegate address configured"}
		}
		if rec.ContentHash == "" {
			s.audit(ctx, req, rec, audit.ActionViewRecordDeniedNoHash, nil)
			return nil, &ForbiddenError{Reason: "record has no content hash"}
		}

		octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
		granted, err := s.oracle.CheckAccess(octx, rec.ContentHash, req.Wallet)
		cancel()
		if err != nil {
			s.log.Error().Err(err).Str("record_id", rec.ID.String()).Msg("oracle check failed")
			s.audit(ctx, req, rec, audit.ActionViewRecordOracleError, oracleDetails(err))
			return nil, ErrOracleUnavailable
		}
		if !granted {
			s.audit(ctx, req, rec, audit.ActionViewRecordDeniedOracle, map[string]interface{}{
				"delegate": req.Wallet,
			})
			return nil, &ForbiddenError{Reason: "access not granted"}
		}
	}

	plaintext, err := crypto.Decrypt(rec.Ciphertext, s.key)
	if err != nil {
		s.log.Error().Err(err).Str("record_id", rec.ID.String()).Msg("record decryption failed")
		s.audit(ctx, req, rec, audit.ActionViewRecordDecryptFailure, nil)
		return nil, err
	}

	s.audit(ctx, req, rec, audit.ActionViewRecordSuccess, nil)
	return &View{Record: rec, Content: plaintext}, nil
}

type CreateInput struct {
	RecordType RecordType             `json:"record_type"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Create hashes and encrypts the content, persists the record, then anchors
// the hash with the oracle. Local persistence is authoritative: an anchor
// failure leaves AnchorTxHash nil and the create still succeeds.
func (s *Service) Create(ctx context.Context, req Requester, in CreateInput) (*Record, error) {
	if req.Wallet == "" {
		return nil, &InvalidInputError{Msg: "a wallet address is required to create records"}
	}
	if !in.RecordType.Valid() {
		return nil, &InvalidInputError{Msg: "unsupported record type"}
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, &InvalidInputError{Msg: "content must not be empty"}
	}

	contentHash := crypto.HashContent(in.Content)
	ciphertext, err := crypto.Encrypt(in.Content, s.key)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:          uuid.New(),
		OwnerID:     req.ID,
		RecordType:  in.RecordType,
		Ciphertext:  ciphertext,
		ContentHash: contentHash,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	anchored := false
	octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	anchorID, err := s.oracle.AnchorHash(octx, contentHash, req.Wallet, string(in.RecordType))
	cancel()
	if err != nil {
		s.log.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("anchor failed, record kept without anchor")
	} else {
		if err := s.repo.AttachAnchor(ctx, rec.ID, anchorID); err != nil {
			s.log.Error().Err(err).Str("record_id", rec.ID.String()).Msg("attach anchor failed")
		} else {
			rec.AnchorTxHash = &anchorID
			anchored = true
		}
	}

	s.audit(ctx, req, rec, audit.ActionCreateRecord, map[string]interface{}{
		"record_type": string(in.RecordType),
		"anchored":    anchored,
	})
	return rec, nil
}

// Grant delegates read access on a record to a delegate address. Owner-only;
// the oracle is never invoked for a non-owner.
func (s *Service) Grant(ctx context.Context, req Requester, recordID uuid.UUID, delegate string) (string, error) {
	return s.delegate(ctx, req, recordID, delegate, grantOp)
}

// Revoke removes a previously granted delegation. Owner-only.
func (s *Service) Revoke(ctx context.Context, req Requester, recordID uuid.UUID, delegate string) (string, error) {
	return s.delegate(ctx, req, recordID, delegate, revokeOp)
}

type delegateOp struct {
	call    func(s *Service, ctx context.Context, contentHash, delegate string) (string, error)
	success string
	denied  string
	failed  string
}

var grantOp = delegateOp{
	call: func(s *Service, ctx context.Context, contentHash, delegate string) (string, error) {
		return s.oracle.Grant(ctx, contentHash, delegate)
	},
	success: audit.ActionGrantAccessSuccess,
	denied:  audit.ActionGrantAccessDenied,
	failed:  audit.ActionGrantAccessFailed,
}

var revokeOp = delegateOp{
	call: func(s *Service, ctx context.Context, contentHash, delegate string) (string, error) {
		return s.oracle.Revoke(ctx, contentHash, delegate)
	},
	success: audit.ActionRevokeAccessSuccess,
	denied:  audit.ActionRevokeAccessDenied,
	failed:  audit.ActionRevokeAccessFailed,
}

func (s *Service) delegate(ctx context.Context, req Requester, recordID uuid.UUID, delegate string, op delegateOp) (string, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return "", err
	}

	if rec.OwnerID != req.ID {
		s.auditDelegate(ctx, req, rec, op.denied, delegate, map[string]interface{}{
			"reason": "not record owner",
		})
		return "", &ForbiddenError{Reason: "only the record owner may manage access"}
	}
	if rec.ContentHash == "" {
		s.auditDelegate(ctx, req, rec, op.denied, delegate, map[string]interface{}{
			"reason": "record has no content hash",
		})
		return "", &ForbiddenError{Reason: "record has no content hash"}
	}

	octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	anchorID, err := op.call(s, octx, rec.ContentHash, delegate)
	cancel()
	if err != nil {
		s.auditDelegate(ctx, req, rec, op.failed, delegate, oracleDetails(err))
		if oe, ok := chain.AsOracleError(err); ok {
			switch oe.Kind {
			case chain.KindBadInput:
				return "", &InvalidInputError{Msg: "malformed delegate address"}
			case chain.KindRejected:
				return "", &InvalidInputError{Msg: "the oracle rejected the operation"}
			}
		}
		s.log.Error().Err(err).Str("record_id", rec.ID.String()).Msg("oracle delegation call failed")
		return "", ErrOracleUnavailable
	}

	s.auditDelegate(ctx, req, rec, op.success, delegate, map[string]interface{}{
		"anchor_id": anchorID,
	})
	return anchorID, nil
}

func (s *Service) auditDelegate(ctx context.Context, req Requester, rec *Record, action, delegate string, details map[string]interface{}) {
	id := rec.ID
	s.audits.Record(ctx, audit.Entry{
		ActorID:       req.ID.String(),
		OwnerID:       rec.OwnerID.String(),
		RecordID:      &id,
		ActionType:    action,
		TargetAddress: &delegate,
		SourceIP:      req.SourceIP,
		Details:       details,
	})
}

// ListMine returns the requester's own records in creation order.
func (s *Service) ListMine(ctx context.Context, req Requester, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByOwner(ctx, req.ID, limit, offset)
}

// AnchorStatus pairs one local record with whether its hash is anchored.
type AnchorStatus struct {
	RecordID    uuid.UUID `json:"record_id"`
	ContentHash string    `json:"content_hash"`
	Anchored    bool      `json:"anchored"`
}

// ReconcileResult compares local records against the chain's per-subject
// anchor list. UnknownHashes are anchored on chain with no local record.
type ReconcileResult struct {
	Records       []AnchorStatus `json:"records"`
	UnknownHashes []string       `json:"unknown_hashes"`
}

// reconcilePageSize is the repo page size ReconcileAnchored walks with; the
// walk covers every record the owner has, however many pages that takes.
const reconcilePageSize = 200

// ReconcileAnchored lists the requester's records annotated with their
// on-chain anchor state.
func (s *Service) ReconcileAnchored(ctx context.Context, req Requester) (*ReconcileResult, error) {
	if req.Wallet == "" {
		return nil, &InvalidInputError{Msg: "a wallet address is required"}
	}

	octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	hashes, err := s.oracle.ListHashesForSubject(octx, req.Wallet)
	cancel()
	if err != nil {
		s.log.Error().Err(err).Msg("oracle hash listing failed")
		return nil, ErrOracleUnavailable
	}

	anchored := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		anchored[h] = true
	}

	var locals []*Record
	for offset := 0; ; offset += reconcilePageSize {
		page, _, err := s.repo.ListByOwner(ctx, req.ID, reconcilePageSize, offset)
		if err != nil {
			return nil, err
		}
		locals = append(locals, page...)
		if len(page) < reconcilePageSize {
			break
		}
	}

	result := &ReconcileResult{Records: make([]AnchorStatus, 0, len(locals))}
	seen := make(map[string]bool, len(locals))
	for _, rec := range locals {
		result.Records = append(result.Records, AnchorStatus{
			RecordID:    rec.ID,
			ContentHash: rec.ContentHash,
			Anchored:    anchored[rec.ContentHash],
		})
		seen[rec.ContentHash] = true
	}
	for _, h := range hashes {
		if !seen[h] {
			result.UnknownHashes = append(result.UnknownHashes, h)
		}
	}
	return result, nil
}

func oracleDetails(err error) map[string]interface{} {
	details := map[string]interface{}{}
	if oe, ok := chain.AsOracleError(err); ok {
		details["oracle_error_kind"] = oe.Kind.String()
		details["oracle_op"] = oe.Op
	} else if !errors.Is(err, context.Canceled) {
		details["error"] = "unclassified oracle failure"
	}
	return details
}
