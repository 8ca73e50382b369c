package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meditrust/meditrust/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `id, owner_id, record_type, ciphertext, content_hash, anchor_tx_hash, metadata, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var metadata []byte
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.RecordType, &rec.Ciphertext,
		&rec.ContentHash, &rec.AnchorTxHash, &metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (r *RepoPG) Create(ctx context.Context, rec *Record) error {
	var metadata []byte
	if rec.Metadata != nil {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		metadata = b
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_records (id, owner_id, record_type, ciphertext, content_hash, anchor_tx_hash, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.OwnerID, rec.RecordType, rec.Ciphertext, rec.ContentHash,
		rec.AnchorTxHash, metadata, rec.CreatedAt, rec.UpdatedAt,
	)
	return err
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	q := fmt.Sprintf("SELECT %s FROM medical_records WHERE id = $1", recordCols)
	return scanRecord(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT %s FROM medical_records WHERE owner_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`, recordCols)
	rows, err := r.conn(ctx).Query(ctx, q, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) AttachAnchor(ctx context.Context, id uuid.UUID, anchorID string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_records SET anchor_tx_hash = $2, updated_at = $3 WHERE id = $1`,
		id, anchorID, time.Now().UTC(),
	)
	return err
}
