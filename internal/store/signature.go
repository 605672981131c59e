package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/castle/internal/model"
)

type SignatureStore struct {
	db *sql.DB
}

func NewSignatureStore(db *sql.DB) *SignatureStore {
	return &SignatureStore{db: db}
}

const signatureCols = `id, checklist_id, staff_name, signature, signed_at`

func scanSignature(s scanner) (*model.Signature, error) {
	var sig model.Signature
	var signedAt string
	if err := s.Scan(&sig.ID, &sig.ChecklistID, &sig.StaffName, &sig.Blob, &signedAt); err != nil {
		return nil, err
	}
	ts, err := parseTS(signedAt)
	if err != nil {
		return nil, err
	}
	sig.Timestamp = ts
	return &sig, nil
}

func (s *SignatureStore) Create(ctx context.Context, checklistID int64, staffName, blob string, at time.Time) (*model.Signature, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO signatures (checklist_id, staff_name, signature, signed_at) VALUES (?, ?, ?, ?)`,
		checklistID, staffName, blob, formatTS(at),
	)
	if err != nil {
		return nil, fmt.Errorf("insert signature: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+signatureCols+` FROM signatures WHERE id = ?`, id)
	sig, err := scanSignature(row)
	if err != nil {
		return nil, fmt.Errorf("get signature: %w", err)
	}
	return sig, nil
}

// ListSince returns sign-offs for a checklist at or after since, newest first.
func (s *SignatureStore) ListSince(ctx context.Context, checklistID int64, since time.Time) ([]model.Signature, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+signatureCols+` FROM signatures
		 WHERE checklist_id = ? AND signed_at >= ?
		 ORDER BY signed_at DESC, id DESC`,
		checklistID, formatTS(since),
	)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	defer rows.Close()

	var sigs []model.Signature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		sigs = append(sigs, *sig)
	}
	return sigs, rows.Err()
}

func (s *SignatureStore) CountByChecklist(ctx context.Context, checklistID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signatures WHERE checklist_id = ?`, checklistID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}
