package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/castle/internal/model"
)

type StaffStore struct {
	db *sql.DB
}

func NewStaffStore(db *sql.DB) *StaffStore {
	return &StaffStore{db: db}
}

const staffCols = `id, name, active, created_at`

func scanStaff(s scanner) (*model.Staff, error) {
	var m model.Staff
	var active int
	if err := s.Scan(&m.ID, &m.Name, &active, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Active = active != 0
	return &m, nil
}

// Create adds a roster entry, or reactivates an existing one with the same name.
func (s *StaffStore) Create(ctx context.Context, name string) (*model.Staff, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO staff (name) VALUES (?)
		 ON CONFLICT(name) DO UPDATE SET active = 1`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	return s.GetByName(ctx, name)
}

// List returns the roster ordered by name. With activeOnly set, deactivated
// entries are skipped.
func (s *StaffStore) List(ctx context.Context, activeOnly bool) ([]model.Staff, error) {
	query := `SELECT ` + staffCols + ` FROM staff`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	var staff []model.Staff
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		staff = append(staff, *m)
	}
	return staff, rows.Err()
}

func (s *StaffStore) GetByName(ctx context.Context, name string) (*model.Staff, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+staffCols+` FROM staff WHERE name = ?`, name)
	m, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	return m, nil
}

func (s *StaffStore) IsActive(ctx context.Context, name string) (bool, error) {
	m, err := s.GetByName(ctx, name)
	if err != nil {
		return false, err
	}
	return m != nil && m.Active, nil
}

// SetActive toggles a roster entry. Deactivation keeps history intact.
func (s *StaffStore) SetActive(ctx context.Context, name string, active bool) (*model.Staff, error) {
	var v int
	if active {
		v = 1
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE staff SET active = ? WHERE name = ?`, v, name); err != nil {
		return nil, fmt.Errorf("set staff active: %w", err)
	}
	return s.GetByName(ctx, name)
}
