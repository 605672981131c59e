package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/castle/internal/model"
)

// CatalogStore holds checklist, section and chore definitions. Children
// reference their parent by id only.
type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// --- Checklist methods ---

func scanChecklist(s scanner) (*model.Checklist, error) {
	var c model.Checklist
	var cadence string
	if err := s.Scan(&c.ID, &c.Name, &c.Description, &cadence, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Cadence = model.Cadence(cadence)
	return &c, nil
}

const checklistCols = `id, name, description, cadence, created_at`

func (s *CatalogStore) ListChecklists(ctx context.Context) ([]model.Checklist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+checklistCols+` FROM checklists ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer rows.Close()

	var checklists []model.Checklist
	for rows.Next() {
		c, err := scanChecklist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}
		checklists = append(checklists, *c)
	}
	return checklists, rows.Err()
}

func (s *CatalogStore) CountChecklists(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checklists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count checklists: %w", err)
	}
	return n, nil
}

func (s *CatalogStore) GetChecklistByID(ctx context.Context, id int64) (*model.Checklist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+checklistCols+` FROM checklists WHERE id = ?`, id)
	c, err := scanChecklist(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	return c, nil
}

func (s *CatalogStore) GetChecklistByName(ctx context.Context, name string) (*model.Checklist, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+checklistCols+` FROM checklists WHERE name = ?`, name)
	c, err := scanChecklist(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist by name: %w", err)
	}
	return c, nil
}

func (s *CatalogStore) CreateChecklist(ctx context.Context, name, description string, cadence model.Cadence) (*model.Checklist, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO checklists (name, description, cadence) VALUES (?, ?, ?)`,
		name, description, string(cadence),
	)
	if err != nil {
		return nil, fmt.Errorf("insert checklist: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetChecklistByID(ctx, id)
}

// UpdateChecklistDescription changes the only mutable checklist field.
func (s *CatalogStore) UpdateChecklistDescription(ctx context.Context, id int64, description string) (*model.Checklist, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE checklists SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return nil, fmt.Errorf("update checklist: %w", err)
	}
	return s.GetChecklistByID(ctx, id)
}

// DeleteChecklist removes a checklist and, by cascade, its sections, chores,
// completion records and signatures.
func (s *CatalogStore) DeleteChecklist(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM checklists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	return nil
}

// --- Section methods ---

func scanSection(s scanner) (*model.Section, error) {
	var sec model.Section
	if err := s.Scan(&sec.ID, &sec.ChecklistID, &sec.Name, &sec.SortOrder, &sec.CreatedAt); err != nil {
		return nil, err
	}
	return &sec, nil
}

const sectionCols = `id, checklist_id, name, sort_order, created_at`

// ListSections returns sections in display order; equal sort_order values
// fall back to insertion order.
func (s *CatalogStore) ListSections(ctx context.Context, checklistID int64) ([]model.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sectionCols+` FROM sections WHERE checklist_id = ? ORDER BY sort_order ASC, id ASC`,
		checklistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, *sec)
	}
	return sections, rows.Err()
}

func (s *CatalogStore) GetSection(ctx context.Context, id int64) (*model.Section, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sectionCols+` FROM sections WHERE id = ?`, id)
	sec, err := scanSection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get section: %w", err)
	}
	return sec, nil
}

func (s *CatalogStore) CreateSection(ctx context.Context, checklistID int64, name string, sortOrder int) (*model.Section, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO sections (checklist_id, name, sort_order) VALUES (?, ?, ?)`,
		checklistID, name, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert section: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSection(ctx, id)
}

func (s *CatalogStore) UpdateSection(ctx context.Context, id int64, name string, sortOrder int) (*model.Section, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sections SET name = ?, sort_order = ? WHERE id = ?`,
		name, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update section: %w", err)
	}
	return s.GetSection(ctx, id)
}

func (s *CatalogStore) DeleteSection(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}
