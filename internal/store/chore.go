package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/castle/internal/model"
)

func scanChore(s scanner) (*model.Chore, error) {
	var c model.Chore
	if err := s.Scan(&c.ID, &c.SectionID, &c.Description, &c.SortOrder, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

const choreCols = `id, section_id, description, sort_order, created_at`

func (s *CatalogStore) GetChore(ctx context.Context, id int64) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// ListChores returns the chores of one section in display order.
func (s *CatalogStore) ListChores(ctx context.Context, sectionID int64) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+choreCols+` FROM chores WHERE section_id = ? ORDER BY sort_order ASC, id ASC`,
		sectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// PlacedChore is a chore together with the section that owns it.
type PlacedChore struct {
	model.Chore
	Section model.Section
}

// ListChoresByChecklist returns every chore of a checklist ordered by
// section then chore, in a single query.
func (s *CatalogStore) ListChoresByChecklist(ctx context.Context, checklistID int64) ([]PlacedChore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.section_id, c.description, c.sort_order, c.created_at,
		        s.id, s.checklist_id, s.name, s.sort_order, s.created_at
		 FROM chores c
		 JOIN sections s ON s.id = c.section_id
		 WHERE s.checklist_id = ?
		 ORDER BY s.sort_order ASC, s.id ASC, c.sort_order ASC, c.id ASC`,
		checklistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by checklist: %w", err)
	}
	defer rows.Close()

	var placed []PlacedChore
	for rows.Next() {
		var p PlacedChore
		if err := rows.Scan(
			&p.ID, &p.SectionID, &p.Description, &p.Chore.SortOrder, &p.Chore.CreatedAt,
			&p.Section.ID, &p.Section.ChecklistID, &p.Section.Name, &p.Section.SortOrder, &p.Section.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan placed chore: %w", err)
		}
		placed = append(placed, p)
	}
	return placed, rows.Err()
}

// ChoreLocation is a chore resolved up to its checklist.
type ChoreLocation struct {
	Chore     model.Chore
	Section   model.Section
	Checklist model.Checklist
}

// LocateChore resolves chore → section → checklist in one query. It returns
// nil when the chore does not exist.
func (s *CatalogStore) LocateChore(ctx context.Context, choreID int64) (*ChoreLocation, error) {
	var loc ChoreLocation
	var cadence string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.section_id, c.description, c.sort_order, c.created_at,
		        s.id, s.checklist_id, s.name, s.sort_order, s.created_at,
		        k.id, k.name, k.description, k.cadence, k.created_at
		 FROM chores c
		 JOIN sections s ON s.id = c.section_id
		 JOIN checklists k ON k.id = s.checklist_id
		 WHERE c.id = ?`,
		choreID,
	).Scan(
		&loc.Chore.ID, &loc.Chore.SectionID, &loc.Chore.Description, &loc.Chore.SortOrder, &loc.Chore.CreatedAt,
		&loc.Section.ID, &loc.Section.ChecklistID, &loc.Section.Name, &loc.Section.SortOrder, &loc.Section.CreatedAt,
		&loc.Checklist.ID, &loc.Checklist.Name, &loc.Checklist.Description, &cadence, &loc.Checklist.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("locate chore: %w", err)
	}
	loc.Checklist.Cadence = model.Cadence(cadence)
	return &loc, nil
}

func (s *CatalogStore) CreateChore(ctx context.Context, sectionID int64, description string, sortOrder int) (*model.Chore, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (section_id, description, sort_order) VALUES (?, ?, ?)`,
		sectionID, description, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetChore(ctx, id)
}

func (s *CatalogStore) UpdateChore(ctx context.Context, id int64, description string, sortOrder int) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET description = ?, sort_order = ? WHERE id = ?`,
		description, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetChore(ctx, id)
}

func (s *CatalogStore) DeleteChore(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}
