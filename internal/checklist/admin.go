package checklist

import (
	"context"
	"strings"

	"github.com/dukerupert/castle/internal/model"
)

// Catalog administration. These operations change definitions only and are
// not subject to the blackout window.

func (e *Engine) CreateChecklist(ctx context.Context, name, description string, cadence model.Cadence) (*model.Checklist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if _, err := model.ParseCadence(string(cadence)); err != nil {
		return nil, &ValidationError{Field: "cadence", Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	existing, err := e.catalog.GetChecklistByName(ctx, name)
	if err != nil {
		return nil, unavailable("get checklist", err)
	}
	if existing != nil {
		return nil, &ConflictError{Kind: "checklist", Key: name}
	}

	cl, err := e.catalog.CreateChecklist(ctx, name, description, cadence)
	if err != nil {
		return nil, unavailable("create checklist", err)
	}
	e.logger.Info("checklist created", "checklist", cl.Name, "cadence", cl.Cadence)
	return cl, nil
}

func (e *Engine) UpdateChecklistDescription(ctx context.Context, name, description string) (*model.Checklist, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, name)
	if err != nil {
		return nil, err
	}
	updated, err := e.catalog.UpdateChecklistDescription(ctx, cl.ID, description)
	if err != nil {
		return nil, unavailable("update checklist", err)
	}
	return updated, nil
}

// DeleteChecklist removes a checklist with its sections, chores, records and
// signatures.
func (e *Engine) DeleteChecklist(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, name)
	if err != nil {
		return err
	}
	if err := e.catalog.DeleteChecklist(ctx, cl.ID); err != nil {
		return unavailable("delete checklist", err)
	}
	e.logger.Warn("checklist deleted", "checklist", cl.Name)
	return nil
}

// Sections returns the sections of a checklist in display order.
func (e *Engine) Sections(ctx context.Context, checklistName string) ([]model.Section, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, checklistName)
	if err != nil {
		return nil, err
	}
	sections, err := e.catalog.ListSections(ctx, cl.ID)
	if err != nil {
		return nil, unavailable("list sections", err)
	}
	return sections, nil
}

func (e *Engine) CreateSection(ctx context.Context, checklistName, name string, order int) (*model.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	cl, err := e.checklistByName(ctx, checklistName)
	if err != nil {
		return nil, err
	}
	sec, err := e.catalog.CreateSection(ctx, cl.ID, name, order)
	if err != nil {
		return nil, unavailable("create section", err)
	}
	return sec, nil
}

func (e *Engine) UpdateSection(ctx context.Context, id int64, name string, order int) (*model.Section, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireSection(ctx, id); err != nil {
		return nil, err
	}
	sec, err := e.catalog.UpdateSection(ctx, id, name, order)
	if err != nil {
		return nil, unavailable("update section", err)
	}
	return sec, nil
}

func (e *Engine) DeleteSection(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireSection(ctx, id); err != nil {
		return err
	}
	if err := e.catalog.DeleteSection(ctx, id); err != nil {
		return unavailable("delete section", err)
	}
	return nil
}

func (e *Engine) CreateChore(ctx context.Context, sectionID int64, description string, order int) (*model.Chore, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &ValidationError{Field: "description", Message: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	if err := e.requireSection(ctx, sectionID); err != nil {
		return nil, err
	}
	c, err := e.catalog.CreateChore(ctx, sectionID, description, order)
	if err != nil {
		return nil, unavailable("create chore", err)
	}
	return c, nil
}

func (e *Engine) UpdateChore(ctx context.Context, id int64, description string, order int) (*model.Chore, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &ValidationError{Field: "description", Message: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	existing, err := e.catalog.GetChore(ctx, id)
	if err != nil {
		return nil, unavailable("get chore", err)
	}
	if existing == nil {
		return nil, &NotFoundError{Kind: "chore", Key: id}
	}
	c, err := e.catalog.UpdateChore(ctx, id, description, order)
	if err != nil {
		return nil, unavailable("update chore", err)
	}
	return c, nil
}

func (e *Engine) DeleteChore(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	existing, err := e.catalog.GetChore(ctx, id)
	if err != nil {
		return unavailable("get chore", err)
	}
	if existing == nil {
		return &NotFoundError{Kind: "chore", Key: id}
	}
	if err := e.catalog.DeleteChore(ctx, id); err != nil {
		return unavailable("delete chore", err)
	}
	return nil
}

// AddStaff adds a roster entry, reactivating it if it was deactivated.
func (e *Engine) AddStaff(ctx context.Context, name string) (*model.Staff, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	m, err := e.staff.Create(ctx, name)
	if err != nil {
		return nil, unavailable("create staff", err)
	}
	return m, nil
}

// DeactivateStaff hides a roster entry. Past records keep the name.
func (e *Engine) DeactivateStaff(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	m, err := e.staff.GetByName(ctx, name)
	if err != nil {
		return unavailable("get staff", err)
	}
	if m == nil {
		return &NotFoundError{Kind: "staff", Key: name}
	}
	if _, err := e.staff.SetActive(ctx, name, false); err != nil {
		return unavailable("deactivate staff", err)
	}
	return nil
}

func (e *Engine) requireSection(ctx context.Context, id int64) error {
	sec, err := e.catalog.GetSection(ctx, id)
	if err != nil {
		return unavailable("get section", err)
	}
	if sec == nil {
		return &NotFoundError{Kind: "section", Key: id}
	}
	return nil
}
