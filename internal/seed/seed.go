// Package seed provisions the checklist catalog and staff roster.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/castle/internal/model"
	"github.com/dukerupert/castle/internal/store"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Staff      []string        `yaml:"staff" validate:"dive,required"`
	Checklists []ChecklistSeed `yaml:"checklists" validate:"required,min=1,dive"`
}

type ChecklistSeed struct {
	Name        string        `yaml:"name" validate:"required"`
	Description string        `yaml:"description"`
	Cadence     model.Cadence `yaml:"cadence" validate:"required,oneof=daily weekly"`
	Sections    []SectionSeed `yaml:"sections" validate:"required,min=1,dive"`
}

type SectionSeed struct {
	Name   string   `yaml:"name" validate:"required"`
	Chores []string `yaml:"chores" validate:"required,min=1,dive,required"`
}

// Result counts what Seed created.
type Result struct {
	Checklists int
	Sections   int
	Chores     int
	Staff      int
	Skipped    bool
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Checklists))
	for _, cl := range c.Checklists {
		if seen[cl.Name] {
			return nil, fmt.Errorf("validate catalog: duplicate checklist %q", cl.Name)
		}
		seen[cl.Name] = true
	}
	return &c, nil
}

// Seeder writes a catalog through the stores.
type Seeder struct {
	catalog *store.CatalogStore
	staff   *store.StaffStore
	logger  *slog.Logger
}

func NewSeeder(catalog *store.CatalogStore, staff *store.StaffStore, logger *slog.Logger) *Seeder {
	return &Seeder{catalog: catalog, staff: staff, logger: logger}
}

// Seed creates the catalog when no checklists exist. With force, existing
// checklists are deleted first, which also removes their completion history.
// Staff are added when missing and never removed.
func (s *Seeder) Seed(ctx context.Context, c *Catalog, force bool) (Result, error) {
	var res Result

	n, err := s.catalog.CountChecklists(ctx)
	if err != nil {
		return res, fmt.Errorf("count checklists: %w", err)
	}
	if n > 0 && !force {
		s.logger.Info("catalog already present, skipping seed", "checklists", n)
		res.Skipped = true
	}

	if n > 0 && force {
		existing, err := s.catalog.ListChecklists(ctx)
		if err != nil {
			return res, fmt.Errorf("list checklists: %w", err)
		}
		for _, cl := range existing {
			if err := s.catalog.DeleteChecklist(ctx, cl.ID); err != nil {
				return res, fmt.Errorf("delete checklist %s: %w", cl.Name, err)
			}
		}
		s.logger.Warn("existing catalog removed", "checklists", len(existing))
	}

	if !res.Skipped {
		for _, cs := range c.Checklists {
			if err := s.seedChecklist(ctx, cs, &res); err != nil {
				return res, err
			}
		}
	}

	for _, name := range c.Staff {
		existing, err := s.staff.GetByName(ctx, name)
		if err != nil {
			return res, fmt.Errorf("get staff %s: %w", name, err)
		}
		if existing != nil {
			continue
		}
		if _, err := s.staff.Create(ctx, name); err != nil {
			return res, fmt.Errorf("create staff %s: %w", name, err)
		}
		res.Staff++
	}

	s.logger.Info("seed complete",
		"checklists", res.Checklists,
		"sections", res.Sections,
		"chores", res.Chores,
		"staff", res.Staff,
	)
	return res, nil
}

func (s *Seeder) seedChecklist(ctx context.Context, cs ChecklistSeed, res *Result) error {
	cl, err := s.catalog.CreateChecklist(ctx, cs.Name, cs.Description, cs.Cadence)
	if err != nil {
		return fmt.Errorf("create checklist %s: %w", cs.Name, err)
	}
	res.Checklists++

	for i, ss := range cs.Sections {
		sec, err := s.catalog.CreateSection(ctx, cl.ID, ss.Name, i+1)
		if err != nil {
			return fmt.Errorf("create section %s/%s: %w", cs.Name, ss.Name, err)
		}
		res.Sections++

		for j, desc := range ss.Chores {
			if _, err := s.catalog.CreateChore(ctx, sec.ID, desc, j+1); err != nil {
				return fmt.Errorf("create chore %q: %w", desc, err)
			}
			res.Chores++
		}
	}
	return nil
}
