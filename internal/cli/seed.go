package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/seed"
	"github.com/dukerupert/castle/internal/store"
)

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	var force bool
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the checklist catalog and staff roster",
		Long: `Load checklists, sections, chores and staff into the database.

By default the built-in catalog is used and nothing happens when checklists
already exist. --force deletes every existing checklist first, together with
its completion history and signatures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(file)
			if err != nil {
				return err
			}

			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if force {
				if err := rt.snapshotBefore(cmd.Context(), "seed"); err != nil {
					return err
				}
			}

			seeder := seed.NewSeeder(store.NewCatalogStore(rt.db), store.NewStaffStore(rt.db), rt.logger.With("component", "seed"))
			res, err := seeder.Seed(cmd.Context(), catalog, force)
			if err != nil {
				return err
			}

			if res.Skipped {
				fmt.Println("Catalog already present; use --force to replace it.")
			} else {
				fmt.Printf("Seeded %d checklists, %d sections, %d chores.\n", res.Checklists, res.Sections, res.Chores)
			}
			fmt.Printf("Added %d staff.\n", res.Staff)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace the existing catalog and its history")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML catalog to load instead of the built-in one")
	return cmd
}

func loadCatalog(path string) (*seed.Catalog, error) {
	if path == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return seed.Parse(data)
}
