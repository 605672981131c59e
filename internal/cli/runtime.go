// Package cli implements the castle subcommands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/backup"
	"github.com/dukerupert/castle/internal/checklist"
	"github.com/dukerupert/castle/internal/clock"
	"github.com/dukerupert/castle/internal/config"
	"github.com/dukerupert/castle/internal/database"
	"github.com/dukerupert/castle/internal/logging"
	"github.com/dukerupert/castle/internal/store"
)

// runtime is what every database-backed command needs.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
	clock  *clock.Zoned
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	clk, err := clock.NewZoned(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, db: db, clock: clk}, nil
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}

// engine builds a transition engine over the runtime's database.
func (rt *runtime) engine(notifier checklist.Notifier) *checklist.Engine {
	return checklist.New(rt.clock, checklist.Stores{
		Catalog:     store.NewCatalogStore(rt.db),
		Staff:       store.NewStaffStore(rt.db),
		Completions: store.NewCompletionStore(rt.db),
		Signatures:  store.NewSignatureStore(rt.db),
	}, notifier, rt.logger.With("component", "checklist"), rt.cfg.StoreTimeout)
}

func (rt *runtime) snapshotter() *backup.Snapshotter {
	return backup.New(rt.db, backup.Config{
		Dir:        rt.cfg.BackupDir,
		Passphrase: rt.cfg.BackupPassphrase,
		Keep:       rt.cfg.BackupKeep,
	}, rt.logger.With("component", "backup"))
}

// snapshotBefore takes a safety copy ahead of a destructive command. It is a
// no-op when no backup directory is configured.
func (rt *runtime) snapshotBefore(ctx context.Context, reason string) error {
	snaps := rt.snapshotter()
	if !snaps.Enabled() {
		return nil
	}
	if _, err := snaps.Create(ctx, reason); err != nil {
		return fmt.Errorf("snapshot before %s: %w", reason, err)
	}
	return nil
}
