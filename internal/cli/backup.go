package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/backup"
	"github.com/dukerupert/castle/internal/config"
)

// BackupCmd returns the backup command
func BackupCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a database snapshot",
		Long: `Copy the database into CASTLE_BACKUP_DIR. When CASTLE_BACKUP_PASSPHRASE
is set the copy is encrypted. Only the newest CASTLE_BACKUP_KEEP snapshots
are retained.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			snaps := rt.snapshotter()
			if !snaps.Enabled() {
				return fmt.Errorf("CASTLE_BACKUP_DIR is not set")
			}
			snap, err := snaps.Create(cmd.Context(), reason)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s (%d bytes)\n", color.GreenString("✓"), snap.Path, snap.Size)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "manual", "label recorded in the snapshot name")
	cmd.AddCommand(backupListCmd(), backupDecryptCmd())
	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			snaps, err := backup.List(cfg.BackupDir)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tREASON\tSEALED\tBYTES\tPATH")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n",
					s.CreatedAt.In(cfg.Location()).Format("2006-01-02 15:04:05"), s.Reason, s.Sealed, s.Size, s.Path)
			}
			return tw.Flush()
		},
	}
}

func backupDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <snapshot> <output>",
		Short: "Decrypt a sealed snapshot to a SQLite file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.BackupPassphrase == "" {
				return fmt.Errorf("CASTLE_BACKUP_PASSPHRASE is not set")
			}
			if err := backup.DecryptFile(args[0], args[1], cfg.BackupPassphrase); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", args[1])
			return nil
		},
	}
}
