package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/cli"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "castle",
		Short:   "Shift checklists for the bar and kitchen",
		Version: version,
		Long: `castle tracks opening, closing and weekly checklists for venue staff.

Completion state resets every day (or every Monday for weekly lists) at
06:00 local time. Changes are refused between 06:00 and 08:00 while the
previous shift's lists close out.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to read before the environment")

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.SeedCmd())
	rootCmd.AddCommand(cli.ResetCmd())
	rootCmd.AddCommand(cli.StateCmd())
	rootCmd.AddCommand(cli.BackupCmd())

	// Setup helpers
	rootCmd.AddCommand(cli.VAPIDCmd())
	rootCmd.AddCommand(cli.HashPasswordCmd())
	rootCmd.AddCommand(cli.TelegramCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
