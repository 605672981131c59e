package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/notify"
	"github.com/dukerupert/castle/internal/server"
	"github.com/dukerupert/castle/internal/store"
)

// ResetCmd returns the reset command
func ResetCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [checklist]",
		Short: "Purge completion history and signatures",
		Long: `Delete every completion record and signature of a checklist, or of
every checklist with --all. The catalog and roster are kept.

This is a recovery tool and is not subject to the 06:00-08:00 window.
A snapshot is written to CASTLE_BACKUP_DIR first.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("give a checklist name or --all, not both")
			}
			if !all && len(args) != 1 {
				return errors.New("a checklist name is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			notifyLogger := rt.logger.With("component", "notify")
			dispatcher := notify.NewDispatcher(notifyLogger, rt.cfg.NotifyTimeout,
				server.OutboundSinks(rt.cfg, server.PushService(rt.cfg), store.NewPushStore(rt.db), notifyLogger)...)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.NotifyTimeout+time.Second)
				defer cancel()
				dispatcher.Close(ctx)
			}()

			engine := rt.engine(dispatcher)
			ctx := cmd.Context()

			if err := rt.snapshotBefore(ctx, "reset"); err != nil {
				return err
			}

			names := args
			if all {
				lists, err := engine.ListChecklists(ctx)
				if err != nil {
					return err
				}
				names = nil
				for _, cl := range lists {
					names = append(names, cl.Name)
				}
			}

			for _, name := range names {
				res, err := engine.ResetChecklist(ctx, name, "cli")
				if err != nil {
					return err
				}
				fmt.Printf("%s: removed %d records and %d signatures\n", res.Checklist, res.Records, res.Signatures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "reset every checklist")
	return cmd
}
