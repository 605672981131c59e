package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dukerupert/castle/internal/checklist"
)

// StateCmd returns the state command
func StateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <checklist>",
		Short: "Show the effective state of a checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.engine(nil).GetChecklistState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderState(os.Stdout, st, rt.clock.Location())
			return nil
		},
	}
}

func renderState(out io.Writer, st *checklist.State, loc *time.Location) {
	done := 0
	for _, c := range st.Chores {
		if c.Completed {
			done++
		}
	}

	fmt.Fprintf(out, "%s (%s) since %s\n", st.Checklist.Name, st.Checklist.Cadence,
		st.EpochStart.In(loc).Format("Mon 2 Jan 15:04"))
	if st.InBlackout {
		fmt.Fprintln(out, color.New(color.FgYellow).Sprint("⚠ resetting: changes are blocked until 08:00"))
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	section := ""
	for _, c := range st.Chores {
		if c.Section != section {
			section = c.Section
			fmt.Fprintf(w, "%s\t\t\t\n", color.New(color.Bold).Sprint(section))
		}

		mark := color.New(color.FgHiBlack).Sprint("○")
		who, at := "", ""
		if c.Completed {
			mark = color.New(color.FgHiGreen).Sprint("✓")
		}
		if c.CompletedBy != nil {
			who = *c.CompletedBy
		}
		if c.CompletedAt != nil {
			at = c.CompletedAt.In(loc).Format("15:04")
		}
		fmt.Fprintf(w, "  %s %s\t%s\t%s\n", mark, c.Description, who, at)
		if c.Comment != nil {
			fmt.Fprintf(w, "      %s\t\t\n", color.New(color.FgCyan).Sprintf("“%s”", *c.Comment))
		}
	}
	w.Flush()

	fmt.Fprintln(out)
	summary := fmt.Sprintf("%d/%d complete", done, len(st.Chores))
	if done == len(st.Chores) && done > 0 {
		fmt.Fprintln(out, color.New(color.FgHiGreen).Sprintf("✓ %s", summary))
	} else {
		fmt.Fprintln(out, summary)
	}
}
