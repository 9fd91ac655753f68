package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stanza-build/stanza/pkg/state"
)

func newStatusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent build receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of receipts to show")

	return cmd
}

func runStatus(limit int) error {
	states := state.NewManager(projectRoot, newLogger())

	receipts, err := states.List()
	if err != nil {
		return err
	}

	if len(receipts) == 0 {
		printInfo("No builds recorded yet")
		return nil
	}

	if limit > 0 && len(receipts) > limit {
		receipts = receipts[:limit]
	}

	for _, r := range receipts {
		status := color.GreenString("%-9s", string(r.Status))
		if r.Status == state.BuildFailed {
			status = color.RedString("%-9s", string(r.Status))
		}

		line := fmt.Sprintf("%s  %s %s  %s  (%s)",
			status, r.Project, r.Version,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Println(line)
	}

	return nil
}
