package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/trackfinder/internal/telescope/storage/sqlite"
)

func newRunsCommand() *cobra.Command {
	var dbPath string
	c := &cobra.Command{
		Use:   "runs",
		Short: "List recorded tracking runs.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRuns(dbPath, cmd.OutOrStdout())
		},
	}
	c.Flags().StringVar(&dbPath, "db", "", "SQLite database written by `run --db`")
	_ = c.MarkFlagRequired("db")
	return c
}

func listRuns(dbPath string, out io.Writer) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open run database: %w", err)
	}
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs := sqlite.NewRunStore(db)
	candidates := sqlite.NewCandidateStore(db)
	ids, err := runs.ListRuns()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tEVENTS\tCANDIDATES\tSTORED")
	for _, id := range ids {
		run, err := runs.GetRun(id)
		if err != nil {
			return err
		}
		stored, err := candidates.CountByRun(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", run.RunID, run.StartedAt.UTC().Format(time.RFC3339),
			run.Status, run.Counts.Events, run.Counts.FinalCandidates, stored)
	}
	return tw.Flush()
}
