package commands

import (
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var business string
	var limit int

	cmd := &cobra.Command{
		Use:   "status [run-id]",
		Short: "Show recent migration runs, or one run with its results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db := config.GetDB()

			if len(args) == 1 {
				runId, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id %q: %w", args[0], err)
				}
				run, err := models.GetMigrationRun(db, business, runId)
				if err != nil {
					return err
				}
				printRun(run)
				for _, result := range run.Results {
					line := fmt.Sprintf("  mutation %d [%s] %s", result.ExternalMutationId, result.MutationType, result.Outcome)
					if result.JournalId > 0 {
						line += fmt.Sprintf(" journal=%d", result.JournalId)
						if journal, err := models.GetJournal(db, business, result.JournalId); err == nil {
							if journal.ReferenceNumber != "" {
								line += " ref=" + journal.ReferenceNumber
							}
							line += fmt.Sprintf(" lines=%d", len(journal.AccountTransactions))
						}
					}
					if result.Message != "" {
						line += " " + result.Message
					}
					fmt.Println(line)
				}
				return nil
			}

			runs, err := models.ListMigrationRuns(db, business, limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				printRun(run)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "business id (required)")
	_ = cmd.MarkFlagRequired("business")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")

	return cmd
}

func printRun(run *models.MigrationRun) {
	label := ""
	if run.DryRun {
		label = " (dry run)"
	}
	fmt.Printf("run %d %s%s %s..%s fetched=%d imported=%d skipped=%d failed=%d\n",
		run.ID, run.Status, label,
		run.DateFrom.Format(dateLayout), run.DateTo.Format(dateLayout),
		run.MutationsFetched, run.MutationsImported, run.MutationsSkipped, run.MutationsFailed)
	if run.FailureReason != "" {
		fmt.Printf("  failure reason: %s\n", run.FailureReason)
	}
}
