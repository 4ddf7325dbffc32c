package commands

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/fibusync"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"bitbucket.org/mmdatafocus/ledger_import/workflow"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var business string
	var fromRaw string
	var toRaw string
	var dryRun bool
	var fetchFirst bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a migration over the cached mutations",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseDateRange(fromRaw, toRaw)
			if err != nil {
				return err
			}

			ctx := utils.SetBusinessIdInContext(cmd.Context(), business)
			db := config.GetDB()
			logger := config.GetLogger()

			if fetchFirst {
				client, err := fibusync.NewClient(os.Getenv("FIBU_API_KEY"))
				if err != nil {
					return err
				}
				result, err := fibusync.FetchMutations(ctx, db, logger, client, from, to)
				if err != nil {
					return err
				}
				fmt.Printf("fetched %d mutations, rejected %d\n", result.Fetched, len(result.Rejected))
			}

			ledger := &workflow.GormLedgerStore{DB: db, BusinessId: business}
			recorder := &workflow.GormRunRecorder{DB: db}
			runner := &workflow.Runner{
				Source:   &workflow.GormMutationSource{DB: db, BusinessId: business},
				Runs:     &workflow.GormRunStore{DB: db},
				Recorder: recorder,
				Classifier: &workflow.Classifier{
					Resolver: &workflow.Resolver{
						Ledger:     ledger,
						Mappings:   &workflow.GormMappingStore{DB: db, BusinessId: business},
						Recorder:   recorder,
						Logger:     logger,
						BusinessId: business,
					},
					Ledger:  ledger,
					Parties: &workflow.GormPartyStore{DB: db, BusinessId: business},
				},
				Committer: &workflow.Committer{Ledger: ledger, BusinessId: business},
				Logger:    logger,
				Config: workflow.RunConfig{
					BusinessId: business,
					DateFrom:   from,
					DateTo:     to,
					DryRun:     dryRun,
				},
			}

			run, err := runner.Execute(ctx)
			if run != nil {
				fmt.Printf("run %d %s: fetched=%d imported=%d skipped=%d failed=%d\n",
					run.ID, run.Status, run.MutationsFetched,
					run.MutationsImported, run.MutationsSkipped, run.MutationsFailed)
				if run.FailureReason != "" {
					fmt.Printf("failure reason: %s\n", run.FailureReason)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "business id (required)")
	_ = cmd.MarkFlagRequired("business")
	cmd.Flags().StringVar(&fromRaw, "from", "", "start date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&toRaw, "to", "", "end date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without committing journals")
	cmd.Flags().BoolVar(&fetchFirst, "fetch", false, "fetch from the Fibu API before running")

	return cmd
}
