package commands

import (
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/fibusync"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"bitbucket.org/mmdatafocus/ledger_import/utils"
	"github.com/spf13/cobra"
)

func newFetchCommand() *cobra.Command {
	var business string
	var fromRaw string
	var toRaw string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch mutations from the Fibu API into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseDateRange(fromRaw, toRaw)
			if err != nil {
				return err
			}

			client, err := fibusync.NewClient(os.Getenv("FIBU_API_KEY"))
			if err != nil {
				return err
			}

			db := config.GetDB()
			ctx := utils.SetBusinessIdInContext(cmd.Context(), business)
			result, err := fibusync.FetchMutations(ctx, db, config.GetLogger(), client, from, to)
			if result != nil {
				fmt.Printf("fetched %d mutations, rejected %d\n", result.Fetched, len(result.Rejected))
				for _, rejected := range result.Rejected {
					fmt.Printf("  rejected: %v\n", rejected.Err)
				}
			}
			if err != nil {
				if fibusync.IsTransportError(err) {
					return fmt.Errorf("fibu api unreachable: %w", err)
				}
				return err
			}

			cached, err := models.CountMutationsByDateRange(db, business, from, to)
			if err != nil {
				return err
			}
			fmt.Printf("cache now holds %d mutations in %s..%s\n",
				cached, from.Format(dateLayout), to.Format(dateLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "business id (required)")
	_ = cmd.MarkFlagRequired("business")
	cmd.Flags().StringVar(&fromRaw, "from", "", "start date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&toRaw, "to", "", "end date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
