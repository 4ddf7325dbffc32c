package commands

import (
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"github.com/spf13/cobra"
)

func newMappingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and correct ledger code mappings",
	}
	cmd.AddCommand(newMappingsReviewCommand())
	cmd.AddCommand(newMappingsSetCommand())
	return cmd
}

func newMappingsReviewCommand() *cobra.Command {
	var business string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "List placeholder mappings waiting for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := models.ListMappingsNeedingReview(config.GetDB(), business)
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Println("no mappings need review")
				return nil
			}
			for _, mapping := range mappings {
				fmt.Printf("ledger %s -> account %d (%s, %s)\n",
					mapping.ExternalCode, mapping.AccountId, mapping.Name, mapping.MainType)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "business id (required)")
	_ = cmd.MarkFlagRequired("business")

	return cmd
}

func newMappingsSetCommand() *cobra.Command {
	var business string

	cmd := &cobra.Command{
		Use:   "set <ledger-code> <account-id>",
		Short: "Point a ledger code at an account and clear its review flag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountId, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", args[1], err)
			}
			db := config.GetDB()
			account, err := models.GetAccount(db, business, accountId)
			if err != nil {
				return err
			}
			if !account.IsLeaf() {
				return fmt.Errorf("account %d (%s) is a group account", account.ID, account.Name)
			}
			if err := models.UpdateMapping(db, business, args[0], account.ID, account.MainType); err != nil {
				return err
			}
			fmt.Printf("ledger %s -> account %d (%s)\n", args[0], account.ID, account.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&business, "business", "", "business id (required)")
	_ = cmd.MarkFlagRequired("business")

	return cmd
}
