package commands

import (
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"bitbucket.org/mmdatafocus/ledger_import/models"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered. Database and redis connections are established once in the
// persistent pre-run so every subcommand sees the same wiring.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledger-import",
		Short: "Import Fibu mutations into the ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine, the environment may be set directly.
			_ = godotenv.Load()
			if err := config.ConnectDatabase(); err != nil {
				return err
			}
			config.ConnectRedis()
			models.MigrateTable()
			return nil
		},
	}

	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newMappingsCommand())

	return rootCmd
}

const dateLayout = "2006-01-02"

func parseDateRange(fromRaw string, toRaw string) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(dateLayout, toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	// The range is inclusive of the whole end day.
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}
