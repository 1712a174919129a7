package cmd

import (
	"fmt"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	pgsink "github.com/OFFIS-RIT/paperkg/pkg/store/pgx"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := util.GetEnv("DATABASE_URL")
		if url == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
		if err := pgsink.Migrate(url); err != nil {
			return err
		}
		cmd.Println("Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
