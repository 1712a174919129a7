package cmd

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/internal/app"
	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	pgsink "github.com/OFFIS-RIT/paperkg/pkg/store/pgx"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	ingestPaperKey = "ingest.paper"
	ingestSinkKey  = "ingest.sink"
	ingestPurgeKey = "ingest.purge"
)

type purger interface {
	Purge(ctx context.Context) error
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the graph of a processed paper into Neo4j or Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		paperID := viper.GetString(ingestPaperKey)
		if paperID == "" {
			return fmt.Errorf("--paper is required")
		}
		kind := viper.GetString(ingestSinkKey)
		if kind != "neo4j" && kind != "postgres" {
			return fmt.Errorf("--sink must be neo4j or postgres, got %q", kind)
		}
		if kind == "postgres" {
			if err := pgsink.Migrate(util.GetEnv("DATABASE_URL")); err != nil {
				return err
			}
		}

		e, err := newEnv(ctx, "none")
		if err != nil {
			return err
		}
		defer e.close()

		sink, closeSink, err := app.NewSink(ctx, kind, e.pool)
		if err != nil {
			return err
		}
		defer closeSink()

		if viper.GetBool(ingestPurgeKey) {
			p, ok := sink.(purger)
			if !ok {
				return fmt.Errorf("--purge is not supported by the %s sink", kind)
			}
			logger.Warn("[Ingest] Purging all graph data", "sink", kind)
			if err := p.Purge(ctx); err != nil {
				return err
			}
		}

		g, err := e.runner.LoadGraph(ctx, paperID)
		if err != nil {
			return fmt.Errorf("failed to load graph of %s: %w", paperID, err)
		}
		if err := sink.SaveGraph(ctx, g); err != nil {
			return err
		}

		cmd.Printf("Ingested %s: %d entities, %d relations into %s\n", paperID, len(g.Entities), len(g.Relations), kind)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("paper", "", "paper id")
	ingestCmd.Flags().String("sink", "neo4j", "target database (neo4j|postgres)")
	ingestCmd.Flags().Bool("purge", false, "delete every stored graph before loading (neo4j only)")

	bindFlagToViper(ingestPaperKey, ingestCmd.Flags().Lookup("paper"))
	bindFlagToViper(ingestSinkKey, ingestCmd.Flags().Lookup("sink"))
	bindFlagToViper(ingestPurgeKey, ingestCmd.Flags().Lookup("purge"))
}
