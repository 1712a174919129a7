package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	batchParallelKey = "batch.parallel"
	batchPhasesKey   = "batch.phases"
	batchForceKey    = "batch.force"
)

var batchCmd = &cobra.Command{
	Use:   "batch [PAPER...]",
	Short: "Run the pipeline for many papers concurrently",
	Long: `batch runs the selected phases for every PAPER given, or for every
paper with a content file below the artifact root when none are given.
Failures of one paper do not stop the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		phases, err := pipeline.ParsePhases(viper.GetString(batchPhasesKey))
		if err != nil {
			return err
		}

		e, err := newEnv(ctx, "none")
		if err != nil {
			return err
		}
		defer e.close()

		ids := args
		if len(ids) == 0 {
			ids, err = pipeline.DiscoverPapers(ctx, e.store)
			if err != nil {
				return err
			}
		}
		logger.Info("[Batch] Processing papers", "count", len(ids))

		results := e.runner.RunBatch(ctx, ids, pipeline.RunOptions{
			Phases: phases,
			Force:  viper.GetBool(batchForceKey),
		}, viper.GetInt(batchParallelKey))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d papers failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("parallel", 4, "papers processed concurrently")
	batchCmd.Flags().String("phases", "all", `phases to run, "all" or a list like "1,3,5"`)
	batchCmd.Flags().Bool("force", false, "rerun phases whose output already exists")

	bindFlagToViper(batchParallelKey, batchCmd.Flags().Lookup("parallel"))
	bindFlagToViper(batchPhasesKey, batchCmd.Flags().Lookup("phases"))
	bindFlagToViper(batchForceKey, batchCmd.Flags().Lookup("force"))
}
