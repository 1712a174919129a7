package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/paperkg/pkg/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	runPaperKey  = "run.paper"
	runPhasesKey = "run.phases"
	runForceKey  = "run.force"
	runSinkKey   = "run.sink"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline phases for one paper",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		paperID := viper.GetString(runPaperKey)
		if paperID == "" {
			return fmt.Errorf("--paper is required")
		}
		phases, err := pipeline.ParsePhases(viper.GetString(runPhasesKey))
		if err != nil {
			return err
		}

		e, err := newEnv(ctx, viper.GetString(runSinkKey))
		if err != nil {
			return err
		}
		defer e.close()

		err = e.runner.Run(ctx, paperID, pipeline.RunOptions{
			Phases: phases,
			Force:  viper.GetBool(runForceKey),
		})
		if err != nil {
			return err
		}

		report, err := pipeline.CollectReport(ctx, e.store, paperID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("paper", "", "paper id")
	runCmd.Flags().String("phases", "all", `phases to run, "all" or a list like "1,3,5"`)
	runCmd.Flags().Bool("force", false, "rerun phases whose output already exists")
	runCmd.Flags().String("sink", "none", "load the graph into a sink after phase 5 (none|neo4j|postgres)")

	bindFlagToViper(runPaperKey, runCmd.Flags().Lookup("paper"))
	bindFlagToViper(runPhasesKey, runCmd.Flags().Lookup("phases"))
	bindFlagToViper(runForceKey, runCmd.Flags().Lookup("force"))
	bindFlagToViper(runSinkKey, runCmd.Flags().Lookup("sink"))
}
