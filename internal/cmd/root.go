// Package cmd implements the paperkg command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/paperkg/internal/app"
	"github.com/OFFIS-RIT/paperkg/internal/util"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configKey = "config"
	debugKey  = "debug"
	baseKey   = "store.base"
	storeKey  = "store.kind"
	bucketKey = "store.bucket"
)

var rootCmd = &cobra.Command{
	Use:   "paperkg",
	Short: "Build knowledge graphs from converted biomedical papers",
	Long: `paperkg turns the content JSON of a converted paper into sections,
sentences, entities, relations and finally a knowledge graph with
overview, visualization and per section views.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		util.LoadEnv()
		app.InitLogger(viper.GetBool(debugKey))
	},
}

// Execute runs the root command until it returns or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "pipeline config file (yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("base", ".", "artifact root directory, or key prefix for s3")
	rootCmd.PersistentFlags().String("store", "fs", "artifact store (fs|s3)")
	rootCmd.PersistentFlags().String("bucket", "", "s3 bucket, defaults to S3_BUCKET")

	bindFlagToViper(configKey, rootCmd.PersistentFlags().Lookup("config"))
	bindFlagToViper(debugKey, rootCmd.PersistentFlags().Lookup("debug"))
	bindFlagToViper(baseKey, rootCmd.PersistentFlags().Lookup("base"))
	bindFlagToViper(storeKey, rootCmd.PersistentFlags().Lookup("store"))
	bindFlagToViper(bucketKey, rootCmd.PersistentFlags().Lookup("bucket"))
}

func bindFlagToViper(key string, flag *pflag.Flag) {
	if flag == nil {
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}
