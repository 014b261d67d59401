package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose       bool
	recipeDir     string
	variantConfig string
	outputDir     string
	channelPath   string
)

var rootCmd = &cobra.Command{
	Use:          "pkgforge",
	Short:        "Build conda-ecosystem packages from declarative recipes",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&recipeDir, "recipe-dir", ".", "directory containing recipe.yaml")
	rootCmd.PersistentFlags().StringVar(&variantConfig, "variant-config", "", "path to a variant configuration file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "./build", "build working directory")
	rootCmd.PersistentFlags().StringVar(&channelPath, "channel", "./channel", "local channel root to publish into")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(createPatchCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(genSchemaCmd)
}
