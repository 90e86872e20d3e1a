// Package main implements hookctl, a CLI for loading lifecycle hook plugins
// and running their stages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file
	configPath string
	// pluginsDir overrides plugins.dir from config when set
	pluginsDir string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hookctl",
	Short: "Load lifecycle hook plugins and run their stages",
	Long: `hookctl loads plugin files from a directory, binds their stage functions
(pre_init, post_init, pre_runtime, post_runtime) and executes stages.

Configuration is read from an optional YAML file and PROGRAMHOOKS_*
environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&pluginsDir, "plugins", "", "plugin directory (overrides plugins.dir)")
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lifecycleCmd)
	rootCmd.AddCommand(watchCmd)
}
