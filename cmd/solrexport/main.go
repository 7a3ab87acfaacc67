package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/solrstream/internal/config"
	"github.com/kailas-cloud/solrstream/internal/version"
)

const envFlag = "env"

var rootCmd = &cobra.Command{
	Use:           "solrexport",
	Short:         "Stream a search collection shard by shard into a sink",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String(envFlag, "", "config environment: local, dev, prod (default: $ENV or local)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(shardsCmd)
}

// envFrom returns --env, falling back to the ENV variable.
func envFrom(cmd *cobra.Command) string {
	if env, _ := cmd.Flags().GetString(envFlag); env != "" {
		return env
	}
	return config.GetEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
