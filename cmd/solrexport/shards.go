package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var shardsCmd = &cobra.Command{
	Use:   "shards [collection]",
	Short: "Print the shards of a collection and the replica each would be streamed from",
	Args:  cobra.MaximumNArgs(1),
	RunE:  listShards,
}

func listShards(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	collection := cfg.Export.Collection
	if len(args) == 1 {
		collection = args[0]
	}

	cloud, err := newCloudClient(cfg.Solr, logger)
	if err != nil {
		return err
	}
	defer cloud.Close()

	shards, err := cloud.Shards(cmd.Context(), collection)
	if err != nil {
		return fmt.Errorf("list shards of %s: %w", collection, err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHARD\tSTATE\tREPLICAS\tENDPOINT")
	for _, sh := range shards {
		endpoint, err := sh.Endpoint()
		if err != nil {
			endpoint = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sh.Name, sh.State, len(sh.Replicas), endpoint)
	}
	return tw.Flush()
}
