package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/3vilTid/Catalogue-Web-App/internal/intercept"
	"github.com/3vilTid/Catalogue-Web-App/internal/partition"
)

var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "Inspect or clear the response cache partitions",
}

var partitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List partitions and their entry counts",
	Args:  cobra.NoArgs,
	RunE:  runPartitionsList,
}

var partitionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every partition",
	Args:  cobra.NoArgs,
	RunE:  runPartitionsClear,
}

func init() {
	partitionsCmd.AddCommand(partitionsListCmd, partitionsClearCmd)
	rootCmd.AddCommand(partitionsCmd)
}

func openPartitions() (partition.Storage, error) {
	if cfg.Cache.Dir == "" {
		return nil, fmt.Errorf("cache.dir is not set; in-memory partitions do not outlive serve")
	}
	return newPartitions(cfg.Cache, cfg.Store.Codec)
}

func runPartitionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storage, err := openPartitions()
	if err != nil {
		return err
	}

	names, err := storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("listing partitions: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No partitions.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tENTRIES")
	for _, name := range names {
		c, err := storage.Open(ctx, name)
		if err != nil {
			return fmt.Errorf("opening %s: %w", name, err)
		}
		n, err := c.Len(ctx)
		if err != nil {
			return fmt.Errorf("counting %s: %w", name, err)
		}
		version := "-"
		if pn, ok := partition.ParseName(name); ok {
			version = fmt.Sprint(pn.Version)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\n", name, version, n)
	}
	return tw.Flush()
}

func runPartitionsClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storage, err := openPartitions()
	if err != nil {
		return err
	}

	layer, err := intercept.New(nil, storage)
	if err != nil {
		return err
	}
	n, err := layer.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d partitions.\n", n)
	return nil
}
