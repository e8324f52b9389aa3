package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	catalogue "github.com/3vilTid/Catalogue-Web-App"
	"github.com/3vilTid/Catalogue-Web-App/internal/rpc"
	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
	"github.com/3vilTid/Catalogue-Web-App/internal/stats/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Load the catalogue data from the backend into the snapshot",
	Long: `Call the backend and save the result as the new snapshot.

When the backend cannot be reached the stored snapshot is reported
instead, exactly as the app would see it offline.

Examples:
  catalogue fetch
  catalogue fetch --tab 1`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var fetchTab int

func init() {
	fetchCmd.Flags().IntVar(&fetchTab, "tab", -1, "fetch the dataset of this tab")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if cfg.RPC.URL == "" {
		return fmt.Errorf("rpc.url is not set")
	}

	log, err := toolLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()
	collector := logger.New(log.Named("stats"))

	client, err := catalogue.New(
		catalogue.WithStore(snapshot.New(storeOpener(cfg.Store, collector),
			snapshot.WithLogger(log.Named("snapshot")),
			snapshot.WithStats(collector),
		)),
		catalogue.WithInvoker(rpc.New(cfg.RPC.URL,
			rpc.WithTimeout(cfg.RPC.Timeout),
			rpc.WithLogger(log.Named("rpc")),
		)),
		catalogue.WithAppDataCall(cfg.RPC.AppDataCall),
		catalogue.WithTabDataCall(cfg.RPC.TabDataCall),
		catalogue.WithStats(collector),
		catalogue.WithLogger(log.Named("catalogue")),
	)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	defer client.Close()

	ctx := cmd.Context()
	start := time.Now()

	var source catalogue.Source
	if fetchTab >= 0 {
		_, source, err = client.LoadTab(ctx, fetchTab)
	} else {
		_, source, err = client.Load(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source:       %s\n", source)
	fmt.Fprintf(out, "Last updated: %s\n", client.Store().LastUpdatedLabel())
	fmt.Fprintf(out, "Took:         %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
