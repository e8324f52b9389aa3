package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/3vilTid/Catalogue-Web-App/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect or clear the stored data snapshot",
}

var snapshotStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how fresh the snapshot is",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotStatus,
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show [KEY]",
	Short: "Print the snapshot, or one stored key, as JSON",
	Long: `Print the stored snapshot as JSON.

With a KEY argument only that key is printed. With --tab the snapshot of
that tab is printed instead.

Examples:
  catalogue snapshot show
  catalogue snapshot show settings
  catalogue snapshot show --tab 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshotShow,
}

var snapshotClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored key",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotClear,
}

var showTab int

func init() {
	snapshotShowCmd.Flags().IntVar(&showTab, "tab", -1, "print the snapshot of this tab")
	snapshotCmd.AddCommand(snapshotStatusCmd, snapshotShowCmd, snapshotClearCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// openSnapshot opens the configured snapshot store.
func openSnapshot(ctx context.Context) (*snapshot.Store, error) {
	log, err := toolLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	store := snapshot.New(storeOpener(cfg.Store, nil), snapshot.WithLogger(log.Named("snapshot")))
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func runSnapshotStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	hasData, err := store.HasData(ctx)
	if err != nil {
		return err
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:      %s\n", cfg.Store.Backend)
	fmt.Fprintf(out, "Has data:     %t\n", hasData)
	fmt.Fprintf(out, "Keys:         %d\n", len(keys))
	fmt.Fprintf(out, "Last updated: %s\n", store.LastUpdatedLabel())
	if meta, ok, err := store.Metadata(ctx); err == nil && ok {
		fmt.Fprintf(out, "Version:      %d\n", meta.Version)
	}
	return nil
}

func runSnapshotShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var v any
	switch {
	case len(args) == 1:
		raw, ok, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found", args[0])
		}
		v = raw
	case showTab >= 0:
		b, err := store.LoadTabSnapshot(ctx, showTab)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("no snapshot for tab %d", showTab)
		}
		v = b
	default:
		b, err := store.LoadSnapshot(ctx)
		if err != nil {
			return err
		}
		if b == nil {
			fmt.Fprintln(os.Stderr, "No snapshot stored.")
			fmt.Fprintln(os.Stderr, "Run 'catalogue fetch' to load one.")
			return nil
		}
		v = b
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSnapshotClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openSnapshot(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Snapshot cleared.")
	return nil
}
