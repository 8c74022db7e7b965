// cmd/snapshots.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisglass/windmobile/internal/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Lists the results saved by watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.Names()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			warnColor.Println("no snapshots")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "NAME\tSAVED\tSIZE")
		for _, name := range names {
			rec, err := store.Load(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s ago\t%dB\n", name, time.Since(rec.SavedAt).Round(time.Second), len(rec.Payload))
		}
		return nil
	},
}

var snapshotsClearCmd = &cobra.Command{
	Use:   "clear [name...]",
	Short: "Deletes saved results (all of them without arguments)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredSnapshots()
		if err != nil {
			return err
		}
		defer store.Close()

		names := args
		if len(names) == 0 {
			if names, err = store.Names(); err != nil {
				return err
			}
		}
		for _, name := range names {
			if err := store.Delete(name); err != nil {
				return err
			}
			Debug("deleted snapshot %s", name)
		}
		goodColor.Printf("✓ deleted %d snapshots\n", len(names))
		return nil
	},
}

func openConfiguredSnapshots() (*snapshot.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotDB == "" {
		return nil, fmt.Errorf("snapshot_db is not configured")
	}
	return openSnapshots(cfg.SnapshotDB)
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsClearCmd)
}
