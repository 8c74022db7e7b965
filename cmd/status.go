// cmd/status.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/status"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st"},
	Short:   "Shows the status of the node running windmobile",
	Example: `  # Node status with colors
  windmobile status

  # Without colors (for scripts/logging)
  windmobile status --no-color`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		collector := status.NewCollector(status.CollectorConfig{NodeName: cfg.NodeName})
		h := status.NewHolder(collector, cfg.JobTimeout, logLine)

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.JobTimeout+5*time.Second)
		defer cancel()

		st, err := runOnce(ctx, h, holder.None{})
		if err != nil {
			return err
		}
		printNodeStatus(st)
		return nil
	},
}

func printNodeStatus(st *status.NodeStatus) {
	headerColor.Printf("%s\n", st.Node.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "%s\t%s %s\n", labelColor.Sprint("Host:"), st.Node.Hostname, st.Node.OS)
	fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint("Uptime:"), time.Duration(st.Node.SystemUptimeSeconds)*time.Second)
	fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint("CPU:"), percentText(st.System.CPUPercent))
	fmt.Fprintf(w, "%s\t%s (%.1f / %.1f GB)\n", labelColor.Sprint("Memory:"),
		percentText(st.System.MemoryPercent), st.System.MemoryUsedGB, st.System.MemoryTotalGB)
	fmt.Fprintf(w, "%s\t%s (%.1f / %.1f GB)\n", labelColor.Sprint("Disk:"),
		percentText(st.System.DiskPercent), st.System.DiskUsedGB, st.System.DiskTotalGB)
}

// nodeSummary is the one-line form used by watch.
func nodeSummary(st *status.NodeStatus) string {
	return fmt.Sprintf("cpu %.0f%% mem %.0f%% disk %.0f%%",
		st.System.CPUPercent, st.System.MemoryPercent, st.System.DiskPercent)
}

func percentText(p float64) string {
	s := fmt.Sprintf("%.1f%%", p)
	switch {
	case p >= 90:
		return badColor.Sprint(s)
	case p >= 75:
		return warnColor.Sprint(s)
	}
	return goodColor.Sprint(s)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
