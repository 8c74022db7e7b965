// cmd/stations.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/stations"
)

var showAllStations bool

var stationsCmd = &cobra.Command{
	Use:     "stations [station-id]",
	Aliases: []string{"ls"},
	Short:   "Lists stations, or shows the last measurement of one station",
	Long: `Fetches the station list and prints your favourite stations (the
"stations" list of the config file), or every station with --all.
With a station id, prints that station's last measurement.`,
	Example: `  # Favourite stations
  windmobile stations

  # Every station
  windmobile stations --all

  # Last measurement of one station
  windmobile stations jdc-1001`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := stations.NewClient(stations.ClientConfig{BaseURL: cfg.APIURL, UserAgent: "windmobile/" + Version})

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.JobTimeout+5*time.Second)
		defer cancel()

		if len(args) == 1 {
			h := stations.NewStationHolder(client, cfg.JobTimeout, logLine)
			st, err := runOnce(ctx, h, args[0])
			if err != nil {
				return err
			}
			printStation(st)
			return nil
		}

		h := stations.NewListHolder(client, cfg.JobTimeout, logLine)
		list, err := runOnce(ctx, h, holder.None{})
		if err != nil {
			return err
		}
		if !showAllStations {
			list = stations.Favorites(list, cfg.Stations)
		}
		printStationList(list)
		return nil
	},
}

func printStationList(list []stations.Station) {
	headerColor.Printf("%d stations\n", len(list))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tNAME\tALTITUDE\tSTATUS")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%dm\t%s\n", s.ID, s.DisplayName(), s.Altitude, statusText(s.Status))
	}
}

func printStation(st *stations.Station) {
	headerColor.Printf("%s (%s)\n", st.Name, st.ID)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "%s\t%dm\n", labelColor.Sprint("Altitude:"), st.Altitude)
	fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint("Status:"), statusText(st.Status))
	if st.LastMessage == nil {
		fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint("Last message:"), warnColor.Sprint("none"))
		return
	}
	m := st.LastMessage
	fmt.Fprintf(w, "%s\t%s (%s ago)\n", labelColor.Sprint("Last message:"),
		m.Timestamp.Local().Format("2006-01-02 15:04"), m.Age(time.Now()).Round(time.Minute))
	fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint("Wind:"), m.Summary())
	fmt.Fprintf(w, "%s\t%.0f%%\n", labelColor.Sprint("Humidity:"), m.Humidity)
}

func statusText(status string) string {
	switch status {
	case stations.StatusGreen:
		return goodColor.Sprint(status)
	case stations.StatusOrange:
		return warnColor.Sprint(status)
	case stations.StatusRed:
		return badColor.Sprint(status)
	}
	return status
}

func init() {
	rootCmd.AddCommand(stationsCmd)
	stationsCmd.Flags().BoolVarP(&showAllStations, "all", "a", false, "Show every station, not only favourites")
}
