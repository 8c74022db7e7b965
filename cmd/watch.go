// cmd/watch.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chrisglass/windmobile/internal/config"
	"github.com/chrisglass/windmobile/internal/heartbeat"
	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/redis"
	"github.com/chrisglass/windmobile/internal/snapshot"
	"github.com/chrisglass/windmobile/internal/stations"
	"github.com/chrisglass/windmobile/internal/status"
)

var watchStation string
var watchPort int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keeps stations and node status fresh until interrupted",
	Long: `Refreshes the station list, one station and the node status on the
configured interval and prints every change.

The last results are saved to the snapshot database and loaded back on the
next start. When configured, changes are also published to Redis and served
on the status HTTP port (GET /holders, websocket /holders/{name}/events).`,
	Example: `  # Watch the first favourite station
  windmobile watch

  # Watch a given station and serve the status API on :8089
  windmobile watch --station jdc-1001 --port 8089`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.StatusPort = watchPort
		}
		if watchStation == "" && len(cfg.Stations) > 0 {
			watchStation = cfg.Stations[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cfg, watchStation)
	},
}

// watched is the set of holders kept fresh by watch.
type watched struct {
	list    *holder.Holder[holder.None, []stations.Station]
	station *holder.Holder[string, *stations.Station]
	node    *holder.Holder[holder.None, *status.NodeStatus]
}

func runWatch(ctx context.Context, cfg *config.Config, stationID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := stations.NewClient(stations.ClientConfig{BaseURL: cfg.APIURL, UserAgent: "windmobile/" + Version})
	collector := status.NewCollector(status.CollectorConfig{NodeName: cfg.NodeName})

	w := watched{
		list: stations.NewListHolder(client, cfg.JobTimeout, logLine),
		node: status.NewHolder(collector, cfg.JobTimeout, logLine),
	}
	if stationID != "" {
		w.station = stations.NewStationHolder(client, cfg.JobTimeout, logLine)
	}
	stationParam := func() string { return stationID }
	none := func() holder.None { return holder.None{} }

	holder.Watch(w.list, func(ev holder.Event[[]stations.Station]) {
		printEvent(ev, func(list []stations.Station) string {
			return fmt.Sprintf("%d stations, %d favourites", len(list), len(stations.Favorites(list, cfg.Stations)))
		})
	})
	holder.Watch(w.node, func(ev holder.Event[*status.NodeStatus]) { printEvent(ev, nodeSummary) })
	if w.station != nil {
		holder.Watch(w.station, func(ev holder.Event[*stations.Station]) { printEvent(ev, stationSummary) })
	}

	if cfg.SnapshotDB != "" {
		store, err := openSnapshots(cfg.SnapshotDB)
		if err != nil {
			return err
		}
		defer store.Close()

		restore(store, w.list.Name(), w.list)
		snapshot.Persist(store, w.list.Name(), w.list, logLine)
		restore(store, w.node.Name(), w.node)
		snapshot.Persist(store, w.node.Name(), w.node, logLine)
		if w.station != nil {
			name := w.station.Name() + ":" + stationID
			restore(store, name, w.station)
			snapshot.Persist(store, name, w.station, logLine)
		}
	}

	if cfg.Redis.Enabled() {
		pub, err := redis.NewPublisher(redis.PublisherConfig{
			URL:           cfg.Redis.URL,
			Password:      cfg.Redis.Password,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
			DebugFunc:     Debug,
			LogFn:         logLine,
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.Ping(ctx); err != nil {
			logLine("warning", fmt.Sprintf("redis: %v, publishing disabled", err))
		} else {
			redis.Attach(pub, w.list)
			redis.Attach(pub, w.node)
			if w.station != nil {
				redis.Attach(pub, w.station)
			}
			logLine("success", fmt.Sprintf("publishing to %s", pub.Stream()))
		}
	}

	ticker := heartbeat.NewTicker(heartbeat.TickerConfig{Interval: cfg.RefreshInterval, LogFn: logLine})
	heartbeat.AddHolder(ticker, w.list, none)
	heartbeat.AddHolder(ticker, w.node, none)
	if w.station != nil {
		heartbeat.AddHolder(ticker, w.station, stationParam)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if cfg.StatusPort != 0 {
		srv := status.NewServer(status.ServerConfig{Port: cfg.StatusPort, Version: Version, LogFn: logLine})
		status.Register(srv, w.list, none)
		status.Register(srv, w.node, none)
		if w.station != nil {
			status.Register(srv, w.station, stationParam)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				errCh <- fmt.Errorf("status server: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ticker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	headerColor.Printf("Watching %v every %s (Ctrl+C to stop)\n", ticker.Names(), cfg.RefreshInterval)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	cancel()
	wg.Wait()
	fmt.Println()
	logLine("info", "stopped")
	return runErr
}

func openSnapshots(path string) (*snapshot.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return snapshot.OpenStore(path)
}

func restore[P, R any](store *snapshot.Store, name string, h *holder.Holder[P, R]) {
	ok, err := snapshot.Restore(store, name, h)
	switch {
	case err != nil:
		logLine("warning", fmt.Sprintf("snapshot %s: %v", name, err))
	case ok:
		Debug("restored snapshot %s", name)
	}
}

func stationSummary(st *stations.Station) string {
	if st == nil {
		return "no data"
	}
	if st.LastMessage == nil {
		return st.DisplayName() + ": no measurement"
	}
	return st.DisplayName() + ": " + st.LastMessage.Summary()
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchStation, "station", "s", "", "Station id to watch (default: first favourite)")
	watchCmd.Flags().IntVarP(&watchPort, "port", "p", 0, "Status HTTP port (overrides status_port)")
}
