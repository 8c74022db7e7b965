package stations

import (
	"context"
	"time"

	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/worker"
)

// ListTask returns a task fetching the station list.
func (c *Client) ListTask() worker.Task[holder.None, []Station] {
	return func(ctx context.Context, _ holder.None) ([]Station, error) {
		list, err := c.List(ctx)
		if err != nil {
			return nil, worker.Fail(SourceStationList, err)
		}
		return list, nil
	}
}

// StationTask returns a task fetching a single station by id.
func (c *Client) StationTask() worker.Task[string, *Station] {
	return func(ctx context.Context, id string) (*Station, error) {
		st, err := c.Get(ctx, id)
		if err != nil {
			return nil, worker.Fail(SourceStationInfo, err)
		}
		return st, nil
	}
}

// NewListHolder creates a holder for the station list.
func NewListHolder(c *Client, timeout time.Duration, logFn func(level, msg string)) *holder.Holder[holder.None, []Station] {
	cfg := worker.JobConfig{Timeout: timeout, LogFn: logFn}
	return holder.New(worker.Factory(SourceStationList, c.ListTask(), cfg),
		holder.WithName(SourceStationList), holder.WithLogFn(logFn))
}

// NewStationHolder creates a holder for the selected station. Refresh takes
// the station id.
func NewStationHolder(c *Client, timeout time.Duration, logFn func(level, msg string)) *holder.Holder[string, *Station] {
	cfg := worker.JobConfig{Timeout: timeout, LogFn: logFn}
	return holder.New(worker.Factory(SourceStationInfo, c.StationTask(), cfg),
		holder.WithName(SourceStationInfo), holder.WithLogFn(logFn))
}
