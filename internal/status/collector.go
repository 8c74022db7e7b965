package status

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/worker"
)

const gb = 1024 * 1024 * 1024

// Collector gathers status metrics from the system.
type Collector struct {
	nodeName  string
	diskPath  string
	cpuSample time.Duration
	startTime time.Time
}

// CollectorConfig holds configuration for the status collector.
type CollectorConfig struct {
	NodeName string

	// DiskPath is the mount point reported in disk metrics (default: "/")
	DiskPath string

	// CPUSample is the CPU sampling window (default: 100ms)
	CPUSample time.Duration
}

// NewCollector creates a new status collector.
func NewCollector(cfg CollectorConfig) *Collector {
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	if cfg.CPUSample == 0 {
		cfg.CPUSample = 100 * time.Millisecond
	}
	return &Collector{
		nodeName:  cfg.NodeName,
		diskPath:  cfg.DiskPath,
		cpuSample: cfg.CPUSample,
		startTime: time.Now(),
	}
}

// Collect gathers all status metrics and returns a NodeStatus.
func (c *Collector) Collect(ctx context.Context) (*NodeStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	status := &NodeStatus{
		Version:   StatusVersion,
		Timestamp: time.Now().UTC(),
		Node:      c.collectNodeInfo(ctx),
	}

	metrics, err := c.collectSystemMetrics(ctx)
	if err != nil {
		return nil, err
	}
	status.System = metrics
	return status, nil
}

// collectNodeInfo gathers basic node identification.
func (c *Collector) collectNodeInfo(ctx context.Context) NodeInfo {
	info := NodeInfo{
		Name:          c.nodeName,
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}
	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.SystemUptimeSeconds = int64(h.Uptime)
		if info.Name == "" {
			info.Name = h.Hostname
		}
	}
	return info
}

// collectSystemMetrics gathers CPU, memory, and disk utilization. Memory is
// required; CPU and disk are best effort.
func (c *Collector) collectSystemMetrics(ctx context.Context) (SystemMetrics, error) {
	var metrics SystemMetrics

	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return metrics, fmt.Errorf("failed to read memory: %w", err)
	}
	metrics.MemoryUsedGB = float64(v.Used) / gb
	metrics.MemoryTotalGB = float64(v.Total) / gb
	metrics.MemoryPercent = v.UsedPercent

	if percentages, err := cpu.PercentWithContext(ctx, c.cpuSample, false); err == nil && len(percentages) > 0 {
		metrics.CPUPercent = percentages[0]
	}

	if d, err := disk.UsageWithContext(ctx, c.diskPath); err == nil {
		metrics.DiskUsedGB = float64(d.Used) / gb
		metrics.DiskTotalGB = float64(d.Total) / gb
		metrics.DiskPercent = d.UsedPercent
	}

	return metrics, nil
}

// CollectTask adapts the collector into a worker task.
func (c *Collector) CollectTask() worker.Task[holder.None, *NodeStatus] {
	return func(ctx context.Context, _ holder.None) (*NodeStatus, error) {
		st, err := c.Collect(ctx)
		if err != nil {
			return nil, worker.Fail(SourceCollect, err)
		}
		return st, nil
	}
}

// NewHolder creates a holder keeping the last collected NodeStatus.
func NewHolder(c *Collector, timeout time.Duration, logFn func(level, msg string)) *holder.Holder[holder.None, *NodeStatus] {
	cfg := worker.JobConfig{Timeout: timeout, LogFn: logFn}
	return holder.New(worker.Factory("nodestatus", c.CollectTask(), cfg),
		holder.WithName("nodestatus"), holder.WithLogFn(logFn))
}
