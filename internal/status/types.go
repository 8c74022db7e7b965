// Package status collects node telemetry and serves holder state over HTTP.
//
// Architecture:
//   - Collector gathers CPU, memory, disk and host metrics (gopsutil)
//   - CollectTask adapts the Collector so a holder.Holder can keep the last
//     NodeStatus
//   - Server exposes every registered holder: its cached state, a throttled
//     refresh trigger and a websocket stream of its notifications
package status

import "time"

// NodeStatus represents the status of the node running windmobile.
type NodeStatus struct {
	Version   string        `json:"version"`
	Timestamp time.Time     `json:"timestamp"`
	Node      NodeInfo      `json:"node"`
	System    SystemMetrics `json:"system"`
}

// NodeInfo contains basic node identification.
type NodeInfo struct {
	Name                string `json:"name"`
	Hostname            string `json:"hostname,omitempty"`
	OS                  string `json:"os,omitempty"`
	UptimeSeconds       int64  `json:"uptime_seconds"`
	SystemUptimeSeconds int64  `json:"system_uptime_seconds,omitempty"`
}

// SystemMetrics contains system resource utilization.
type SystemMetrics struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
	DiskPercent   float64 `json:"disk_percent"`
}

// HealthResponse is the response for /health endpoint.
type HealthResponse struct {
	Status  string   `json:"status"` // "ok", "degraded"
	Version string   `json:"version"`
	Holders []string `json:"holders,omitempty"`
	Failing []string `json:"failing,omitempty"`
}

// HealthStatus constants for health checks.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// StatusVersion is the current version of the status payload format.
const StatusVersion = "1.0"

// SourceCollect is the error source reported when collection fails.
const SourceCollect = "collect"
