package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisglass/windmobile/internal/holder"
)

func TestNewCollectorDefaults(t *testing.T) {
	c := NewCollector(CollectorConfig{NodeName: "ridge"})
	if c.diskPath != "/" {
		t.Errorf("diskPath = %q, want /", c.diskPath)
	}
	if c.cpuSample != 100*time.Millisecond {
		t.Errorf("cpuSample = %v, want 100ms", c.cpuSample)
	}
}

func TestCollect(t *testing.T) {
	c := NewCollector(CollectorConfig{NodeName: "ridge", CPUSample: 10 * time.Millisecond})

	st, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if st.Version != StatusVersion {
		t.Errorf("Version = %q, want %q", st.Version, StatusVersion)
	}
	if st.Node.Name != "ridge" {
		t.Errorf("Node.Name = %q, want ridge", st.Node.Name)
	}
	if st.System.MemoryTotalGB <= 0 {
		t.Errorf("MemoryTotalGB = %v, want > 0", st.System.MemoryTotalGB)
	}
	if st.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestCollectNameFallsBackToHostname(t *testing.T) {
	c := NewCollector(CollectorConfig{CPUSample: 10 * time.Millisecond})
	st, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if st.Node.Hostname != "" && st.Node.Name != st.Node.Hostname {
		t.Errorf("Node.Name = %q, want hostname %q", st.Node.Name, st.Node.Hostname)
	}
}

func TestCollectCancelled(t *testing.T) {
	c := NewCollector(CollectorConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Collect(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Collect() error = %v, want context.Canceled", err)
	}
}

func TestNodeStatusHolder(t *testing.T) {
	c := NewCollector(CollectorConfig{NodeName: "ridge", CPUSample: 10 * time.Millisecond})
	h := NewHolder(c, 5*time.Second, nil)

	if h.Name() != "nodestatus" {
		t.Errorf("Name() = %q, want nodestatus", h.Name())
	}

	done := make(chan *NodeStatus, 1)
	h.OnResultChanged(func(st *NodeStatus) { done <- st })
	h.Refresh(holder.None{})

	select {
	case st := <-done:
		if st == nil || st.Node.Name != "ridge" {
			t.Errorf("result = %+v, want node ridge", st)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result notification")
	}
}
