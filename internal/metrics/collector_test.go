package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSelfSnapshot(t *testing.T) {
	m := SelfSnapshot()
	assert.GreaterOrEqual(t, m.Goroutines, 1)
	assert.Greater(t, m.HeapAllocMB, 0.0)
	assert.False(t, m.Timestamp.IsZero(), "timestamp not set")
	assert.Len(t, m.Fields(), 8)
}

func TestCollectorStartStops(t *testing.T) {
	c := NewCollector(0, zap.NewNop())
	assert.Equal(t, 30*time.Second, c.interval, "interval below one second should default to 30s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.GetMetrics() != nil }, 5*time.Second, 10*time.Millisecond, "no metrics collected")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 12.3, round1(12.345))
}
