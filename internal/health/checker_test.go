package health

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCheckAll_degradesAfterThreshold(t *testing.T) {
	boom := errors.New("connection refused")
	checker := New(Config{FailThreshold: 3}, zap.NewNop())
	checker.Register("database", ProbeFunc(func(_ context.Context) error { return boom }))

	// Below the threshold the dependency still reports healthy.
	for i := 0; i < 2; i++ {
		checker.CheckAll(context.Background())
	}
	if _, healthy := checker.Snapshot(); !healthy {
		t.Fatal("must stay healthy below the fail threshold")
	}

	checker.CheckAll(context.Background())
	statuses, healthy := checker.Snapshot()
	if healthy {
		t.Fatal("must degrade at the fail threshold")
	}
	if statuses[0].Error != "connection refused" {
		t.Errorf("error: got %q", statuses[0].Error)
	}
}

func TestCheckAll_recovers(t *testing.T) {
	var fail bool
	checker := New(Config{FailThreshold: 2}, zap.NewNop())
	checker.Register("object_store", ProbeFunc(func(_ context.Context) error {
		if fail {
			return errors.New("bucket unreachable")
		}
		return nil
	}))

	fail = true
	for i := 0; i < 2; i++ {
		checker.CheckAll(context.Background())
	}
	if _, healthy := checker.Snapshot(); healthy {
		t.Fatal("expected degraded")
	}

	fail = false
	checker.CheckAll(context.Background())
	statuses, healthy := checker.Snapshot()
	if !healthy {
		t.Fatal("expected recovery after one success")
	}
	if statuses[0].Error != "" {
		t.Errorf("error must clear on recovery, got %q", statuses[0].Error)
	}
}

func TestCheckAll_independentDependencies(t *testing.T) {
	checker := New(Config{FailThreshold: 1}, zap.NewNop())
	checker.Register("database", ProbeFunc(func(_ context.Context) error { return nil }))
	checker.Register("object_store", ProbeFunc(func(_ context.Context) error {
		return errors.New("down")
	}))

	checker.CheckAll(context.Background())
	statuses, healthy := checker.Snapshot()
	if healthy {
		t.Fatal("one degraded dependency must mark the service unhealthy")
	}
	if !statuses[0].Healthy || statuses[1].Healthy {
		t.Errorf("statuses: %+v", statuses)
	}
}

func TestCheckAll_recordsMetrics(t *testing.T) {
	var results []bool
	checker := New(Config{FailThreshold: 1}, zap.NewNop())
	checker.Register("database", ProbeFunc(func(_ context.Context) error { return nil }))
	checker.SetMetricsRecord(func(success bool) { results = append(results, success) })

	checker.CheckAll(context.Background())
	if len(results) != 1 || !results[0] {
		t.Errorf("metrics callback: got %v", results)
	}
}

func TestProbeTimeout_applied(t *testing.T) {
	checker := New(Config{FailThreshold: 1, ProbeTimeout: 10 * time.Millisecond}, zap.NewNop())
	checker.Register("database", ProbeFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	done := make(chan struct{})
	go func() {
		checker.CheckAll(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not respect its timeout")
	}
	if _, healthy := checker.Snapshot(); healthy {
		t.Error("timed-out probe must count as a failure")
	}
}

func TestStart_returnsWhenQuitCloses(t *testing.T) {
	checker := New(Config{CheckInterval: 10 * time.Millisecond}, zap.NewNop())
	checker.Register("database", ProbeFunc(func(_ context.Context) error { return nil }))

	quit := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		checker.Start(quit)
		close(done)
	}()

	close(quit)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after quit was closed")
	}
}
