package health

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Probe checks one dependency. Implementations return an error when the
// dependency is unreachable.
type Probe interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) error

// Ping implements Probe.
func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

type dependency struct {
	name  string
	probe Probe
}

// Status is a point-in-time health snapshot of one dependency.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
	Error     string    `json:"error,omitempty"`
}

// Checker periodically probes the service's dependencies (database and
// object store) and keeps a snapshot for the health endpoint. A dependency
// flips to unhealthy only after FailThreshold consecutive failures, so a
// single blip does not flap the endpoint.
type Checker struct {
	deps       []dependency
	mu         sync.Mutex
	failCounts map[string]int
	statuses   map[string]Status
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a Checker with no registered dependencies.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	return &Checker{
		failCounts: make(map[string]int),
		statuses:   make(map[string]Status),
		cfg:        cfg,
		logger:     logger,
	}
}

// Register adds a named dependency probe. Not safe to call after Start.
func (c *Checker) Register(name string, probe Probe) {
	c.deps = append(c.deps, dependency{name: name, probe: probe})
	c.statuses[name] = Status{Name: name, Healthy: true}
}

// SetMetricsRecord configures the metrics recording callback.
func (c *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	c.onMetrics = fn
}

// Start runs the check loop until quit is signalled.
func (c *Checker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CheckAll(context.Background())
		case <-quit:
			return
		}
	}
}

// CheckAll probes every registered dependency once.
func (c *Checker) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, d := range c.deps {
		wg.Add(1)
		go func(d dependency) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
			err := d.probe.Ping(probeCtx)
			cancel()

			if c.onMetrics != nil {
				c.onMetrics(err == nil)
			}
			c.record(d.name, err)
		}(d)
	}
	wg.Wait()
}

func (c *Checker) record(name string, err error) {
	now := time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.statuses[name]
	st.LastCheck = now

	if err == nil {
		if c.failCounts[name] >= c.cfg.FailThreshold {
			c.logger.Info("health: recovered", zap.String("dependency", name))
		}
		c.failCounts[name] = 0
		st.Healthy = true
		st.Error = ""
		c.statuses[name] = st
		return
	}

	c.failCounts[name]++
	count := c.failCounts[name]
	if count == c.cfg.FailThreshold {
		st.Healthy = false
		st.Error = err.Error()
		c.logger.Warn("health: degraded",
			zap.String("dependency", name),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
	} else if count > c.cfg.FailThreshold {
		st.Error = err.Error()
	}
	c.statuses[name] = st
}

// Snapshot returns the current status of every dependency and whether the
// service as a whole is healthy.
func (c *Checker) Snapshot() (statuses []Status, healthy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	healthy = true
	for _, d := range c.deps {
		st := c.statuses[d.name]
		statuses = append(statuses, st)
		if !st.Healthy {
			healthy = false
		}
	}
	return statuses, healthy
}
