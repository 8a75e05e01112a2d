// Package healthcheck probes the bot's dependencies on a cron schedule and
// keeps a short history per dependency.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/metrics"
)

const (
	StatusUnknown = "unknown"
	StatusUp      = "up"
	StatusDown    = "down"

	DefaultSchedule = "@every 30s"
	probeTimeout    = 5 * time.Second
	historySize     = 10
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

type CheckResult struct {
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

type DependencyStatus struct {
	Name    string        `json:"name"`
	Status  string        `json:"status"`
	History []CheckResult `json:"history"`
}

// Report is the body served on GET /health.
type Report struct {
	Status       string                       `json:"status"`
	Dependencies map[string]*DependencyStatus `json:"dependencies"`
}

// Checker runs registered probes.
type Checker struct {
	mu       sync.RWMutex
	probes   map[string]Probe
	statuses map[string]*DependencyStatus
	schedule string
	cron     *cron.Cron
	first    sync.WaitGroup
	logger   *slog.Logger
}

// New creates a checker. An empty schedule means DefaultSchedule.
func New(schedule string, logger *slog.Logger) *Checker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		probes:   make(map[string]Probe),
		statuses: make(map[string]*DependencyStatus),
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Register adds a named probe. Call before Start.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
	c.statuses[name] = &DependencyStatus{Name: name, Status: StatusUnknown, History: make([]CheckResult, 0)}
}

// Start runs one round of checks and then schedules the rest.
func (c *Checker) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() { c.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule health checks: %w", err)
	}
	c.first.Add(1)
	go func() {
		defer c.first.Done()
		c.RunOnce(context.Background())
	}()
	c.cron.Start()
	c.logger.Info("Health checks started", "schedule", c.schedule)
	return nil
}

// Stop waits for running rounds, including the first one, to finish.
func (c *Checker) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.first.Wait()
	c.logger.Info("Health checks stopped")
}

// RunOnce probes every dependency in parallel and records the results.
func (c *Checker) RunOnce(ctx context.Context) {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for name, probe := range probes {
		name, probe := name, probe
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			c.record(name, probe(pctx))
		}()
	}
	wg.Wait()
}

func (c *Checker) record(name string, err error) {
	res := CheckResult{Timestamp: time.Now(), Success: err == nil}
	if err != nil {
		res.Error = err.Error()
	}

	c.mu.Lock()
	status := c.statuses[name]
	prev := status.Status
	status.Status = StatusUp
	if err != nil {
		status.Status = StatusDown
	}
	status.History = append(status.History, res)
	if len(status.History) > historySize {
		status.History = status.History[1:]
	}
	c.mu.Unlock()

	up := 0.0
	if err == nil {
		up = 1
	}
	metrics.DependencyUp.WithLabelValues(name).Set(up)

	if prev != status.Status && status.Status == StatusDown {
		c.logger.Warn("Dependency down", "dependency", name, "error", err)
	} else {
		c.logger.Debug("Health check for dependency", "dependency", name, "status", status.Status)
	}
}

// Report snapshots the current state. The overall status is healthy only when
// every dependency is up.
func (c *Checker) Report() Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r := Report{Status: "healthy", Dependencies: make(map[string]*DependencyStatus, len(c.statuses))}
	for name, s := range c.statuses {
		cp := &DependencyStatus{Name: s.Name, Status: s.Status, History: append([]CheckResult(nil), s.History...)}
		r.Dependencies[name] = cp
		if s.Status != StatusUp {
			r.Status = "degraded"
		}
	}
	return r
}

// Names lists registered dependencies in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HTTPProbe expects 200 from GET url.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d expected %d", resp.StatusCode, http.StatusOK)
		}
		return nil
	}
}
