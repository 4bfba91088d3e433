// Package health runs named dependency probes concurrently and folds their
// results into a single Report. The CLI uses it to verify that the storage
// backend and event broker are reachable before a long build.
package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDisabled Status = "disabled"
)

// Check probes one dependency. A nil error means the dependency is up.
type Check func(ctx context.Context) error

type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Report is the aggregated result of all checks, with components sorted by
// name. Status is down if any component is down.
type Report struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
}

type Checker struct {
	mu       sync.Mutex
	checks   map[string]Check
	disabled map[string]string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewChecker creates an empty Checker whose probes each get at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{
		checks:   make(map[string]Check),
		disabled: make(map[string]string),
		timeout:  timeout,
		logger:   slog.Default().With("component", "health"),
	}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Disable records a component that is configured off, so it still shows up
// in the report.
func (c *Checker) Disable(name, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled[name] = reason
}

// Run executes all registered checks concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.Lock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	report := Report{Status: StatusUp}
	for name, reason := range c.disabled {
		report.Components = append(report.Components, ComponentHealth{Name: name, Status: StatusDisabled, Message: reason})
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.probe(ctx, name, check)
			mu.Lock()
			report.Components = append(report.Components, result)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(report.Components, func(i, j int) bool {
		return report.Components[i].Name < report.Components[j].Name
	})
	for _, comp := range report.Components {
		if comp.Status == StatusDown {
			report.Status = StatusDown
			break
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, name string, check Check) ComponentHealth {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	err := check(ctx)
	result := ComponentHealth{Name: name, Status: StatusUp, Latency: time.Since(start)}
	if err != nil {
		result.Status = StatusDown
		result.Message = err.Error()
		c.logger.Warn("health check failed", "check", name, "error", err)
	}
	return result
}
