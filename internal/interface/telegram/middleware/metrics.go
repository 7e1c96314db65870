package middleware

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// Per-command latency and error accounting. One rector and a handful of
// staff do not need a metrics backend, but "which command is slow and
// how often does it fail" must be answerable from /stats.
// ══════════════════════════════════════════════════════════════════════════════

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// SlowRequestThreshold marks a request as slow when its duration
	// exceeds this value.
	SlowRequestThreshold time.Duration

	// OnSlowRequest, if set, is called for every slow request.
	OnSlowRequest func(command string, telegramID int64, duration time.Duration)
}

// DefaultMetricsConfig returns sensible defaults for the metrics middleware.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SlowRequestThreshold: 2 * time.Second,
	}
}

// commandMetrics accumulates counters for a single command.
type commandMetrics struct {
	count         int64
	errors        int64
	totalDuration time.Duration
	minDuration   time.Duration
	maxDuration   time.Duration
	lastInvoked   time.Time
	users         map[int64]struct{}
}

// MetricsMiddleware records per-command request metrics.
type MetricsMiddleware struct {
	config   MetricsConfig
	mu       sync.Mutex
	commands map[string]*commandMetrics
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(config MetricsConfig) *MetricsMiddleware {
	return &MetricsMiddleware{
		config:   config,
		commands: make(map[string]*commandMetrics),
	}
}

// RequestContext tracks one in-flight request from Start to End.
type RequestContext struct {
	m          *MetricsMiddleware
	command    string
	telegramID int64
	startedAt  time.Time
}

// Start begins tracking a request. The caller must call End exactly once.
func (m *MetricsMiddleware) Start(command string, telegramID int64) *RequestContext {
	return &RequestContext{
		m:          m,
		command:    command,
		telegramID: telegramID,
		startedAt:  time.Now(),
	}
}

// End finishes the request and folds its outcome into the counters.
func (rc *RequestContext) End(err error) {
	duration := time.Since(rc.startedAt)
	rc.m.record(rc.command, rc.telegramID, duration, err)

	if rc.m.config.OnSlowRequest != nil && duration > rc.m.config.SlowRequestThreshold {
		rc.m.config.OnSlowRequest(rc.command, rc.telegramID, duration)
	}
}

func (m *MetricsMiddleware) record(command string, telegramID int64, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cm, ok := m.commands[command]
	if !ok {
		cm = &commandMetrics{users: make(map[int64]struct{})}
		m.commands[command] = cm
	}

	cm.count++
	if err != nil {
		cm.errors++
	}
	cm.totalDuration += duration
	if cm.minDuration == 0 || duration < cm.minDuration {
		cm.minDuration = duration
	}
	if duration > cm.maxDuration {
		cm.maxDuration = duration
	}
	cm.lastInvoked = time.Now()
	cm.users[telegramID] = struct{}{}
}

// CommandSnapshot is a point-in-time view of one command's counters.
type CommandSnapshot struct {
	Command     string
	Count       int64
	Errors      int64
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
	LastInvoked time.Time
	UniqueUsers int
}

// Snapshot returns a copy of all command counters.
func (m *MetricsMiddleware) Snapshot() map[string]CommandSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]CommandSnapshot, len(m.commands))
	for name, cm := range m.commands {
		snap := CommandSnapshot{
			Command:     name,
			Count:       cm.count,
			Errors:      cm.errors,
			MinDuration: cm.minDuration,
			MaxDuration: cm.maxDuration,
			LastInvoked: cm.lastInvoked,
			UniqueUsers: len(cm.users),
		}
		if cm.count > 0 {
			snap.AvgDuration = cm.totalDuration / time.Duration(cm.count)
		}
		out[name] = snap
	}
	return out
}
