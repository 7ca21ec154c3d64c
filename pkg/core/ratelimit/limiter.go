package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Service names with preconfigured limits.
const (
	ServiceDartAPI = "dart_api"
	ServiceLLM     = "llm"
)

type limitConfig struct {
	maxCalls      int
	window        time.Duration
	maxConcurrent int
}

var serviceDefaults = map[string]limitConfig{
	ServiceDartAPI: {maxCalls: 100, window: time.Minute, maxConcurrent: 20},
	ServiceLLM:     {maxCalls: 60, window: time.Minute, maxConcurrent: 10},
}

var fallbackLimit = limitConfig{maxCalls: 30, window: time.Minute, maxConcurrent: 5}

// WindowLimitForDailyQuota converts a daily request quota into a
// per-minute window limit. DART issues keys with daily quotas, so the
// per-minute budget keeps a burst from exhausting the whole day.
func WindowLimitForDailyQuota(dailyQuota int) int {
	perMinute := dailyQuota / 1440
	if perMinute < 10 {
		perMinute = 10
	}
	if perMinute > 100 {
		perMinute = 100
	}
	return perMinute
}

// Limiter enforces a sliding-window call budget plus a concurrency cap
// for a single upstream service. A call holds one concurrency slot from
// Acquire until Release; the window budget counts call starts within the
// trailing window.
type Limiter struct {
	service       string
	maxCalls      int
	window        time.Duration
	maxConcurrent int
	slots         chan struct{}

	mu             sync.Mutex
	callTimes      []time.Time
	totalCalls     int64
	throttledCalls int64
	totalWait      time.Duration
}

func NewLimiter(service string, maxCalls int, window time.Duration, maxConcurrent int) *Limiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{
		service:       service,
		maxCalls:      maxCalls,
		window:        window,
		maxConcurrent: maxConcurrent,
		slots:         make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks until both a concurrency slot and a window slot are
// available. On cancellation it returns ctx.Err() and consumes nothing.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		if len(l.callTimes) < l.maxCalls {
			l.callTimes = append(l.callTimes, now)
			l.totalCalls++
			l.mu.Unlock()
			return nil
		}
		// Oldest call is still inside the window, so the wait is positive.
		wait := l.window - now.Sub(l.callTimes[0])
		l.throttledCalls++
		l.totalWait += wait
		l.mu.Unlock()

		fmt.Printf("[DEBUG] rate limit reached for %s, waiting %.2fs\n", l.service, wait.Seconds())

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			<-l.slots
			return ctx.Err()
		}
	}
}

// Release returns the concurrency slot taken by a successful Acquire.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.callTimes) && now.Sub(l.callTimes[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.callTimes = append(l.callTimes[:0], l.callTimes[cut:]...)
	}
}

// Stats is a point-in-time snapshot of one limiter.
type Stats struct {
	Service        string  `json:"service"`
	TotalCalls     int64   `json:"total_calls"`
	ThrottledCalls int64   `json:"throttled_calls"`
	ThrottleRate   float64 `json:"throttle_rate"`
	AvgWaitMs      float64 `json:"avg_wait_ms"`
	WindowCalls    int     `json:"current_window_calls"`
	InFlight       int     `json:"in_flight"`
	MaxCalls       int     `json:"max_calls"`
	WindowSeconds  int     `json:"window_seconds"`
	MaxConcurrent  int     `json:"max_concurrent"`
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())

	s := Stats{
		Service:        l.service,
		TotalCalls:     l.totalCalls,
		ThrottledCalls: l.throttledCalls,
		WindowCalls:    len(l.callTimes),
		InFlight:       len(l.slots),
		MaxCalls:       l.maxCalls,
		WindowSeconds:  int(l.window.Seconds()),
		MaxConcurrent:  l.maxConcurrent,
	}
	if l.totalCalls > 0 {
		s.ThrottleRate = float64(l.throttledCalls) / float64(l.totalCalls)
	}
	if l.throttledCalls > 0 {
		s.AvgWaitMs = float64(l.totalWait.Milliseconds()) / float64(l.throttledCalls)
	}
	return s
}

// Manager hands out one limiter per upstream service, creating them on
// first use with per-service defaults.
type Manager struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

func NewManager() *Manager {
	return &Manager{limiters: make(map[string]*Limiter)}
}

// Configure replaces the limiter for a service. Existing in-flight
// callers keep their old limiter; new acquires use the new one.
func (m *Manager) Configure(service string, maxCalls int, window time.Duration, maxConcurrent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[service] = NewLimiter(service, maxCalls, window, maxConcurrent)
}

// Get returns the limiter for a service, creating it with defaults when
// it does not exist yet.
func (m *Manager) Get(service string) *Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.limiters[service]; ok {
		return l
	}
	cfg, ok := serviceDefaults[service]
	if !ok {
		cfg = fallbackLimit
	}
	l := NewLimiter(service, cfg.maxCalls, cfg.window, cfg.maxConcurrent)
	m.limiters[service] = l
	return l
}

func (m *Manager) Acquire(ctx context.Context, service string) error {
	return m.Get(service).Acquire(ctx)
}

func (m *Manager) Release(service string) {
	m.Get(service).Release()
}

// Stats snapshots every limiter created so far, keyed by service.
func (m *Manager) Stats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Stats, len(m.limiters))
	for name, l := range m.limiters {
		out[name] = l.Stats()
	}
	return out
}
