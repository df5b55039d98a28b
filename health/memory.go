package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures a MemoryChecker.
type MemoryCheckerConfig struct {
	// MaxHeap is the heap size treated as 100%. Zero uses the runtime's
	// obtained memory.
	MaxHeap uint64

	// Warning and Critical are fractions of MaxHeap.
	// Defaults: 0.8 and 0.95
	Warning  float64
	Critical float64

	// Entries reports the in-process card cache size. Optional.
	Entries func() int
}

// MemoryChecker reports heap pressure and the in-process cache size.
type MemoryChecker struct {
	cfg MemoryCheckerConfig
}

// NewMemoryChecker creates a MemoryChecker.
func NewMemoryChecker(cfg MemoryCheckerConfig) *MemoryChecker {
	if cfg.Warning <= 0 || cfg.Warning >= 1 {
		cfg.Warning = 0.8
	}
	if cfg.Critical <= cfg.Warning || cfg.Critical >= 1 {
		cfg.Critical = 0.95
	}
	return &MemoryChecker{cfg: cfg}
}

func (m *MemoryChecker) Name() string { return "memory" }

func (m *MemoryChecker) Check(context.Context) Result {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	limit := m.cfg.MaxHeap
	if limit == 0 {
		limit = stats.Sys
	}
	details := map[string]any{
		"heap_alloc": stats.HeapAlloc,
		"sys":        stats.Sys,
		"num_gc":     stats.NumGC,
		"goroutines": runtime.NumGoroutine(),
	}
	if m.cfg.Entries != nil {
		details["cache_entries"] = m.cfg.Entries()
	}
	if limit == 0 {
		return Healthy("memory stats unavailable").With(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details["usage_percent"] = ratio * 100
	msg := fmt.Sprintf("heap at %.1f%%", ratio*100)
	switch {
	case ratio >= m.cfg.Critical:
		return Unhealthy(msg, ErrThreshold).With(details)
	case ratio >= m.cfg.Warning:
		return Degraded(msg, nil).With(details)
	default:
		return Healthy(msg).With(details)
	}
}
