package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector provides simple built-in metrics collection with no external dependencies
type Collector struct {
	applicationMetrics *ApplicationMetrics
	operationCounters  map[string]*int64
	renderNanos        int64
	mu                 sync.RWMutex
	startTime          time.Time
}

// ApplicationMetrics tracks application-level performance data
type ApplicationMetrics struct {
	// Page management
	PagesCreated       int64 `json:"pages_created"`
	PagesDestroyed     int64 `json:"pages_destroyed"`
	ActivePages        int64 `json:"active_pages"`
	MaxConcurrentPages int64 `json:"max_concurrent_pages"`

	// Render cycles
	RendersCompleted  int64         `json:"renders_completed"`
	RenderFailures    int64         `json:"render_failures"`
	PatchesApplied    int64         `json:"patches_applied"`
	EmptyPatches      int64         `json:"empty_patches"`
	OperationsApplied int64         `json:"operations_applied"`
	RenderAverageTime time.Duration `json:"render_average_time"`

	// Layout recompute
	LayoutRecomputes int64 `json:"layout_recomputes"`
	LayoutSkips      int64 `json:"layout_skips"`

	// Client messages
	EditsReceived    int64 `json:"edits_received"`
	MessagesRejected int64 `json:"messages_rejected"`

	// Memory
	TotalMemoryUsage  int64 `json:"total_memory_usage"`
	AveragePageMemory int64 `json:"average_page_memory"`

	// Cleanup operations
	CleanupOperations   int64 `json:"cleanup_operations"`
	ExpiredPagesRemoved int64 `json:"expired_pages_removed"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		applicationMetrics: &ApplicationMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementPageCreated records a new page creation
func (c *Collector) IncrementPageCreated() {
	atomic.AddInt64(&c.applicationMetrics.PagesCreated, 1)
	currentActive := atomic.AddInt64(&c.applicationMetrics.ActivePages, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.applicationMetrics.MaxConcurrentPages)
		if currentActive <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.applicationMetrics.MaxConcurrentPages, max, currentActive) {
			break
		}
	}
}

// IncrementPageDestroyed records a page destruction
func (c *Collector) IncrementPageDestroyed() {
	atomic.AddInt64(&c.applicationMetrics.PagesDestroyed, 1)
	atomic.AddInt64(&c.applicationMetrics.ActivePages, -1)
}

// RecordRender records a completed render cycle and the size of its patch
func (c *Collector) RecordRender(duration time.Duration, operations int) {
	atomic.AddInt64(&c.applicationMetrics.RendersCompleted, 1)
	atomic.AddInt64(&c.renderNanos, int64(duration))
	if operations == 0 {
		atomic.AddInt64(&c.applicationMetrics.EmptyPatches, 1)
		return
	}
	atomic.AddInt64(&c.applicationMetrics.PatchesApplied, 1)
	atomic.AddInt64(&c.applicationMetrics.OperationsApplied, int64(operations))
}

// IncrementRenderFailure records a render cycle that was abandoned
func (c *Collector) IncrementRenderFailure() {
	atomic.AddInt64(&c.applicationMetrics.RenderFailures, 1)
}

// IncrementLayoutRecompute records a row count update
func (c *Collector) IncrementLayoutRecompute() {
	atomic.AddInt64(&c.applicationMetrics.LayoutRecomputes, 1)
}

// IncrementLayoutSkip records a layout recompute that could not measure
func (c *Collector) IncrementLayoutSkip() {
	atomic.AddInt64(&c.applicationMetrics.LayoutSkips, 1)
}

// IncrementEditReceived records an edit signal from a client
func (c *Collector) IncrementEditReceived() {
	atomic.AddInt64(&c.applicationMetrics.EditsReceived, 1)
}

// IncrementMessageRejected records a client message that failed validation
func (c *Collector) IncrementMessageRejected() {
	atomic.AddInt64(&c.applicationMetrics.MessagesRejected, 1)
}

// UpdateMemoryUsage updates memory usage metrics
func (c *Collector) UpdateMemoryUsage(totalMemory, averagePageMemory int64) {
	atomic.StoreInt64(&c.applicationMetrics.TotalMemoryUsage, totalMemory)
	atomic.StoreInt64(&c.applicationMetrics.AveragePageMemory, averagePageMemory)
}

// IncrementCleanupOperation records a cleanup operation
func (c *Collector) IncrementCleanupOperation(expiredPagesRemoved int64) {
	atomic.AddInt64(&c.applicationMetrics.CleanupOperations, 1)
	atomic.AddInt64(&c.applicationMetrics.ExpiredPagesRemoved, expiredPagesRemoved)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns current application metrics
func (c *Collector) GetMetrics() ApplicationMetrics {
	c.mu.RLock()
	startTime := c.startTime
	started := c.applicationMetrics.StartTime
	c.mu.RUnlock()

	renders := atomic.LoadInt64(&c.applicationMetrics.RendersCompleted)
	var average time.Duration
	if renders > 0 {
		average = time.Duration(atomic.LoadInt64(&c.renderNanos) / renders)
	}

	// Return a copy with current atomic values
	return ApplicationMetrics{
		PagesCreated:        atomic.LoadInt64(&c.applicationMetrics.PagesCreated),
		PagesDestroyed:      atomic.LoadInt64(&c.applicationMetrics.PagesDestroyed),
		ActivePages:         atomic.LoadInt64(&c.applicationMetrics.ActivePages),
		MaxConcurrentPages:  atomic.LoadInt64(&c.applicationMetrics.MaxConcurrentPages),
		RendersCompleted:    renders,
		RenderFailures:      atomic.LoadInt64(&c.applicationMetrics.RenderFailures),
		PatchesApplied:      atomic.LoadInt64(&c.applicationMetrics.PatchesApplied),
		EmptyPatches:        atomic.LoadInt64(&c.applicationMetrics.EmptyPatches),
		OperationsApplied:   atomic.LoadInt64(&c.applicationMetrics.OperationsApplied),
		RenderAverageTime:   average,
		LayoutRecomputes:    atomic.LoadInt64(&c.applicationMetrics.LayoutRecomputes),
		LayoutSkips:         atomic.LoadInt64(&c.applicationMetrics.LayoutSkips),
		EditsReceived:       atomic.LoadInt64(&c.applicationMetrics.EditsReceived),
		MessagesRejected:    atomic.LoadInt64(&c.applicationMetrics.MessagesRejected),
		TotalMemoryUsage:    atomic.LoadInt64(&c.applicationMetrics.TotalMemoryUsage),
		AveragePageMemory:   atomic.LoadInt64(&c.applicationMetrics.AveragePageMemory),
		CleanupOperations:   atomic.LoadInt64(&c.applicationMetrics.CleanupOperations),
		ExpiredPagesRemoved: atomic.LoadInt64(&c.applicationMetrics.ExpiredPagesRemoved),
		StartTime:           started,
		Uptime:              time.Since(startTime),
	}
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// GetFailureRate returns the percentage of render cycles that failed
func (c *Collector) GetFailureRate() float64 {
	completed := atomic.LoadInt64(&c.applicationMetrics.RendersCompleted)
	failures := atomic.LoadInt64(&c.applicationMetrics.RenderFailures)

	total := completed + failures
	if total == 0 {
		return 0.0
	}

	return float64(failures) / float64(total) * 100.0
}

// GetAverageOperations returns the mean number of operations per non-empty patch
func (c *Collector) GetAverageOperations() float64 {
	patches := atomic.LoadInt64(&c.applicationMetrics.PatchesApplied)
	operations := atomic.LoadInt64(&c.applicationMetrics.OperationsApplied)

	if patches == 0 {
		return 0.0
	}

	return float64(operations) / float64(patches)
}

// GetMemoryEfficiency returns memory usage per active page
func (c *Collector) GetMemoryEfficiency() float64 {
	totalMemory := atomic.LoadInt64(&c.applicationMetrics.TotalMemoryUsage)
	activePages := atomic.LoadInt64(&c.applicationMetrics.ActivePages)

	if activePages == 0 {
		return 0.0
	}

	return float64(totalMemory) / float64(activePages)
}

// ExportPrometheusText renders the counters in the Prometheus text exposition format
func (c *Collector) ExportPrometheusText() string {
	m := c.GetMetrics()

	var b strings.Builder
	write := func(name, kind, help string, value float64) {
		fmt.Fprintf(&b, "# HELP writemusic_%s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE writemusic_%s %s\n", name, kind)
		fmt.Fprintf(&b, "writemusic_%s %g\n", name, value)
	}

	write("pages_created_total", "counter", "Pages mounted since start.", float64(m.PagesCreated))
	write("pages_active", "gauge", "Pages currently mounted.", float64(m.ActivePages))
	write("renders_total", "counter", "Completed render cycles.", float64(m.RendersCompleted))
	write("render_failures_total", "counter", "Render cycles abandoned on error.", float64(m.RenderFailures))
	write("patch_operations_total", "counter", "Display operations sent to clients.", float64(m.OperationsApplied))
	write("empty_patches_total", "counter", "Render cycles that changed nothing.", float64(m.EmptyPatches))
	write("render_average_seconds", "gauge", "Mean render cycle duration.", m.RenderAverageTime.Seconds())
	write("layout_recomputes_total", "counter", "Row count updates.", float64(m.LayoutRecomputes))
	write("layout_skips_total", "counter", "Layout recomputes skipped for lack of geometry.", float64(m.LayoutSkips))
	write("edits_received_total", "counter", "Edit signals received from clients.", float64(m.EditsReceived))
	write("messages_rejected_total", "counter", "Client messages that failed validation.", float64(m.MessagesRejected))
	write("render_failure_percent", "gauge", "Share of render cycles that failed.", c.GetFailureRate())
	write("patch_operations_average", "gauge", "Mean operations per non-empty patch.", c.GetAverageOperations())
	write("memory_bytes", "gauge", "Retained text across pages.", float64(m.TotalMemoryUsage))
	write("memory_bytes_per_page", "gauge", "Mean retained text per mounted page.", c.GetMemoryEfficiency())
	write("uptime_seconds", "gauge", "Seconds since start.", m.Uptime.Seconds())

	counters := c.GetCustomCounters()
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "writemusic_custom_total{name=%q} %d\n", name, counters[name])
	}

	return b.String()
}
