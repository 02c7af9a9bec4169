package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrLimitExceeded is returned when retaining more text would pass the limit
	ErrLimitExceeded = errors.New("memory limit exceeded")

	// ErrUnknownPage is returned for pages that were never allocated
	ErrUnknownPage = errors.New("page not found")
)

// Manager accounts for the text every live page retains and enforces a
// global limit on it
type Manager struct {
	maxMemoryBytes   int64
	currentUsage     int64
	pageMemoryUsage  map[string]int64 // pageID -> retained bytes
	memoryThresholds *Thresholds
	mu               sync.RWMutex
	config           *Config
}

// Config defines memory manager configuration
type Config struct {
	MaxMemoryMB          int // Maximum memory in MB
	WarningThresholdPct  int // Warning threshold percentage
	CriticalThresholdPct int // Critical threshold percentage
}

// Thresholds defines memory usage thresholds
type Thresholds struct {
	WarningBytes  int64 // Warning threshold in bytes
	CriticalBytes int64 // Critical threshold in bytes
}

// DefaultConfig returns secure default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxMemoryMB:          64, // 64MB of retained text
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
	}
}

// NewManager creates a new memory manager
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WarningThresholdPct == 0 {
		config.WarningThresholdPct = 75
	}
	if config.CriticalThresholdPct == 0 {
		config.CriticalThresholdPct = 90
	}

	maxBytes := int64(config.MaxMemoryMB) * 1024 * 1024

	return &Manager{
		maxMemoryBytes:  maxBytes,
		pageMemoryUsage: make(map[string]int64),
		config:          config,
		memoryThresholds: &Thresholds{
			WarningBytes:  (maxBytes * int64(config.WarningThresholdPct)) / 100,
			CriticalBytes: (maxBytes * int64(config.CriticalThresholdPct)) / 100,
		},
	}
}

// AllocatePage starts accounting for a page retaining size bytes
func (m *Manager) AllocatePage(pageID string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.pageMemoryUsage[pageID]
	newUsage := atomic.LoadInt64(&m.currentUsage) - old + size
	if newUsage > m.maxMemoryBytes {
		return fmt.Errorf("%w: %d + %d > %d", ErrLimitExceeded,
			atomic.LoadInt64(&m.currentUsage), size, m.maxMemoryBytes)
	}

	m.pageMemoryUsage[pageID] = size
	atomic.AddInt64(&m.currentUsage, size-old)

	return nil
}

// DeallocatePage releases the bytes held by a page
func (m *Manager) DeallocatePage(pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if usage, exists := m.pageMemoryUsage[pageID]; exists {
		atomic.AddInt64(&m.currentUsage, -usage)
		delete(m.pageMemoryUsage, pageID)
	}
}

// UpdatePageUsage records a new retained size for an existing page. A
// growth that would pass the limit is rejected and the old size kept.
func (m *Manager) UpdatePageUsage(pageID string, newSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldSize, exists := m.pageMemoryUsage[pageID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownPage, pageID)
	}

	deltaSize := newSize - oldSize
	newTotalUsage := atomic.LoadInt64(&m.currentUsage) + deltaSize

	if deltaSize > 0 && newTotalUsage > m.maxMemoryBytes {
		return fmt.Errorf("%w: %d + %d > %d", ErrLimitExceeded,
			atomic.LoadInt64(&m.currentUsage), deltaSize, m.maxMemoryBytes)
	}

	m.pageMemoryUsage[pageID] = newSize
	atomic.AddInt64(&m.currentUsage, deltaSize)

	return nil
}

// RestorePageUsage sets a page back to a size it held before. Unlike
// UpdatePageUsage it never checks the limit, so a rollback cannot fail
// because other pages grew in between.
func (m *Manager) RestorePageUsage(pageID string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldSize, exists := m.pageMemoryUsage[pageID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownPage, pageID)
	}

	m.pageMemoryUsage[pageID] = size
	atomic.AddInt64(&m.currentUsage, size-oldSize)

	return nil
}

// GetMemoryStatus returns current memory usage status
func (m *Manager) GetMemoryStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentUsage := atomic.LoadInt64(&m.currentUsage)

	status := Status{
		CurrentUsage:      currentUsage,
		MaxMemory:         m.maxMemoryBytes,
		ActivePages:       len(m.pageMemoryUsage),
		WarningThreshold:  m.memoryThresholds.WarningBytes,
		CriticalThreshold: m.memoryThresholds.CriticalBytes,
	}
	if m.maxMemoryBytes > 0 {
		status.UsagePercentage = float64(currentUsage) / float64(m.maxMemoryBytes) * 100
	}

	// Determine status level
	if currentUsage >= m.memoryThresholds.CriticalBytes && currentUsage > 0 {
		status.Level = "CRITICAL"
	} else if currentUsage >= m.memoryThresholds.WarningBytes && currentUsage > 0 {
		status.Level = "WARNING"
	} else {
		status.Level = "OK"
	}

	// Calculate average memory per page
	if len(m.pageMemoryUsage) > 0 {
		status.AveragePageMemory = currentUsage / int64(len(m.pageMemoryUsage))
	}

	return status
}

// Status contains memory usage information
type Status struct {
	CurrentUsage      int64   `json:"current_usage"`
	MaxMemory         int64   `json:"max_memory"`
	UsagePercentage   float64 `json:"usage_percentage"`
	Level             string  `json:"level"` // "OK", "WARNING", "CRITICAL"
	ActivePages       int     `json:"active_pages"`
	AveragePageMemory int64   `json:"average_page_memory"`
	WarningThreshold  int64   `json:"warning_threshold"`
	CriticalThreshold int64   `json:"critical_threshold"`
}

// IsNearCapacity checks if memory usage is approaching capacity
func (m *Manager) IsNearCapacity() bool {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	return currentUsage > 0 && currentUsage >= m.memoryThresholds.WarningBytes
}

// GetAvailableMemory returns available memory in bytes
func (m *Manager) GetAvailableMemory() int64 {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	available := m.maxMemoryBytes - currentUsage
	if available < 0 {
		return 0
	}
	return available
}

// CanAllocate checks if a given size can be allocated
func (m *Manager) CanAllocate(size int64) bool {
	currentUsage := atomic.LoadInt64(&m.currentUsage)
	return currentUsage+size <= m.maxMemoryBytes
}

// GetPageMemoryUsage returns memory usage for a specific page
func (m *Manager) GetPageMemoryUsage(pageID string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage, exists := m.pageMemoryUsage[pageID]
	return usage, exists
}

// GetTopMemoryPages returns pages using the most memory
func (m *Manager) GetTopMemoryPages(limit int) []PageMemoryInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pages := make([]PageMemoryInfo, 0, len(m.pageMemoryUsage))
	for pageID, usage := range m.pageMemoryUsage {
		pages = append(pages, PageMemoryInfo{
			PageID: pageID,
			Usage:  usage,
		})
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Usage != pages[j].Usage {
			return pages[i].Usage > pages[j].Usage
		}
		return pages[i].PageID < pages[j].PageID
	})

	if limit > len(pages) {
		limit = len(pages)
	}
	return pages[:limit]
}

// PageMemoryInfo contains memory usage information for a page
type PageMemoryInfo struct {
	PageID string `json:"page_id"`
	Usage  int64  `json:"usage"`
}

// GetTotalPages returns the number of pages being tracked
func (m *Manager) GetTotalPages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pageMemoryUsage)
}
