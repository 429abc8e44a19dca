package services

import (
	"sync"
	"time"
)

// MetricsService is the in-memory ports.SessionRecorder. It backs local
// introspection and tests; production wiring layers the Prometheus collector
// on top of the same interface.
type MetricsService struct {
	mu sync.Mutex

	ops            map[string]int64
	skippedBusy    map[string]int64
	acquires       map[string]int64 // "<device>/<result>"
	acquireTotal   map[string]time.Duration
	fallbacks      map[string]int64
	corrections    int64
	activeSessions int64
}

func NewMetricsService() *MetricsService {
	return &MetricsService{
		ops:          make(map[string]int64),
		skippedBusy:  make(map[string]int64),
		acquires:     make(map[string]int64),
		acquireTotal: make(map[string]time.Duration),
		fallbacks:    make(map[string]int64),
	}
}

func (m *MetricsService) RecordOp(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op]++
}

func (m *MetricsService) RecordSkippedBusy(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skippedBusy[op]++
}

func (m *MetricsService) RecordAcquire(device, result string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := device + "/" + result
	m.acquires[key]++
	m.acquireTotal[key] += d
}

func (m *MetricsService) RecordFallback(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks[kind]++
}

func (m *MetricsService) RecordConsistencyCorrection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrections++
}

func (m *MetricsService) RecordSessionOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeSessions++
}

func (m *MetricsService) RecordSessionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeSessions > 0 {
		m.activeSessions--
	}
}

func (m *MetricsService) Ops(op string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops[op]
}

func (m *MetricsService) SkippedBusy(op string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skippedBusy[op]
}

func (m *MetricsService) Acquires(device, result string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires[device+"/"+result]
}

func (m *MetricsService) Fallbacks(kind string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallbacks[kind]
}

func (m *MetricsService) ConsistencyCorrections() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.corrections
}

func (m *MetricsService) ActiveSessions() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSessions
}
