package metrics

import (
	"sync"
	"time"
)

// degradedAfter is the number of consecutive failed operations after which
// the store reports HealthDegraded.
const degradedAfter = 3

// Store keeps recent operation records in a ring buffer and aggregates them
// per operation.
//
// Usage:
//
//	store := NewStore(StoreConfig{HistoryCapacity: 50, Version: "1.0.0"}, time.Now())
//	store.Record(OperationRecord{Operation: "summon", Outcome: "success"})
//	summary := store.Summary()
type Store struct {
	mu sync.RWMutex

	history []OperationRecord
	cap     int
	head    int
	size    int

	byOp              map[string]*opStats
	consecutiveFailed int

	startTime time.Time
	version   string
}

type opStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// HistoryCapacity is the max number of records to retain
	HistoryCapacity int
	// Version is the application version string
	Version string
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryCapacity: 50,
		Version:         "dev",
	}
}

// NewStore creates a Store. startTime is used to calculate uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = 50
	}
	return &Store{
		history:   make([]OperationRecord, capacity),
		cap:       capacity,
		byOp:      make(map[string]*opStats),
		startTime: startTime,
		version:   config.Version,
	}
}

// Record adds a record. Rejected operations are kept in history but do not
// count toward success rates or health.
func (s *Store) Record(r OperationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = r
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	if r.Outcome == OutcomeRejected {
		return
	}

	stats, ok := s.byOp[r.Operation]
	if !ok {
		stats = &opStats{}
		s.byOp[r.Operation] = stats
	}
	stats.count++
	stats.totalDuration += r.Duration
	if r.Outcome == OutcomeSuccess {
		stats.successCount++
		s.consecutiveFailed = 0
	} else {
		s.consecutiveFailed++
	}
}

// Recent returns up to limit records, most recent first.
func (s *Store) Recent(limit int) []OperationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(limit)
}

func (s *Store) recentLocked(limit int) []OperationRecord {
	if limit <= 0 || s.size == 0 {
		return []OperationRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	result := make([]OperationRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - 1 - i + s.cap) % s.cap
		result[i] = s.history[idx]
	}
	return result
}

// Summary returns aggregated statistics and health. activeSessions is
// reported as given.
func (s *Store) Summary(activeSessions int) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := HealthRunning
	if s.consecutiveFailed >= degradedAfter {
		health = HealthDegraded
	}

	ops := make(map[string]OperationStats, len(s.byOp))
	for name, stats := range s.byOp {
		var st OperationStats
		st.Count = stats.count
		if stats.count > 0 {
			st.SuccessRate = float64(stats.successCount) / float64(stats.count) * 100
			st.AvgDuration = stats.totalDuration / time.Duration(stats.count)
		}
		ops[name] = st
	}

	return Summary{
		Health:         health,
		Version:        s.version,
		Uptime:         time.Since(s.startTime),
		ActiveSessions: activeSessions,
		Operations:     ops,
		Recent:         s.recentLocked(10),
	}
}
