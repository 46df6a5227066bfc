package models

import "time"

// SystemMetrics is a lightweight snapshot of process-level counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	AllocationTxCount        uint64    `json:"allocation_tx_count"`
	AverageAllocationTxMs    float64   `json:"average_allocation_tx_ms"`
	AllocationTxRetries      uint64    `json:"allocation_tx_retries"`
	AllocationConflicts      uint64    `json:"allocation_conflicts"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
