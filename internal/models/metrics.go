package models

import "time"

// SystemMetrics is a lightweight aggregate served on the admin status
// endpoint, next to the full Prometheus scrape.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	StaleReadsServed         uint64    `json:"stale_reads_served"`
	Goroutines               int       `json:"goroutines"`
	DatabaseReady            bool      `json:"database_ready"`
	GeneratedAt              time.Time `json:"generated_at"`
}
