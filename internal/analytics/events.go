package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventIndexBuilt EventType = "index_built"
)

// SearchEvent is published for every answered search request.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Mode       string    `json:"mode"`
	TotalHits  int       `json:"total_hits"`
	LatencyMs  float64   `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// IndexEvent is published whenever a new index snapshot starts serving.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type envelope struct {
	Type EventType `json:"type"`
}
