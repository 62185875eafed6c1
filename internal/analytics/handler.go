package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const maxTopQueries = 100

// ServeHTTP answers GET /api/v1/analytics[?top=N] with the aggregate.
func (a *Aggregator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "top must be a positive integer"})
			return
		}
		top = min(n, maxTopQueries)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(a.StatsTop(top)); err != nil {
		slog.Default().With("component", "analytics-handler").Error("failed to write analytics response", "error", err)
	}
}
