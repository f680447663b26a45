package ragquery

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}

// Health reads GET /health. A degraded server answers 503 with a report;
// that report is returned without an error.
func (c *Client) Health(ctx context.Context) (status HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	if err = c.do(ctx, http.MethodGet, "/health", nil, &status, http.StatusServiceUnavailable); err != nil {
		return HealthStatus{}, err
	}
	return status, nil
}
