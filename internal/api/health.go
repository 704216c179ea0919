package api

import (
	"context"
	"net/http"
	"time"

	"diversifia/ordersync/internal/models/dtos"
)

// HealthCheck handles GET /healthCheck. It pings the Dolibarr pool and the
// target store and reports 503 when either is down.
func (h *Handlers) HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		services := make(map[string]dtos.ServiceStatus)
		overallStatus := "ok"
		for name, err := range h.sync.Health(ctx) {
			status := dtos.ServiceStatus{Status: "ok", Details: "connected"}
			if err != nil {
				status = dtos.ServiceStatus{Status: "down", Details: err.Error()}
				overallStatus = "down"
			}
			services[name] = status
		}

		code := http.StatusOK
		if overallStatus != "ok" {
			code = http.StatusServiceUnavailable
		}

		respondJSON(w, code, dtos.HealthCheckResponse{
			Status:   overallStatus,
			Services: services,
			UpSince:  h.upSince,
			Uptime:   time.Since(h.upSince).Round(time.Second).String(),
		})
	}
}
