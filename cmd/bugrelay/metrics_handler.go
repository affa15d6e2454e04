package main

import (
	"net/http"

	"bugrelay/internal/metrics"
)

type metricsResponse struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	Metrics       []metrics.Metric `json:"metrics"`
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, uptime := metrics.GetRegistry().Snapshot()
		s.writeJSON(w, http.StatusOK, metricsResponse{
			UptimeSeconds: uptime.Seconds(),
			Metrics:       all,
		})
	}
}
