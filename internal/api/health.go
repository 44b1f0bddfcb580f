package api

import (
	"net/http"
	"time"

	"summer-miles/ledger/internal/common"
	"summer-miles/ledger/internal/models/dtos"
)

// HealthCheckHandler handles GET /healthCheck
func HealthCheckHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		services := map[string]string{"storage": "ok"}
		overall := "ok"
		if err := deps.Store.Ping(r.Context()); err != nil {
			services["storage"] = "down"
			overall = "down"
		}

		resp := dtos.HealthResponse{
			Status:   overall,
			Uptime:   time.Since(deps.UpSince).Round(time.Second).String(),
			Services: services,
		}
		if overall != "ok" {
			common.RespondSuccess(w, initTime, "Storage unreachable", resp, http.StatusServiceUnavailable)
			return
		}
		common.RespondSuccess(w, initTime, "Healthy", resp)
	}
}
