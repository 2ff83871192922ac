package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pulse/internal/api"
	"pulse/internal/realtime"
)

func registerHTTP(
	mux *http.ServeMux,
	handler *api.Handler,
	info *api.InfoHandler,
	gateway *realtime.Gateway,
) {
	handler.Register(mux)
	info.Register(mux)

	mux.Handle("/stats/ws", gateway)
	mux.Handle("/metrics", promhttp.Handler())
}
