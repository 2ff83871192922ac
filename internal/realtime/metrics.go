package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pulse_ws_connections",
		Help: "Currently registered websocket connections.",
	})

	expiryDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_ws_expiry_disconnects_total",
		Help: "Connections force-closed because the identity snapshot expired.",
	})

	broadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_ws_broadcast_dropped_total",
		Help: "Broadcast messages dropped on congested connections.",
	})
)
