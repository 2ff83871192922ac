package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pulse_auth_requests_total",
		Help: "Authentication outcomes per inbound request.",
	}, []string{"outcome"})

	authRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pulse_auth_rotations_total",
		Help: "Token pairs minted by transparent refresh rotation.",
	})
)
