// Package metrics exposes the relay's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_active_connections",
		Help: "Live WebSocket connections.",
	})

	MessagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_messages_routed_total",
		Help: "Direct messages by routing outcome.",
	}, []string{"outcome"}) // delivered, receiver_offline, persist_failed, invalid

	SignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_signals_relayed_total",
		Help: "Signaling envelopes forwarded, by kind.",
	}, []string{"kind"})

	PresenceBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_presence_broadcasts_total",
		Help: "Presence status fan-outs.",
	})

	PersistSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatrelay_persist_seconds",
		Help:    "Durable write latency.",
		Buckets: prometheus.DefBuckets,
	})
)
