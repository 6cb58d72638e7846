package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "parley_connections",
		Help: "Currently registered WebSocket connections",
	})

	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_events_total",
		Help: "Inbound client events routed, by event type",
	}, []string{"type"})

	metricRoomMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_room_messages_total",
		Help: "Room messages routed",
	})

	metricDirectMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_dm_messages_total",
		Help: "Direct messages routed",
	})

	metricDroppedSends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_dropped_sends_total",
		Help: "Outbound sends dropped because a client buffer was full",
	})

	metricStoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parley_store_errors_total",
		Help: "Durable store operations that returned an error",
	})
)
