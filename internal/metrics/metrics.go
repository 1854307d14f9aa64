package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCFallbacks counts calls answered by a non-primary kaspad endpoint.
	RPCFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kastentd_rpc_fallback_total",
		Help: "RPC calls that succeeded on a fallback endpoint.",
	})

	// RPCExhausted counts calls that failed on every endpoint and attempt.
	RPCExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kastentd_rpc_exhausted_total",
		Help: "RPC calls that exhausted all endpoints and retries.",
	})

	// WSConnections tracks currently registered websocket connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kastentd_ws_connections",
		Help: "Currently connected websocket clients.",
	})

	// BroadcastEvents counts events fanned out to room members.
	BroadcastEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kastentd_broadcast_events_total",
		Help: "Events fanned out to tent room members, by event type.",
	}, []string{"type"})
)
