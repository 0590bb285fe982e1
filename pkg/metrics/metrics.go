package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_ws_connections_open",
		Help: "Currently open websocket connections.",
	})
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_events_processed_total",
		Help: "Inbound realtime events processed by the broker.",
	}, []string{"event"})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_events_dropped_total",
		Help: "Malformed or unroutable inbound events dropped.",
	})
	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collab_broadcasts_total",
		Help: "Outbound fan-out messages enqueued.",
	})
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_rooms_active",
		Help: "Live room sessions.",
	})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
