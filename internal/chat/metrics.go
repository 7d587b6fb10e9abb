package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "board_connected_clients",
		Help: "Number of currently connected clients",
	})

	PacketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_packets_total",
		Help: "Total requests processed by operation",
	}, []string{"op"})

	EventProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "board_event_processing_seconds",
		Help:    "Time to process each operation type",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	BroadcastFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_broadcast_frames_total",
		Help: "Frames fanned out to Public room members",
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(PacketsTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(BroadcastFrames)
}
