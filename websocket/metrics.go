package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_connected_clients",
		Help: "The number of clients connected to the point feed.",
	})

	feedSentMsgs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_sent_msgs",
		Help: "The number of point messages sent to feed clients.",
	})

	feedSentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_sent_bytes",
		Help: "The number of bytes sent to feed clients.",
	})

	feedDroppedMsgs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_dropped_msgs",
		Help: "The number of point messages dropped for clients too slow to receive them.",
	})
)

func instrumentConnect() {
	feedConnectedClients.Inc()
}

func instrumentDisconnect() {
	feedConnectedClients.Dec()
}

func instrumentSend(size int) {
	feedSentMsgs.Inc()
	feedSentBytes.Add(float64(size))
}

func instrumentDrop() {
	feedDroppedMsgs.Inc()
}
