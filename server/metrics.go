package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry collects the server metrics exposed on the admin
// API's /metrics endpoint.
var MetricsRegistry = prometheus.NewRegistry()

var (
	metricConnectionsTotal = promauto.With(MetricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Name: "irc_connections_total",
			Help: "Total number of accepted client connections",
		},
	)

	metricCommandsTotal = promauto.With(MetricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "irc_commands_total",
			Help: "Total number of processed commands by command name",
		},
		[]string{"command"},
	)

	metricMessagesTotal = promauto.With(MetricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Name: "irc_messages_total",
			Help: "Total number of delivered PRIVMSG/NOTICE messages",
		},
	)

	metricConnectedClients = promauto.With(MetricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Name: "irc_connected_clients",
			Help: "Number of currently connected clients",
		},
	)

	metricChannels = promauto.With(MetricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Name: "irc_channels",
			Help: "Number of registered channels",
		},
	)
)
