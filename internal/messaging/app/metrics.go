package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "textlane",
		Subsystem: "messaging",
		Name:      "messages_sent_total",
		Help:      "Outbound send attempts by result.",
	}, []string{"result"})

	messagesInboundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "textlane",
		Subsystem: "messaging",
		Name:      "messages_inbound_total",
		Help:      "Inbound webhook deliveries by outcome.",
	}, []string{"outcome"})

	sendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "textlane",
		Subsystem: "messaging",
		Name:      "send_duration_seconds",
		Help:      "End-to-end outbound send latency including the provider call.",
		Buckets:   prometheus.DefBuckets,
	})
)
