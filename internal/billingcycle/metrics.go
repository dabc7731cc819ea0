package billingcycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "textlane",
		Subsystem: "billing",
		Name:      "cycles_total",
		Help:      "Billing passes executed.",
	})

	chargesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "textlane",
		Subsystem: "billing",
		Name:      "rental_charges_total",
		Help:      "Rental charge attempts by outcome.",
	}, []string{"outcome"})
)
