package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ciphervote",
		Name:      "sessions_created_total",
		Help:      "Number of vote sessions created.",
	})
	ballotsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ciphervote",
		Name:      "ballots_accepted_total",
		Help:      "Number of ballots accepted.",
	})
	ballotsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ciphervote",
		Name:      "ballots_rejected_total",
		Help:      "Number of ballots rejected, by error category.",
	}, []string{"category"})
	sessionsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ciphervote",
		Name:      "sessions_finalized_total",
		Help:      "Number of sessions whose results were published.",
	})
)
