package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelab_dispatch_total",
		Help: "Actions dispatched to the session store",
	}, []string{"action", "result"})

	effectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelab_effects_total",
		Help: "Effects applied by the runner",
	}, []string{"lane", "result"})
)
