package declaration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codelab_declaration_operations_total",
		Help: "Declaration synchronizer operations by kind",
	}, []string{"op"})

	liveDeclarations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codelab_declarations_live",
		Help: "Declarations currently registered with the analysis service",
	})
)
