package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RowsIngested counts capture rows stored per tool
	RowsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netguard",
			Name:      "rows_ingested_total",
			Help:      "Total number of capture rows parsed and stored",
		},
		[]string{"tool"},
	)

	// CollectorErrors counts failed collection cycles per tool
	CollectorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netguard",
			Name:      "collector_errors_total",
			Help:      "Total number of failed collection cycles",
		},
		[]string{"tool"},
	)

	// ToolRestarts counts capture process restarts per tool
	ToolRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netguard",
			Name:      "tool_restarts_total",
			Help:      "Total number of capture tool process restarts",
		},
		[]string{"tool"},
	)

	// AlertsTriggered counts alerts raised per rule and severity
	AlertsTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netguard",
			Name:      "alerts_triggered_total",
			Help:      "Total number of security alerts raised",
		},
		[]string{"rule", "severity"},
	)

	// VulnsFound counts scanner findings per type
	VulnsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netguard",
			Name:      "vulnerabilities_found_total",
			Help:      "Total number of vulnerability findings recorded",
		},
		[]string{"type", "severity"},
	)

	// AIAnalyses counts analysis cycles per provider and outcome
	AIAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netguard",
			Name:      "ai_analyses_total",
			Help:      "Total number of AI analysis attempts",
		},
		[]string{"provider", "outcome"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Register metrics, ignoring errors if already registered
		// This prevents panics when metrics are already in the registry
		prometheus.DefaultRegisterer.Register(RowsIngested)
		prometheus.DefaultRegisterer.Register(CollectorErrors)
		prometheus.DefaultRegisterer.Register(ToolRestarts)
		prometheus.DefaultRegisterer.Register(AlertsTriggered)
		prometheus.DefaultRegisterer.Register(VulnsFound)
		prometheus.DefaultRegisterer.Register(AIAnalyses)
	})
}
