package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDuplicate = "duplicate"
)

// InventoryMetrics records serial lifecycle and import activity.
type InventoryMetrics struct {
	transitions    *prometheus.CounterVec
	serialsCreated *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	importItems    *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "serial_transitions_total",
		Help: "Serial categorization attempts by movement type, target category and outcome.",
	}, []string{"type", "category", "outcome"})
	serialsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "serials_created_total",
		Help: "Serial creation attempts by source and outcome.",
	}, []string{"source", "outcome"})
	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_duration_seconds",
		Help:    "Duration of spreadsheet import stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	importItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_items_total",
		Help: "Bills and serials processed by the importer, by kind and outcome.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(transitions, serialsCreated, importDuration, importItems)
	return &InventoryMetrics{
		transitions:    transitions,
		serialsCreated: serialsCreated,
		importDuration: importDuration,
		importItems:    importItems,
	}
}

// ObserveTransition counts one categorization attempt.
func (m *InventoryMetrics) ObserveTransition(movementType, category, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(movementType), normalizeLabel(category), normalizeLabel(outcome)).Inc()
}

// ObserveSerialCreated counts one serial creation attempt.
func (m *InventoryMetrics) ObserveSerialCreated(source, outcome string) {
	if m == nil || m.serialsCreated == nil {
		return
	}
	m.serialsCreated.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// ObserveImportStage records how long an import stage (parse, validate, apply) took.
func (m *InventoryMetrics) ObserveImportStage(stage string, duration time.Duration) {
	if m == nil || m.importDuration == nil {
		return
	}
	m.importDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// AddImportItems adds n processed items of the given kind.
func (m *InventoryMetrics) AddImportItems(kind, outcome string, n int) {
	if m == nil || m.importItems == nil || n <= 0 {
		return
	}
	m.importItems.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
