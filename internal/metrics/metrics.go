package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hedj"

// Registry holds every collector for one process run. Commands write it out
// as a textfile at exit so a node exporter can pick it up between cron runs.
var Registry = prometheus.NewRegistry()

var (
	ObservationsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "observations_appended_total",
		Help:      "Observations appended to the history store",
	})

	RowsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "rows_rejected_total",
		Help:      "Input rows skipped because they were malformed",
	}, []string{"source", "reason"})

	MovementsWritten = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "latest",
		Name:      "movements",
		Help:      "Rows in the most recently written latest snapshot",
	})

	SignificantMovements = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "latest",
		Name:      "significant_movements",
		Help:      "Movements in the latest snapshot that reached the mover thresholds",
	})

	OpportunitiesDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "opportunities_detected_total",
		Help:      "Opportunities found before alert dedup",
	}, []string{"kind"})

	OpportunitiesSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      "opportunities_suppressed_total",
		Help:      "Opportunities dropped because their key was alerted within the retention window",
	}, []string{"kind"})

	LastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last successful run per command",
	}, []string{"command"})
)

func init() {
	Registry.MustRegister(
		ObservationsAppended,
		RowsRejected,
		MovementsWritten,
		SignificantMovements,
		OpportunitiesDetected,
		OpportunitiesSuppressed,
		LastRunTimestamp,
	)
}

// WriteTextfile dumps the registry in the node exporter textfile format.
// An empty path disables the export.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics dir: %w", err)
	}
	return prometheus.WriteToTextfile(path, Registry)
}
