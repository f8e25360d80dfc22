// Package metrics exports run statistics in Prometheus textfile format for
// node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stacksave/stacksave/internal/logging"
)

// RunMetrics represents the subset of run statistics exported as Prometheus
// metrics.
type RunMetrics struct {
	RunID    string
	Hostname string

	StartTime time.Time
	EndTime   time.Time

	ExitCode    int
	AppsTotal   int
	AppsFailed  int
	ExtraTotal  int
	ExtraFailed int
}

// Exporter writes run metrics to stacksave.prom in a textfile collector
// directory.
type Exporter struct {
	textfileDir string
	logger      *logging.Logger
}

// NewExporter creates an Exporter using the provided directory.
func NewExporter(textfileDir string, logger *logging.Logger) *Exporter {
	return &Exporter{
		textfileDir: strings.TrimRight(textfileDir, "/"),
		logger:      logger,
	}
}

// Export writes the given metrics snapshot atomically (write temp file, then
// rename) so node_exporter never reads a partial file.
func (e *Exporter) Export(m *RunMetrics) error {
	if e == nil || m == nil {
		return nil
	}
	if e.textfileDir == "" {
		return fmt.Errorf("metrics textfile directory is empty")
	}

	if err := os.MkdirAll(e.textfileDir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}

	labels := fmt.Sprintf(`hostname=%q,run_id=%q`, m.Hostname, m.RunID)
	duration := m.EndTime.Sub(m.StartTime).Seconds()

	var b strings.Builder
	writeMetric := func(name, help, typ string, value string) {
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, typ)
		fmt.Fprintf(&b, "%s{%s} %s\n", name, labels, value)
	}

	writeMetric("stacksave_last_run_timestamp_seconds",
		"Unix timestamp of the last backup run start.", "gauge",
		fmt.Sprintf("%d", m.StartTime.Unix()))
	writeMetric("stacksave_run_duration_seconds",
		"Duration of the last backup run.", "gauge",
		fmt.Sprintf("%.3f", duration))
	writeMetric("stacksave_run_exit_code",
		"Exit code of the last backup run.", "gauge",
		fmt.Sprintf("%d", m.ExitCode))
	writeMetric("stacksave_apps_total",
		"Applications processed in the last run.", "gauge",
		fmt.Sprintf("%d", m.AppsTotal))
	writeMetric("stacksave_apps_failed",
		"Applications that finished with errors in the last run.", "gauge",
		fmt.Sprintf("%d", m.AppsFailed))
	writeMetric("stacksave_additional_backups_total",
		"Flat additional backups processed in the last run.", "gauge",
		fmt.Sprintf("%d", m.ExtraTotal))
	writeMetric("stacksave_additional_backups_failed",
		"Flat additional backups that failed in the last run.", "gauge",
		fmt.Sprintf("%d", m.ExtraFailed))

	target := filepath.Join(e.textfileDir, "stacksave.prom")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("publish metrics file: %w", err)
	}

	e.logger.Debug("metrics exported to %s", target)
	return nil
}
