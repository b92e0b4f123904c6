// Package metrics exposes prometheus collectors for the inventory services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors updated by the services. A nil *Metrics is a no-op.
type Metrics struct {
	SaleLines     *prometheus.CounterVec
	ImportRows    *prometheus.CounterVec
	LedgerRecords prometheus.Gauge
	LowStockGauge prometheus.Gauge
	ReportsSent   prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SaleLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medstock",
			Name:      "sale_lines_total",
			Help:      "Sale and purchase lines processed, by direction and outcome.",
		}, []string{"direction", "outcome"}),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medstock",
			Name:      "import_rows_total",
			Help:      "Import rows processed, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		LedgerRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medstock",
			Name:      "ledger_records",
			Help:      "Number of medicines in the ledger.",
		}),
		LowStockGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medstock",
			Name:      "low_stock_records",
			Help:      "Number of medicines at or below the warning level.",
		}),
		ReportsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medstock",
			Name:      "daily_reports_total",
			Help:      "Daily reports generated.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SaleLines, m.ImportRows, m.LedgerRecords, m.LowStockGauge, m.ReportsSent)
	}
	return m
}

// ObserveSaleLine counts one processed sale line.
func (m *Metrics) ObserveSaleLine(direction, outcome string) {
	if m == nil {
		return
	}
	m.SaleLines.WithLabelValues(direction, outcome).Inc()
}

// ObserveImport counts the rows of one import batch.
func (m *Metrics) ObserveImport(mode string, applied, failed int) {
	if m == nil {
		return
	}
	m.ImportRows.WithLabelValues(mode, "applied").Add(float64(applied))
	m.ImportRows.WithLabelValues(mode, "failed").Add(float64(failed))
}

// SetLedgerSize records the current ledger and low-stock sizes.
func (m *Metrics) SetLedgerSize(records, lowStock int) {
	if m == nil {
		return
	}
	m.LedgerRecords.Set(float64(records))
	m.LowStockGauge.Set(float64(lowStock))
}

// ObserveReport counts one generated daily report.
func (m *Metrics) ObserveReport() {
	if m == nil {
		return
	}
	m.ReportsSent.Inc()
}
