package yearend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the year-end batch.
// A nil *Metrics records nothing.
type Metrics struct {
	runs               *prometheus.CounterVec
	assetsDepreciated  prometheus.Counter
	assetsStopped      prometheus.Counter
	assetsSkipped      prometheus.Counter
	depreciationAmount prometheus.Counter
	lastFiscalYear     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fixed_assets",
			Subsystem: "year_end",
			Name:      "runs_total",
			Help:      "Year-end batch runs by outcome.",
		}, []string{"outcome"}),
		assetsDepreciated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixed_assets",
			Subsystem: "year_end",
			Name:      "assets_depreciated_total",
			Help:      "Assets that received a depreciation posting.",
		}),
		assetsStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixed_assets",
			Subsystem: "year_end",
			Name:      "assets_stopped_total",
			Help:      "Assets processed with nothing left to depreciate.",
		}),
		assetsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixed_assets",
			Subsystem: "year_end",
			Name:      "assets_skipped_total",
			Help:      "Assets skipped for missing data, invalid data or an earlier posting.",
		}),
		depreciationAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixed_assets",
			Subsystem: "year_end",
			Name:      "depreciation_amount_total",
			Help:      "Sum of depreciation posted by the batch.",
		}),
		lastFiscalYear: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fixed_assets",
			Subsystem: "year_end",
			Name:      "last_completed_fiscal_year",
			Help:      "Fiscal year of the last completed run.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.runs,
			m.assetsDepreciated,
			m.assetsStopped,
			m.assetsSkipped,
			m.depreciationAmount,
			m.lastFiscalYear,
		)
	}
	return m
}

func (m *Metrics) observe(result *BatchResult) {
	if m == nil {
		return
	}

	switch {
	case result.Success:
		m.runs.WithLabelValues("completed").Inc()
	case result.RunID == "":
		m.runs.WithLabelValues("rejected").Inc()
		return
	default:
		m.runs.WithLabelValues("failed").Inc()
		return
	}

	m.assetsDepreciated.Add(float64(result.DepreciatedCount))
	m.assetsStopped.Add(float64(result.StoppedCount))
	m.assetsSkipped.Add(float64(result.SkippedCount))
	amount, _ := result.TotalDepreciation.Float64()
	m.depreciationAmount.Add(amount)
	m.lastFiscalYear.Set(float64(result.FiscalYear))
}
