package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	syncDuration     *prom.HistogramVec
	languageDuration *prom.HistogramVec
	languageOutcome  *prom.CounterVec
	runDuration      prom.Histogram
	runOutcome       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "packbuilder",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual toolchain stages",
			Buckets:   prom.DefBuckets,
		}, []string{"lang", "stage"})
		pr.syncDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "packbuilder",
			Name:      "workspace_sync_duration_seconds",
			Help:      "Duration of workspace synchronization per language",
			Buckets:   prom.DefBuckets,
		}, []string{"lang", "result"})
		pr.languageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "packbuilder",
			Name:      "language_build_duration_seconds",
			Help:      "End-to-end pipeline duration per language",
			Buckets:   prom.DefBuckets,
		}, []string{"lang"})
		pr.languageOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "packbuilder",
			Name:      "language_outcomes_total",
			Help:      "Language results by terminal state",
		}, []string{"outcome"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "packbuilder",
			Name:      "run_duration_seconds",
			Help:      "Total orchestrator run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "packbuilder",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		reg.MustRegister(pr.stageDuration, pr.syncDuration, pr.languageDuration, pr.languageOutcome, pr.runDuration, pr.runOutcome)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(lang, stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(lang, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveSyncDuration(lang string, d time.Duration, success bool) {
	if p == nil || p.syncDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.syncDuration.WithLabelValues(lang, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveLanguageDuration(lang string, d time.Duration) {
	if p == nil || p.languageDuration == nil {
		return
	}
	p.languageDuration.WithLabelValues(lang).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncLanguageOutcome(outcome string) {
	if p == nil || p.languageOutcome == nil {
		return
	}
	p.languageOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(success bool) {
	if p == nil || p.runOutcome == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "success"
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}
