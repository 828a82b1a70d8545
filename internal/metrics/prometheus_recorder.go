package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "satsuma"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	buildDuration     *prom.HistogramVec
	buildOutcome      *prom.CounterVec
	actionResults     *prom.CounterVec
	commitConcurrency prom.Gauge
	eventDuration     *prom.HistogramVec
	droppedEvents     prom.Counter
	reloads           prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full and incremental builds",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.actionResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Committed actions by kind and result",
		}, []string{"kind", "result"})
		pr.commitConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "commit_concurrency_peak",
			Help:      "Peak number of in-flight actions during the last commit",
		})
		pr.eventDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "watch_event_duration_seconds",
			Help:      "Time spent handling a watch event by path class",
			Buckets:   prom.DefBuckets,
		}, []string{"class"})
		pr.droppedEvents = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_dropped_total",
			Help:      "Watch events dropped because a build was in progress",
		})
		pr.reloads = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Live-reload signals sent",
		})
		reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.actionResults, pr.commitConcurrency,
			pr.eventDuration, pr.droppedEvents, pr.reloads)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(kind string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncActionResult(kind string, result ActionResult) {
	if p == nil || p.actionResults == nil {
		return
	}
	p.actionResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) SetCommitConcurrency(n int) {
	if p == nil || p.commitConcurrency == nil {
		return
	}
	p.commitConcurrency.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveEventDuration(class string, d time.Duration) {
	if p == nil || p.eventDuration == nil {
		return
	}
	p.eventDuration.WithLabelValues(class).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDroppedEvents() {
	if p == nil || p.droppedEvents == nil {
		return
	}
	p.droppedEvents.Inc()
}

func (p *PrometheusRecorder) IncReloads() {
	if p == nil || p.reloads == nil {
		return
	}
	p.reloads.Inc()
}
