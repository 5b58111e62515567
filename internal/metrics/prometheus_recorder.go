package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "refsite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	buildDuration   *prom.HistogramVec
	buildOutcome    *prom.CounterVec
	documents       *prom.CounterVec
	transcripts     *prom.CounterVec
	reloads         prom.Counter
	reloadDelivered prom.Counter
	reloadClients   prom.Gauge
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
			Help:      "Duration of builds by scope (full or content)",
			Buckets:   prom.DefBuckets,
		}, []string{"scope"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by scope and result",
		}, []string{"scope", "result"})
		pr.documents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Source documents processed by action",
		}, []string{"action"})
		pr.transcripts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_generations_total",
			Help:      "Transcript generation attempts by result",
		}, []string{"result"})
		pr.reloads = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Live reload signals fired",
		})
		pr.reloadDelivered = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_deliveries_total",
			Help:      "Live reload signals delivered to clients",
		})
		pr.reloadClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Currently connected live reload clients",
		})
		reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.documents, pr.transcripts,
			pr.reloads, pr.reloadDelivered, pr.reloadClients)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(scope string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(scope string, result ResultLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(scope, string(result)).Inc()
}

func (p *PrometheusRecorder) AddDocuments(action string, n int) {
	if p == nil || p.documents == nil || n <= 0 {
		return
	}
	p.documents.WithLabelValues(action).Add(float64(n))
}

func (p *PrometheusRecorder) IncTranscriptGeneration(result ResultLabel) {
	if p == nil || p.transcripts == nil {
		return
	}
	p.transcripts.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncReloadBroadcast(clients int) {
	if p == nil || p.reloads == nil {
		return
	}
	p.reloads.Inc()
	p.reloadDelivered.Add(float64(clients))
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil || p.reloadClients == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}
