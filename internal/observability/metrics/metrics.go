package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the qualification engine.
// All observe methods are nil-safe so callers can run without metrics wired.
type EngineMetrics struct {
	jobsTotal        *prometheus.CounterVec
	actionsTotal     *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	optOutsTotal     prometheus.Counter
	llmLatency       *prometheus.HistogramVec
	outboundTotal    *prometheus.CounterVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarai",
			Subsystem: "engine",
			Name:      "jobs_total",
			Help:      "Total qualification jobs processed per queue",
		}, []string{"queue", "result"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarai",
			Subsystem: "engine",
			Name:      "actions_total",
			Help:      "Total model action calls dispatched",
		}, []string{"action", "result"}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solarai",
			Subsystem: "engine",
			Name:      "escalations_total",
			Help:      "Total conversations escalated to a human",
		}),
		optOutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "solarai",
			Subsystem: "messaging",
			Name:      "opt_outs_total",
			Help:      "Total STOP keyword opt-outs",
		}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "solarai",
			Subsystem: "engine",
			Name:      "llm_latency_seconds",
			Help:      "Latency of AI completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solarai",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound sends per channel",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.jobsTotal, m.actionsTotal, m.escalationsTotal, m.optOutsTotal, m.llmLatency, m.outboundTotal)
	return m
}

func (m *EngineMetrics) ObserveJob(queue, result string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(queue, result).Inc()
}

func (m *EngineMetrics) ObserveAction(action, result string) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(action, result).Inc()
}

func (m *EngineMetrics) ObserveEscalation() {
	if m == nil {
		return
	}
	m.escalationsTotal.Inc()
}

func (m *EngineMetrics) ObserveOptOut() {
	if m == nil {
		return
	}
	m.optOutsTotal.Inc()
}

func (m *EngineMetrics) ObserveLLMLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *EngineMetrics) ObserveOutbound(channel, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(channel, status).Inc()
}
