package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestEngineMetricsObserve(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())
	m.ObserveJob("ai-process", "ok")
	m.ObserveAction("qualify_lead", "ok")
	m.ObserveEscalation()
	m.ObserveOptOut()
	m.ObserveLLMLatency("ok", 0.5)
	m.ObserveOutbound("sms", "sent")
}

func TestEngineMetricsNilSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveJob("ai-process", "ok")
	m.ObserveAction("qualify_lead", "error")
	m.ObserveEscalation()
	m.ObserveOptOut()
	m.ObserveLLMLatency("error", 0.1)
	m.ObserveOutbound("voice", "failed")
}
