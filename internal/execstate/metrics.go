package execstate

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes execution-ledger activity to the host's diagnostics
// surface.
type Metrics struct {
	ToolCalls              *prometheus.CounterVec
	ToolFailures           *prometheus.CounterVec
	DomainsBlocked         prometheus.Counter
	CompletionFabrications prometheus.Counter
}

// NewMetrics registers and returns a Metrics set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_calls_total",
			Help: "Total tool calls executed, by tool name.",
		}, []string{"tool"}),
		ToolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_failures_total",
			Help: "Total tool call failures, by tool name.",
		}, []string{"tool"}),
		DomainsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_domains_blocked_total",
			Help: "Total domains blocked for exceeding the per-request attempt limit.",
		}),
		CompletionFabrications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_completion_fabrications_total",
			Help: "Total files fabricated by the completion guarantee.",
		}),
	}
	reg.MustRegister(m.ToolCalls, m.ToolFailures, m.DomainsBlocked, m.CompletionFabrications)
	return m
}
