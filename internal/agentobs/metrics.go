package agentobs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/haasonsaas/agentcore/internal/agentevent"
	"github.com/haasonsaas/agentcore/pkg/agentmsg"
)

// Metrics tracks run/turn/tool volume and latency as Prometheus
// collectors, registered against the given Registerer so a caller
// controls which registry (the global default or a scoped test registry)
// they land in.
type Metrics struct {
	RunsStarted   prometheus.Counter
	RunsCompleted *prometheus.CounterVec // label: stop_reason

	TurnDuration *prometheus.HistogramVec // label: (none)

	ToolExecutions *prometheus.CounterVec   // labels: tool_name, status (success|error)
	ToolDuration   *prometheus.HistogramVec // label: tool_name

	AdvisorFired  *prometheus.CounterVec // label: advisor_name
	AdvisorErrors *prometheus.CounterVec // label: advisor_name

	mu          sync.Mutex
	turnStarted map[string]time.Time
	toolStarted map[string]time.Time
}

// NewMetrics registers the collectors against reg and returns a Metrics
// ready to consume an event stream. Pass prometheus.DefaultRegisterer for
// production use, or a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_runs_started_total",
			Help: "Total number of agent runs started.",
		}),
		RunsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_runs_completed_total",
			Help: "Total number of agent runs completed, by stop reason.",
		}, []string{"stop_reason"}),
		TurnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_turn_duration_seconds",
			Help:    "Wall-clock duration of one turn_start..turn_end cycle.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{}),
		ToolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_executions_total",
			Help: "Total tool executions, by tool name and outcome.",
		}, []string{"tool_name", "status"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_tool_duration_seconds",
			Help:    "Duration of a tool's Execute call, by tool name.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool_name"}),
		AdvisorFired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_advisor_fired_total",
			Help: "Total advisor runs fired, by advisor name.",
		}, []string{"advisor_name"}),
		AdvisorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_advisor_errors_total",
			Help: "Total advisor failures, by advisor name.",
		}, []string{"advisor_name"}),
		turnStarted: make(map[string]time.Time),
		toolStarted: make(map[string]time.Time),
	}
}

// Emit implements agentevent.Sink.
func (m *Metrics) Emit(e agentevent.Event) {
	switch e.Type {
	case agentevent.AgentStart:
		m.RunsStarted.Inc()
	case agentevent.AgentEnd:
		m.RunsCompleted.WithLabelValues(stopReason(e)).Inc()
	case agentevent.TurnStart:
		m.mu.Lock()
		m.turnStarted[turnKey(e.RunID, e.TurnIndex)] = time.Now()
		m.mu.Unlock()
	case agentevent.TurnEnd:
		key := turnKey(e.RunID, e.TurnIndex)
		m.mu.Lock()
		start, ok := m.turnStarted[key]
		delete(m.turnStarted, key)
		m.mu.Unlock()
		if ok {
			m.TurnDuration.WithLabelValues().Observe(time.Since(start).Seconds())
		}
	case agentevent.ToolExecutionStart:
		if e.Tool != nil {
			m.mu.Lock()
			m.toolStarted[e.Tool.ToolCallID] = time.Now()
			m.mu.Unlock()
		}
	case agentevent.ToolExecutionEnd:
		if e.Tool == nil {
			return
		}
		status := "success"
		if e.Tool.IsError {
			status = "error"
		}
		m.ToolExecutions.WithLabelValues(e.Tool.ToolName, status).Inc()
		m.mu.Lock()
		start, ok := m.toolStarted[e.Tool.ToolCallID]
		delete(m.toolStarted, e.Tool.ToolCallID)
		m.mu.Unlock()
		if ok {
			m.ToolDuration.WithLabelValues(e.Tool.ToolName).Observe(time.Since(start).Seconds())
		}
	case agentevent.AdvisorStart:
		if e.Advisor != nil {
			m.AdvisorFired.WithLabelValues(e.Advisor.AdvisorName).Inc()
		}
	case agentevent.AdvisorError:
		if e.Advisor != nil {
			m.AdvisorErrors.WithLabelValues(e.Advisor.AdvisorName).Inc()
		}
	}
}

// stopReason reports the StopReason of the last assistant message in a
// completed run's new messages, for labeling the runs_completed counter.
func stopReason(e agentevent.Event) string {
	for i := len(e.NewMessages) - 1; i >= 0; i-- {
		if am, ok := e.NewMessages[i].(agentmsg.AssistantMessage); ok {
			return string(am.StopReason)
		}
	}
	return "unknown"
}
