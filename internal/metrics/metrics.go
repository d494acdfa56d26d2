package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

type Metrics struct {
	PollTicks      prometheus.Counter
	PollErrors     *prometheus.CounterVec
	PollDuration   prometheus.Histogram
	EventsReported *prometheus.CounterVec
	Commands       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ctfdbot_poll_ticks_total",
			Help: "Poll ticks that ran against the store.",
		}),
		PollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctfdbot_poll_errors_total",
			Help: "Failed polls by tracker.",
		}, []string{"tracker"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctfdbot_poll_duration_seconds",
			Help:    "Duration of a poll tick.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		EventsReported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctfdbot_events_reported_total",
			Help: "Events delivered to the channel by kind.",
		}, []string{"kind"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctfdbot_commands_total",
			Help: "Chat commands handled by name.",
		}, []string{"command"}),
	}
	reg.MustRegister(m.PollTicks, m.PollErrors, m.PollDuration, m.EventsReported, m.Commands)
	return m
}

// NewRegistry returns a registry carrying the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(func(reg *prometheus.Registry) *Metrics { return New(reg) }),
)
