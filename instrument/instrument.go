// Package instrument observes event flow on rigging observables: PromSink
// counts events by source and name, LogSink logs them. Both attach through
// the AllEvents stream, so instrumenting an entity is one call and one
// cancelable subscription.
package instrument

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tautline/rigging-go"
	"github.com/tautline/rigging-go/internal/evlog"
)

// PromSink counts observed events in a Prometheus counter vector labeled by
// source and event name.
type PromSink struct {
	events *prometheus.CounterVec
}

// NewPromSink registers the counter vector on reg, or on the default
// registerer when reg is nil. Registering two sinks on one registerer
// panics, as duplicate collectors always do; share the sink instead.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rigging",
			Name:      "events_total",
			Help:      "Total entity events observed",
		},
		[]string{"source", "event"},
	)
	reg.MustRegister(events)
	return &PromSink{events: events}
}

// Observe counts every event src triggers, labeled with the given source
// name. Cancel the returned subscription to detach.
func (s *PromSink) Observe(src rigging.Observable, source string) rigging.Subscription {
	return src.On(rigging.AllEvents, func(args ...any) {
		name, ok := eventName(args)
		if !ok {
			return
		}
		s.events.WithLabelValues(source, name).Inc()
	})
}

// LogSink logs observed events at Debug.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink builds a sink on log, or slog.Default when log is nil.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log}
}

// Observe logs every event src triggers. Cancel the returned subscription to
// detach.
func (s *LogSink) Observe(src rigging.Observable, source string) rigging.Subscription {
	return src.On(rigging.AllEvents, func(args ...any) {
		name, ok := eventName(args)
		if !ok {
			return
		}
		s.log.Debug("entity event", evlog.Source(source), evlog.Event(name), slog.Int("args", len(args)-1))
	})
}

func eventName(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	name, ok := args[0].(string)
	return name, ok
}
