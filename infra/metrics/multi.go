package metrics

import (
	"errors"

	coremetrics "github.com/sal0-h/snoonu-smart-dispatch/core/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
)

// MultiSink fans samples out to several sinks.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordTick(t coremetrics.TickSample) {
	for _, s := range m.sinks {
		s.RecordTick(t)
	}
}

func (m *MultiSink) RecordRun(r coremetrics.RunSample) {
	for _, s := range m.sinks {
		s.RecordRun(r)
	}
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// FromConfig assembles the configured sinks. With nothing enabled it
// returns a NopSink.
func FromConfig(cfg coremetrics.Config, log logger.Logger) (coremetrics.Sink, error) {
	var sinks []coremetrics.Sink
	if cfg.Prometheus.Enabled {
		prom, err := NewPromSink(nil)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
		if cfg.Prometheus.Listen != "" {
			Serve(cfg.Prometheus.Listen, log)
		}
	}
	if cfg.Influx.Enabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.Influx))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
