package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/sal0-h/snoonu-smart-dispatch/core/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
)

type fakeSink struct {
	ticks  int
	runs   int
	closed bool
}

func (f *fakeSink) RecordTick(coremetrics.TickSample) { f.ticks++ }
func (f *fakeSink) RecordRun(coremetrics.RunSample)   { f.runs++ }
func (f *fakeSink) Close() error                      { f.closed = true; return nil }

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &fakeSink{}, &fakeSink{}
	m := NewMultiSink(a, b)

	m.RecordTick(coremetrics.TickSample{})
	m.RecordRun(coremetrics.RunSample{})
	require.NoError(t, m.Close())

	assert.Equal(t, 1, a.ticks)
	assert.Equal(t, 1, b.ticks)
	assert.Equal(t, 1, a.runs)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSink(reg)
	require.NoError(t, err)

	s.RecordTick(coremetrics.TickSample{Strategy: "baseline", Pending: 3, BusyDrivers: 2, Assigned: 1})
	s.RecordTick(coremetrics.TickSample{Strategy: "baseline", Pending: 1, BusyDrivers: 2, Assigned: 2})
	s.RecordRun(coremetrics.RunSample{Strategy: "baseline", TotalKm: 12.5})

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				byName[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				byName[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, byName["sim_pending_orders"], "gauge holds the latest value")
	assert.Equal(t, 3.0, byName["sim_orders_assigned_total"], "counter accumulates")
	assert.Equal(t, 12.5, byName["sim_fleet_distance_km"])
}

func TestFromConfigDefaultsToNop(t *testing.T) {
	s, err := FromConfig(coremetrics.Config{}, logger.NopLogger{})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)
}
