package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

func delivered(id, driver string, created, picked, dropped float64) *model.Order {
	o := model.NewOrder(id, model.Coordinate{}, model.Coordinate{}, created, created+30, 30)
	_ = o.MarkAssigned()
	_ = o.MarkPickedUp(picked)
	_ = o.MarkDelivered(dropped)
	return o
}

func TestSnapshotEmpty(t *testing.T) {
	r := NewRecorder(3, 5)
	res := r.Snapshot("run", "baseline")
	assert.Equal(t, 0, res.OrdersDelivered)
	assert.Equal(t, 5, res.Undelivered)
	assert.Equal(t, 3, res.DriversIdle)
	assert.Zero(t, res.AvgDeliveryMins)
}

func TestSnapshotAggregates(t *testing.T) {
	r := NewRecorder(4, 4)
	r.Activate("d1")
	r.Activate("d2")
	r.Activate("d1") // idempotent
	r.AddDistance(10)
	r.AddDistance(6)

	r.RecordDelivery(delivered("o1", "d1", 1020, 1030, 1040), "d1") // 20 min
	r.RecordDelivery(delivered("o2", "d1", 1020, 1040, 1070), "d1") // 50 min
	r.RecordDelivery(delivered("o3", "d2", 1020, 1050, 1090), "d2") // 70 min

	r.RecordTick(2)
	r.RecordTick(1)

	res := r.Snapshot("run", "sequential")
	assert.Equal(t, 3, res.OrdersDelivered)
	assert.Equal(t, 1, res.Undelivered)
	assert.Equal(t, 2, res.DriversActivated)
	assert.InDelta(t, 16.0, res.TotalKm, 1e-9)

	assert.InDelta(t, (20.0+50+70)/3, res.AvgDeliveryMins, 1e-9)
	assert.InDelta(t, 20.0, res.MinDeliveryMins, 1e-9)
	assert.InDelta(t, 70.0, res.MaxDeliveryMins, 1e-9)
	assert.InDelta(t, 50.0, res.MedianDeliveryMins, 1e-9)

	assert.Equal(t, 1, res.OnTime)
	assert.Equal(t, 2, res.LateOver30)
	assert.Equal(t, 2, res.LateOver45)
	assert.Equal(t, 1, res.LateOver60)
	assert.InDelta(t, 100.0/3, res.OnTimeRatePct, 1e-6)

	assert.InDelta(t, 1.5, res.OrdersPerDriver, 1e-9)
	assert.InDelta(t, 1.5, res.ActiveDriverEfficiency, 1e-9)
	// 3 busy driver-ticks out of 8.
	assert.InDelta(t, 37.5, res.FleetUtilizationPct, 1e-9)

	require.Contains(t, res.Assignments, "o3")
	assert.Equal(t, "d2", res.Assignments["o3"])
}

func TestActivationIsMonotone(t *testing.T) {
	r := NewRecorder(3, 3)
	r.Activate("d1")
	before := r.DriversActivated()
	r.Activate("d1")
	assert.Equal(t, before, r.DriversActivated())
	r.Activate("d2")
	assert.Equal(t, before+1, r.DriversActivated())
}
