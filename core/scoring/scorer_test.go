package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// flatOracle makes every leg the same length, so expected costs can be
// computed by hand.
type flatOracle struct {
	km   float64
	mins float64
}

func (f flatOracle) Distance(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	return f.km
}

func (f flatOracle) TravelTime(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	return f.mins
}

func testScorer(o geo.Oracle) Scorer {
	return Scorer{
		Oracle:          o,
		WDistance:       1.0,
		WDelay:          1.5,
		BundleDiscount:  0.25,
		MaxDeliveryMins: 52,
		ServiceTimeMins: 5,
		Penalties: map[model.VehicleClass]float64{
			model.VehicleMotorbike: 1.0,
			model.VehicleBike:      1.2,
			model.VehicleCar:       1.4,
		},
	}
}

func mkOrder(id string, created float64, estimated int) *model.Order {
	return model.NewOrder(id,
		model.Coordinate{Lat: 25.29, Lng: 51.53},
		model.Coordinate{Lat: 25.30, Lng: 51.54},
		created, created+float64(estimated), estimated)
}

func mkDriver(class model.VehicleClass) *model.Driver {
	return model.NewDriver("d1", model.Coordinate{Lat: 25.285, Lng: 51.531}, class, 2, 1020)
}

func singleBundle(o *model.Order, totalKm float64) model.Bundle {
	return model.Bundle{
		Orders:  []*model.Order{o},
		Stops:   []model.Stop{model.PickupStop(o), model.DropoffStop(o)},
		TotalKm: totalKm,
	}
}

func TestBidRejectsOverCapacity(t *testing.T) {
	s := testScorer(flatOracle{km: 1, mins: 2})
	d := mkDriver(model.VehicleMotorbike)
	d.Capacity = 1
	o1, o2 := mkOrder("o1", 1020, 20), mkOrder("o2", 1020, 20)
	b := model.Bundle{
		Orders: []*model.Order{o1, o2},
		Stops: []model.Stop{
			model.PickupStop(o1), model.PickupStop(o2),
			model.DropoffStop(o1), model.DropoffStop(o2),
		},
		TotalKm: 4,
	}
	assert.True(t, math.IsInf(s.Bid(d, b, 1020, 0), 1))
}

func TestBidRejectsSLABreach(t *testing.T) {
	// Two legs of 30 minutes each plus 10 of service: 70 > 52.
	s := testScorer(flatOracle{km: 10, mins: 30})
	d := mkDriver(model.VehicleMotorbike)
	o := mkOrder("o1", 1020, 20)
	assert.True(t, math.IsInf(s.Bid(d, o2bundle(o), 1020, 0), 1))
}

func o2bundle(o *model.Order) model.Bundle { return singleBundle(o, 20) }

func TestBidSingleOrderCost(t *testing.T) {
	// Legs of 2 km / 3 min: dropoff 3+5+3+5 = 16 mins after now, no delay.
	s := testScorer(flatOracle{km: 2, mins: 3})
	d := mkDriver(model.VehicleMotorbike)
	o := mkOrder("o1", 1020, 20)
	got := s.Bid(d, singleBundle(o, 4), 1020, 0)
	// cost = W_DIST * 4km, one order, no discount.
	assert.InDelta(t, 4.0, got, 1e-9)
}

func TestBidChargesCappedDelay(t *testing.T) {
	// Dropoff lands 16 minutes after now; order created 30 minutes ago with
	// a 10-minute estimate: 46 min < 52 SLA, delay 36 capped at 20.
	s := testScorer(flatOracle{km: 2, mins: 3})
	d := mkDriver(model.VehicleMotorbike)
	o := mkOrder("o1", 990, 10)
	got := s.Bid(d, singleBundle(o, 4), 1020, 0)
	assert.InDelta(t, 4.0+1.5*20, got, 1e-9)
}

func TestBidVehiclePenaltyOrdering(t *testing.T) {
	s := testScorer(flatOracle{km: 2, mins: 3})
	o := mkOrder("o1", 1020, 20)
	b := singleBundle(o, 4)

	moto := s.Bid(mkDriver(model.VehicleMotorbike), b, 1020, 0)
	bike := s.Bid(mkDriver(model.VehicleBike), b, 1020, 0)
	car := s.Bid(mkDriver(model.VehicleCar), b, 1020, 0)

	assert.Less(t, moto, bike)
	assert.Less(t, bike, car)
	assert.InDelta(t, moto*1.2, bike, 1e-9)
	assert.InDelta(t, moto*1.4, car, 1e-9)
}

func TestBidBundleDiscount(t *testing.T) {
	s := testScorer(flatOracle{km: 1, mins: 1.5})
	d := mkDriver(model.VehicleMotorbike)
	o1, o2 := mkOrder("o1", 1020, 30), mkOrder("o2", 1020, 30)
	b := model.Bundle{
		Orders: []*model.Order{o1, o2},
		Stops: []model.Stop{
			model.PickupStop(o1), model.PickupStop(o2),
			model.DropoffStop(o1), model.DropoffStop(o2),
		},
		TotalKm: 4,
	}
	got := s.Bid(d, b, 1020, 0)
	// base 4, per order 2, discount 1-0.25 = 0.75.
	assert.InDelta(t, 4.0/2*0.75, got, 1e-9)
}

func TestBidPricesMarginalDistance(t *testing.T) {
	s := testScorer(flatOracle{km: 2, mins: 3})
	d := mkDriver(model.VehicleMotorbike)
	o := mkOrder("o1", 1020, 20)
	b := singleBundle(o, 6)

	fromIdle := s.Bid(d, b, 1020, 0)
	fromBusy := s.Bid(d, b, 1020, 5)
	require.False(t, math.IsInf(fromIdle, 1))
	assert.InDelta(t, 6.0, fromIdle, 1e-9)
	assert.InDelta(t, 1.0, fromBusy, 1e-9, "only the added km are billed")
}

func TestBidDiscountClampsAtZero(t *testing.T) {
	s := testScorer(flatOracle{km: 0.5, mins: 1})
	s.BundleDiscount = 0.6
	d := mkDriver(model.VehicleMotorbike)
	d.Capacity = 3
	var orders []*model.Order
	var stops []model.Stop
	for _, id := range []string{"o1", "o2", "o3"} {
		o := mkOrder(id, 1020, 20)
		orders = append(orders, o)
		stops = append(stops, model.PickupStop(o))
	}
	for _, o := range orders {
		stops = append(stops, model.DropoffStop(o))
	}
	b := model.Bundle{Orders: orders, Stops: stops, TotalKm: 3}
	// discount factor 1 - 0.6*2 < 0 clamps to 0.
	assert.Zero(t, s.Bid(d, b, 1020, 0))
}
