package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOrders(t *testing.T) {
	path := write(t, "orders.csv",
		"order_id,pickup_lat,pickup_lng,dropoff_lat,dropoff_lng,created_time,deadline,estimated_delivery_time_min\n"+
			"o1,25.285,51.531,25.300,51.545,17:00:00,17:45:00,20\n"+
			"o2,25.290,51.535,25.310,51.555,17:05:30,,25\n")

	orders, err := LoadOrders(path)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "o1", orders[0].ID)
	assert.InDelta(t, 1020, orders[0].CreatedAt, 1e-9)
	assert.InDelta(t, 1065, orders[0].Deadline, 1e-9)
	assert.Equal(t, 20, orders[0].EstimatedMins)
	assert.Equal(t, model.OrderPending, orders[0].Status)

	// Missing deadline derives from created time plus the estimate.
	assert.InDelta(t, 1025.5+25, orders[1].Deadline, 1e-9)
}

func TestLoadOrdersSemicolonDelimited(t *testing.T) {
	path := write(t, "orders.csv",
		"order_id;pickup_lat;pickup_lng;dropoff_lat;dropoff_lng;created_time;estimated_delivery_time_min\n"+
			"o1;25.285;51.531;25.300;51.545;17:00:00;20\n")

	orders, err := LoadOrders(path)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.InDelta(t, 51.531, orders[0].Pickup.Lng, 1e-9)
}

func TestLoadOrdersSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "order_id,pickup_lat\no1,25.285\n",
		"bad coordinate": "order_id,pickup_lat,pickup_lng,dropoff_lat,dropoff_lng,created_time,estimated_delivery_time_min\n" +
			"o1,not-a-float,51.531,25.300,51.545,17:00:00,20\n",
		"bad timestamp": "order_id,pickup_lat,pickup_lng,dropoff_lat,dropoff_lng,created_time,estimated_delivery_time_min\n" +
			"o1,25.285,51.531,25.300,51.545,banana,20\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOrders(write(t, "orders.csv", content))
			var schema *SchemaError
			assert.ErrorAs(t, err, &schema)
		})
	}
}

func TestLoadDrivers(t *testing.T) {
	path := write(t, "couriers.csv",
		"driver_id,start_lat,start_lng,vehicle_type,capacity,available_from\n"+
			"d1,25.285,51.531,motorbike,3,17:00:00\n"+
			"d2,25.290,51.535,Car,,17:30:00\n")

	drivers, err := LoadDrivers(path)
	require.NoError(t, err)
	require.Len(t, drivers, 2)

	assert.Equal(t, model.VehicleMotorbike, drivers[0].Vehicle)
	assert.Equal(t, 3, drivers[0].Capacity)
	assert.Equal(t, model.VehicleCar, drivers[1].Vehicle)
	assert.Equal(t, model.DefaultCapacity, drivers[1].Capacity)
	assert.InDelta(t, 1050, drivers[1].AvailableFrom, 1e-9)
	assert.Equal(t, model.DriverIdle, drivers[1].Status)
}

func TestLoadDriversRejectsUnknownVehicle(t *testing.T) {
	path := write(t, "couriers.csv",
		"driver_id,start_lat,start_lng,vehicle_type,available_from\n"+
			"d1,25.285,51.531,skateboard,17:00:00\n")
	_, err := LoadDrivers(path)
	var schema *SchemaError
	assert.ErrorAs(t, err, &schema)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadOrders(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("data")
	pairs := r.List()
	require.NotEmpty(t, pairs)
	for i := 1; i < len(pairs); i++ {
		assert.Less(t, pairs[i-1].Name, pairs[i].Name, "sorted by name")
	}

	_, _, err := r.Load("no-such-dataset")
	assert.ErrorIs(t, err, ErrUnknownDataset)
}
