package sim

import (
	"fmt"
	"strings"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// CorruptionError reports a broken state invariant: a driver over capacity,
// a picked-up order owned by two drivers, a dropoff ahead of its pickup.
// It is fatal; the simulator aborts and attaches a diagnostic dump.
type CorruptionError struct {
	Minute float64
	Detail string
	Dump   string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("state corruption at %s: %s", model.FormatClock(e.Minute), e.Detail)
}

// dumpState renders the full driver and order state for the diagnostic dump.
func dumpState(drivers []*model.Driver, idx model.Index) string {
	var b strings.Builder
	for _, d := range drivers {
		fmt.Fprintf(&b, "driver %s %s pos=(%.5f,%.5f) orders=%v stop=%d/%d eta=%.1f\n",
			d.ID, d.Status, d.Position.Lat, d.Position.Lng, d.AssignedOrders, d.CurrentStopIndex, len(d.Route), d.ETANextStop)
	}
	for _, o := range idx {
		fmt.Fprintf(&b, "order %s %s created=%.1f pickup=%.1f dropoff=%.1f\n",
			o.ID, o.Status, o.CreatedAt, o.PickupTime, o.DropoffTime)
	}
	return b.String()
}
