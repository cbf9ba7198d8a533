package metrics

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/sal0-h/snoonu-smart-dispatch/core/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
)

// InfluxSink writes per-tick simulation samples to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing database never blocks a
// run.
func NewInfluxSinkWithFallback(cfg coremetrics.InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTick implements coremetrics.Sink.
func (s *InfluxSink) RecordTick(t coremetrics.TickSample) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sim_tick").
		AddTag("run_id", t.RunID).
		AddTag("strategy", t.Strategy).
		AddField("minute", t.Minute).
		AddField("assigned", t.Assigned).
		AddField("pending", t.Pending).
		AddField("completed", t.Completed).
		AddField("busy_drivers", t.BusyDrivers).
		AddField("total_drivers", t.TotalDrivers).
		SetTime(time.Now())
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}

// RecordRun implements coremetrics.Sink.
func (s *InfluxSink) RecordRun(r coremetrics.RunSample) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sim_run").
		AddTag("run_id", r.RunID).
		AddTag("strategy", r.Strategy).
		AddField("delivered", r.Delivered).
		AddField("total_orders", r.TotalOrders).
		AddField("drivers_activated", r.DriversActivated).
		AddField("total_km", r.TotalKm).
		AddField("avg_delivery_mins", r.AvgDeliveryMins).
		AddField("on_time_rate_pct", r.OnTimeRatePct).
		SetTime(time.Now())
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		s.log.Errorf("influx write: %v", err)
	}
}

// Close implements coremetrics.Sink.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
