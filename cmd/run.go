package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sal0-h/snoonu-smart-dispatch/config"
	"github.com/sal0-h/snoonu-smart-dispatch/core/dispatch"
	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/kpi"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
	"github.com/sal0-h/snoonu-smart-dispatch/core/sim"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
	inframetrics "github.com/sal0-h/snoonu-smart-dispatch/infra/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/osrm"
	"github.com/sal0-h/snoonu-smart-dispatch/internal/dataset"
	"github.com/sal0-h/snoonu-smart-dispatch/pkg/export"
)

var (
	datasetName  string
	ordersPath   string
	couriersPath string
	strategyName string
	listDatasets bool
	outJSON      string
	outCSV       string
	orderLogPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation on a dataset",
	RunE:  runSimulation,
}

func init() {
	runCmd.Flags().StringVar(&datasetName, "dataset", "", "named dataset pair to load")
	runCmd.Flags().StringVar(&ordersPath, "orders", "", "orders CSV (overrides --dataset)")
	runCmd.Flags().StringVar(&couriersPath, "couriers", "", "couriers CSV (overrides --dataset)")
	runCmd.Flags().StringVar(&strategyName, "strategy", "all", "baseline, sequential, combinatorial, adaptive or all")
	runCmd.Flags().BoolVar(&listDatasets, "list-datasets", false, "list known dataset pairs and exit")
	runCmd.Flags().StringVar(&outJSON, "out-json", "", "write results JSON to file")
	runCmd.Flags().StringVar(&outCSV, "out-csv", "", "write results CSV to file")
	runCmd.Flags().StringVar(&orderLogPath, "order-log", "", "write per-order diagnostic CSV to file")
	rootCmd.AddCommand(runCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("simulator")

	if listDatasets {
		return printDatasets(cfg)
	}

	var drivers []*model.Driver
	var orders []*model.Order
	switch {
	case ordersPath != "" && couriersPath != "":
		orders, err = dataset.LoadOrders(ordersPath)
		if err != nil {
			return err
		}
		drivers, err = dataset.LoadDrivers(couriersPath)
		if err != nil {
			return err
		}
	case datasetName != "":
		drivers, orders, err = dataset.NewRegistry(cfg.Data.Dir).Load(datasetName)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either --dataset or both --orders and --couriers are required")
	}

	strategies := dispatch.Strategies
	if strategyName != "all" {
		st, err := dispatch.ParseStrategy(strategyName)
		if err != nil {
			return err
		}
		strategies = []dispatch.Strategy{st}
	}

	oracle := buildOracle(cfg, drivers, orders, log)
	sink, err := inframetrics.FromConfig(cfg.Metrics, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Errorf("metrics sink close: %v", err)
		}
	}()

	var results []kpi.Results
	for _, st := range strategies {
		s, err := sim.New(cfg, oracle, cloneDrivers(drivers), cloneOrders(orders), log, sink, nil)
		if err != nil {
			return err
		}
		res, err := s.Run(ctx, st)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	printResults(cmd, results)
	return writeArtifacts(results)
}

// buildOracle selects the distance backend and, for road distance, warms
// the route cache with every location in the dataset.
func buildOracle(cfg *config.Config, drivers []*model.Driver, orders []*model.Order, log logger.Logger) geo.Oracle {
	if !cfg.Oracle.UseRoadDistance {
		return geo.Haversine{AvgSpeedKmh: cfg.Oracle.AvgSpeedKmh}
	}
	client := osrm.New(osrm.Config{
		BaseURL:      cfg.Oracle.OSRMURL,
		Timeout:      time.Duration(cfg.Oracle.TimeoutSeconds * float64(time.Second)),
		CacheSize:    cfg.Oracle.CacheSize,
		DetourFactor: cfg.Oracle.DetourFactor,
		AvgSpeedKmh:  cfg.Oracle.AvgSpeedKmh,
	}, log)
	points := make([]model.Coordinate, 0, len(drivers)+2*len(orders))
	for _, d := range drivers {
		points = append(points, d.Origin)
	}
	for _, o := range orders {
		points = append(points, o.Pickup, o.Dropoff)
	}
	client.Warm(points)
	return client
}

func cloneDrivers(in []*model.Driver) []*model.Driver {
	out := make([]*model.Driver, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

func cloneOrders(in []*model.Order) []*model.Order {
	out := make([]*model.Order, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

func printResults(cmd *cobra.Command, results []kpi.Results) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "strategy\tdelivered\tdrivers\tdistance km\tavg min\tmedian min\tp95 min\tmax min\torders/driver\ton-time %\t>45m\t>60m\tutil %")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d/%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t%d\t%.2f\n",
			r.Strategy, r.OrdersDelivered, r.TotalOrders, r.DriversActivated,
			r.TotalKm, r.AvgDeliveryMins, r.MedianDeliveryMins, r.P95DeliveryMins,
			r.MaxDeliveryMins, r.OrdersPerDriver, r.OnTimeRatePct,
			r.LateOver45, r.LateOver60, r.FleetUtilizationPct)
	}
	tw.Flush()
}

func writeArtifacts(results []kpi.Results) error {
	if outJSON != "" {
		if err := writeFile(outJSON, func(f *os.File) error { return export.WriteJSON(f, results) }); err != nil {
			return err
		}
	}
	if outCSV != "" {
		if err := writeFile(outCSV, func(f *os.File) error { return export.WriteCSV(f, results) }); err != nil {
			return err
		}
	}
	if orderLogPath != "" {
		var records []kpi.DeliveryRecord
		for _, r := range results {
			records = append(records, r.Deliveries...)
		}
		if err := writeFile(orderLogPath, func(f *os.File) error { return export.WriteOrderLog(f, records) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

func printDatasets(cfg *config.Config) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range dataset.NewRegistry(cfg.Data.Dir).List() {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Description)
	}
	return tw.Flush()
}
