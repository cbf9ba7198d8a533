// Package dataset ingests order and courier CSV files and names known
// file pairs. Schema problems fail fast, before the simulation starts.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// SchemaError reports a missing column, unparseable coordinate or malformed
// timestamp in an input file.
type SchemaError struct {
	File   string
	Line   int
	Detail string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Detail)
}

// ErrUnknownDataset reports a dataset name missing from the registry.
var ErrUnknownDataset = errors.New("unknown dataset")

// Pair names the two files of one dataset.
type Pair struct {
	Name        string
	Orders      string
	Couriers    string
	Description string
}

// Registry holds the known dataset pairs under a data directory.
type Registry struct {
	dir   string
	pairs map[string]Pair
}

// NewRegistry builds the default registry rooted at dir.
func NewRegistry(dir string) *Registry {
	r := &Registry{dir: dir, pairs: make(map[string]Pair)}
	for _, p := range []Pair{
		{Name: "clean_100", Orders: "doha_orders_clean_100.csv", Couriers: "doha_couriers_clean_100.csv", Description: "100 orders, clean urban scenario"},
		{Name: "clean", Orders: "doha_orders_clean.csv", Couriers: "doha_couriers_clean.csv", Description: "Full clean urban scenario"},
		{Name: "hybrid_100", Orders: "doha_orders_hybrid_100.csv", Couriers: "doha_couriers_hybrid_100.csv", Description: "100 orders, mixed urban/suburban"},
		{Name: "hybrid", Orders: "doha_orders_hybrid.csv", Couriers: "doha_couriers_hybrid.csv", Description: "Full mixed urban/suburban scenario"},
		{Name: "spread_100", Orders: "doha_orders_spread_100.csv", Couriers: "doha_couriers_spread_100.csv", Description: "100 orders, geographically spread"},
		{Name: "spread", Orders: "doha_orders_spread.csv", Couriers: "doha_couriers_spread.csv", Description: "Full geographically spread scenario"},
		{Name: "stress", Orders: "doha_orders_stress.csv", Couriers: "doha_couriers_stress.csv", Description: "High-volume stress test scenario"},
	} {
		r.pairs[p.Name] = p
	}
	return r
}

// List returns the known pairs sorted by name.
func (r *Registry) List() []Pair {
	out := make([]Pair, 0, len(r.pairs))
	for _, p := range r.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load reads the named pair.
func (r *Registry) Load(name string) ([]*model.Driver, []*model.Order, error) {
	p, ok := r.pairs[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownDataset, name)
	}
	orders, err := LoadOrders(filepath.Join(r.dir, p.Orders))
	if err != nil {
		return nil, nil, err
	}
	drivers, err := LoadDrivers(filepath.Join(r.dir, p.Couriers))
	if err != nil {
		return nil, nil, err
	}
	return drivers, orders, nil
}

// readTable reads a delimited file into header-keyed rows. The delimiter is
// sniffed from the header line: comma, semicolon or tab.
func readTable(path string) (header map[string]int, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, _ := io.ReadFull(f, head)
	delim := ','
	for _, b := range head[:n] {
		if b == '\n' {
			break
		}
		if b == ';' {
			delim = ';'
			break
		}
		if b == '\t' {
			delim = '\t'
			break
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(f)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, &SchemaError{File: path, Detail: err.Error()}
	}
	if len(records) == 0 {
		return nil, nil, &SchemaError{File: path, Detail: "empty file"}
	}
	header = make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return header, records[1:], nil
}

type rowReader struct {
	file   string
	header map[string]int
	row    []string
	line   int
	err    error
}

func (r *rowReader) fail(detail string) {
	if r.err == nil {
		r.err = &SchemaError{File: r.file, Line: r.line, Detail: detail}
	}
}

func (r *rowReader) str(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.row) {
		r.fail(fmt.Sprintf("missing column %q", col))
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) optional(col string) (string, bool) {
	i, ok := r.header[col]
	if !ok || i >= len(r.row) {
		return "", false
	}
	return strings.TrimSpace(r.row[i]), true
}

func (r *rowReader) coord(latCol, lngCol string) model.Coordinate {
	lat, err := strconv.ParseFloat(r.str(latCol), 64)
	if err != nil {
		r.fail(fmt.Sprintf("unparseable coordinate %q", latCol))
	}
	lng, err := strconv.ParseFloat(r.str(lngCol), 64)
	if err != nil {
		r.fail(fmt.Sprintf("unparseable coordinate %q", lngCol))
	}
	return model.Coordinate{Lat: lat, Lng: lng}
}

func (r *rowReader) clock(col string) float64 {
	t, err := model.ParseClock(r.str(col))
	if err != nil {
		r.fail(fmt.Sprintf("malformed timestamp in %q", col))
	}
	return t
}

func (r *rowReader) intval(col string) int {
	v, err := strconv.Atoi(r.str(col))
	if err != nil {
		r.fail(fmt.Sprintf("unparseable integer in %q", col))
	}
	return v
}

// LoadOrders reads an orders CSV. The deadline column is optional; when
// absent it is derived as created_time plus the estimated duration.
func LoadOrders(path string) ([]*model.Order, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	orders := make([]*model.Order, 0, len(rows))
	for i, row := range rows {
		r := &rowReader{file: path, header: header, row: row, line: i + 2}
		id := r.str("order_id")
		pickup := r.coord("pickup_lat", "pickup_lng")
		dropoff := r.coord("dropoff_lat", "dropoff_lng")
		created := r.clock("created_time")
		estimated := r.intval("estimated_delivery_time_min")
		deadline := created + float64(estimated)
		if raw, ok := r.optional("deadline"); ok && raw != "" {
			if d, err := model.ParseClock(raw); err == nil {
				deadline = d
			} else {
				r.fail("malformed timestamp in \"deadline\"")
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		orders = append(orders, model.NewOrder(id, pickup, dropoff, created, deadline, estimated))
	}
	return orders, nil
}

// LoadDrivers reads a couriers CSV. Capacity is optional and defaults to 2.
func LoadDrivers(path string) ([]*model.Driver, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	drivers := make([]*model.Driver, 0, len(rows))
	for i, row := range rows {
		r := &rowReader{file: path, header: header, row: row, line: i + 2}
		id := r.str("driver_id")
		origin := r.coord("start_lat", "start_lng")
		vehicle, err := model.ParseVehicleClass(r.str("vehicle_type"))
		if err != nil {
			r.fail(err.Error())
		}
		capacity := model.DefaultCapacity
		if raw, ok := r.optional("capacity"); ok && raw != "" {
			c, convErr := strconv.Atoi(raw)
			if convErr != nil {
				r.fail("unparseable integer in \"capacity\"")
			} else {
				capacity = c
			}
		}
		available := r.clock("available_from")
		if r.err != nil {
			return nil, r.err
		}
		drivers = append(drivers, model.NewDriver(id, origin, vehicle, capacity, available))
	}
	return drivers, nil
}
