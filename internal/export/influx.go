// Package export ships rush timelines to InfluxDB so a load test can be
// graphed next to the target's own metrics.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/studiowebux/blitzbar/internal/result"
)

// DefaultMeasurement is used when Config.Measurement is empty
const DefaultMeasurement = "blitz_rush"

// Config addresses an InfluxDB v2 bucket
type Config struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Enabled reports whether enough is set to export
func (c Config) Enabled() bool {
	return c.URL != "" && c.Bucket != ""
}

// PointWriter is the part of the blocking write API the exporter needs
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// RunInfo tags every exported point
type RunInfo struct {
	RunID   string
	JobID   string
	Region  string
	Profile string
	Started time.Time
}

// Exporter writes timeline points as one measurement
type Exporter struct {
	client      influxdb2.Client
	writer      PointWriter
	measurement string
}

// New connects to the bucket described by cfg
func New(cfg Config) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("influx export needs a URL and a bucket")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	e := NewWithWriter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Measurement)
	e.client = client
	return e, nil
}

// NewWithWriter exports through w
func NewWithWriter(w PointWriter, measurement string) *Exporter {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return &Exporter{writer: w, measurement: measurement}
}

// Points converts a timeline into line protocol points. Samples without a
// timestamp are placed one second apart from info.Started.
func (e *Exporter) Points(info RunInfo, r *result.RushResult) []*write.Point {
	if r == nil {
		return nil
	}
	region := info.Region
	if region == "" {
		region = r.Region
	}

	points := make([]*write.Point, 0, len(r.Timeline))
	for i, tp := range r.Timeline {
		ts := info.Started.Add(time.Duration(i) * time.Second)
		if tp.Timestamp != nil {
			ts = *tp.Timestamp
		}
		p := influxdb2.NewPointWithMeasurement(e.measurement).
			AddTag("run_id", info.RunID).
			AddTag("job_id", info.JobID).
			AddField("duration", tp.Duration).
			AddField("total", tp.Total).
			AddField("hits", tp.Hits).
			AddField("errors", tp.Errors).
			AddField("timeouts", tp.Timeouts).
			AddField("volume", tp.Volume).
			AddField("tx_bytes", tp.TxBytes).
			AddField("rx_bytes", tp.RxBytes).
			SetTime(ts)
		if region != "" {
			p.AddTag("region", region)
		}
		if info.Profile != "" {
			p.AddTag("profile", info.Profile)
		}
		points = append(points, p)
	}
	return points
}

// ExportRush writes the whole timeline and returns how many points were sent
func (e *Exporter) ExportRush(ctx context.Context, info RunInfo, r *result.RushResult) (int, error) {
	points := e.Points(info, r)
	if len(points) == 0 {
		return 0, nil
	}
	if err := e.writer.WritePoint(ctx, points...); err != nil {
		return 0, fmt.Errorf("failed to write %d points to influx: %w", len(points), err)
	}
	return len(points), nil
}

// Close releases the underlying client, if any
func (e *Exporter) Close() {
	if e.client != nil {
		e.client.Close()
	}
}
