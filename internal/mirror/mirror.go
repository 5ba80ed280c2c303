// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mirror copies every recorded row into InfluxDB.
package mirror

import (
	"context"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relabs-tech/wearable_recorder/internal/device"
	"github.com/relabs-tech/wearable_recorder/internal/logging"
	"github.com/relabs-tech/wearable_recorder/internal/recorder"
)

const (
	// SampleMeasurement holds one point per recorded row.
	SampleMeasurement = "wearable_samples"
	// StateMeasurement holds one point per device state change.
	StateMeasurement = "wearable_state"

	connectTimeout = 10 * time.Second
	batchSize      = 500
	flushInterval  = 1000 // milliseconds
)

// PointWriter accepts points for asynchronous delivery. api.WriteAPI
// implements it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Tap is a recorder.Tap writing rows as points.
//
// Device timestamps count microseconds from an arbitrary device epoch, so the
// first sample of each slot is anchored to the wall clock and later samples
// are placed relative to it.
type Tap struct {
	w       PointWriter
	now     func() time.Time
	anchors map[device.Ordinal]anchor
}

type anchor struct {
	wall time.Time
	ts   uint64
}

// NewTap creates a tap writing to w.
func NewTap(w PointWriter) *Tap {
	return &Tap{w: w, now: time.Now, anchors: make(map[device.Ordinal]anchor)}
}

// Row writes one sample point. Field names are the CSV header columns.
func (t *Tap) Row(s recorder.Sample) {
	columns := s.Modality.Header()
	if len(columns) != len(s.Values)+1 {
		return
	}

	fields := make(map[string]interface{}, len(s.Values))
	for i, v := range s.Values {
		fields[columns[i+1]] = v
	}

	t.w.WritePoint(write.NewPoint(
		SampleMeasurement,
		t.tags(s.Slot, s.Label, map[string]string{"modality": s.Modality.String()}),
		fields,
		t.timeOf(s.Slot, s.TS),
	))
}

// DeviceState writes one state point stamped with the wall clock.
func (t *Tap) DeviceState(e recorder.DeviceEvent) {
	fields := map[string]interface{}{"state": string(e.State)}
	if e.Firmware != "" {
		fields["firmware"] = e.Firmware
	}
	t.w.WritePoint(write.NewPoint(StateMeasurement, t.tags(e.Slot, e.Label, nil), fields, t.now()))
}

func (t *Tap) tags(slot device.Ordinal, label string, extra map[string]string) map[string]string {
	tags := map[string]string{"slot": strconv.Itoa(int(slot))}
	if label != "" {
		tags["label"] = label
	}
	for k, v := range extra {
		tags[k] = v
	}
	return tags
}

func (t *Tap) timeOf(slot device.Ordinal, ts uint64) time.Time {
	a, ok := t.anchors[slot]
	if !ok || ts < a.ts {
		// First sample, or the device clock restarted.
		a = anchor{wall: t.now(), ts: ts}
		t.anchors[slot] = a
	}
	return a.wall.Add(time.Duration(ts-a.ts) * time.Microsecond)
}

// Client owns the InfluxDB connection behind a Tap.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	tap      *Tap
}

// Connect pings the server and starts the non-blocking write API. Write
// errors are logged on log.
func Connect(url, token, org, bucket string, log *logging.Logger) (*Client, error) {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(flushInterval).
			SetPrecision(time.Microsecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(org, bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Warn("influxdb write failed", "error", err)
		}
	}()

	log.Info("mirroring samples to InfluxDB", "url", url, "org", org, "bucket", bucket)
	return &Client{client: client, writeAPI: writeAPI, tap: NewTap(writeAPI)}, nil
}

// Tap returns the recorder tap feeding this client.
func (c *Client) Tap() *Tap { return c.tap }

// Close flushes pending points and closes the connection.
func (c *Client) Close() error {
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
