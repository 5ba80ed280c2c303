// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/wearable_recorder/internal/config"
	"github.com/relabs-tech/wearable_recorder/internal/imu"
	"github.com/relabs-tech/wearable_recorder/internal/orientation"
	"github.com/relabs-tech/wearable_recorder/internal/transport"
	"github.com/relabs-tech/wearable_recorder/internal/transport/mock"
)

// RunMockConsole prints the poses of simulated armbands, without a broker
// or any files.
func RunMockConsole(ctx context.Context) error {
	cfg := config.Get()
	hub := mock.NewSimulated(cfg.MockDevices, 100*time.Millisecond)
	defer hub.Close()

	l := &poseConsole{w: os.Stdout}
	for {
		if err := hub.Run(ctx, time.Second, l); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// poseConsole prints device events and orientation samples.
type poseConsole struct {
	w io.Writer
}

func (c *poseConsole) OnPair(h transport.Handle, _ uint64, fw transport.FirmwareVersion) {
	fmt.Fprintf(c.w, "[PAIR  %-10s] fw=%s\n", deviceID(h), fw)
}

func (c *poseConsole) OnConnect(h transport.Handle, _ uint64, _ transport.FirmwareVersion) {
	fmt.Fprintf(c.w, "[CONN  %-10s]\n", deviceID(h))
}

func (c *poseConsole) OnDisconnect(h transport.Handle, _ uint64) {
	fmt.Fprintf(c.w, "[DISC  %-10s]\n", deviceID(h))
}

func (c *poseConsole) OnOrientationData(h transport.Handle, ts uint64, q orientation.Quaternion) {
	roll, pitch, yaw := orientation.ToEuler(q).Degrees()
	fmt.Fprintf(c.w, "[POSE  %-10s] ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f  ts=%d\n", deviceID(h), roll, pitch, yaw, ts)
}

func (c *poseConsole) OnEMGData(transport.Handle, uint64, imu.EMG) {}
func (c *poseConsole) OnAccelerometerData(transport.Handle, uint64, imu.Vector3) {}
func (c *poseConsole) OnGyroscopeData(transport.Handle, uint64, imu.Vector3) {}
