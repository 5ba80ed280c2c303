// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"reflect"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/wearable_recorder/internal/live"
)

func TestStatusLines(t *testing.T) {
	connected := &live.StateMessage{State: "connected"}
	views := []live.DeviceView{
		{Slot: 0, State: connected, Euler: &live.EulerMessage{Roll: 12.4, Pitch: -3.6, Yaw: 179.6}},
		{Slot: 1, State: &live.StateMessage{State: "disconnected"}},
		{Slot: 2},
	}

	want := []string{
		"Wearables: 3",
		"0 C   12   -4  180",
		"1 D  waiting",
		"2 ?  waiting",
	}
	if got := statusLines(views); !reflect.DeepEqual(got, want) {
		t.Errorf("statusLines() = %q, want %q", got, want)
	}

	many := append(views, live.DeviceView{Slot: 3}, live.DeviceView{Slot: 4})
	got := statusLines(many)
	if len(got) != displayLines || got[displayLines-1] != "+3 more" {
		t.Errorf("statusLines(5 devices) = %q", got)
	}
}

func TestRender(t *testing.T) {
	lit := func(img *image1bit.VerticalLSB) int {
		n := 0
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if img.At(x, y) == image1bit.On {
					n++
				}
			}
		}
		return n
	}

	if n := lit(render(nil)); n != 0 {
		t.Errorf("blank frame has %d lit pixels", n)
	}
	if n := lit(render([]string{"Wearables: 2"})); n == 0 {
		t.Error("text frame has no lit pixels")
	}
	if b := render(nil).Bounds(); b.Dx() != displayWidth || b.Dy() != displayHeight {
		t.Errorf("frame bounds = %v", b)
	}
}
