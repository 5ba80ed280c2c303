// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package wire

import (
	"encoding/json"
	"fmt"
)

// CmdStreamEMG toggles EMG streaming on one device.
const CmdStreamEMG = "stream_emg"

// Command is a request sent back to a bridge.
type Command struct {
	Cmd     string `json:"cmd"`
	Device  string `json:"device"`
	Enabled bool   `json:"enabled"`
}

// StreamEMG builds the command that turns EMG streaming on or off.
func StreamEMG(device string, enabled bool) Command {
	return Command{Cmd: CmdStreamEMG, Device: device, Enabled: enabled}
}

// EncodeCommand marshals a command.
func EncodeCommand(c Command) ([]byte, error) {
	if c.Device == "" {
		return nil, fmt.Errorf("%w: command without device", ErrMalformed)
	}
	return json.Marshal(c)
}

// DecodeCommand parses a command and rejects unknown ones.
func DecodeCommand(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if c.Cmd != CmdStreamEMG {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Cmd)
	}
	if c.Device == "" {
		return Command{}, fmt.Errorf("%w: command without device", ErrMalformed)
	}
	return c, nil
}
