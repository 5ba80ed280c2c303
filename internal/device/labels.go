// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Labels attaches human names to ordinals, e.g. which arm a band is worn on.
// The zero value has no labels.
type Labels map[Ordinal]string

type labelFile struct {
	Labels map[int]string `yaml:"labels"`
}

// LoadLabels reads a YAML file of the form:
//
//	labels:
//	  0: left-forearm
//	  1: right-forearm
//
// An empty path yields no labels.
func LoadLabels(path string) (Labels, error) {
	if path == "" {
		return Labels{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label file: %w", err)
	}

	return ParseLabels(data)
}

// ParseLabels decodes the YAML label document.
func ParseLabels(data []byte) (Labels, error) {
	var f labelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLabels, err)
	}

	labels := make(Labels, len(f.Labels))
	for ord, name := range f.Labels {
		if ord < 0 {
			return nil, fmt.Errorf("%w: negative ordinal %d", ErrInvalidLabels, ord)
		}
		labels[Ordinal(ord)] = name
	}
	return labels, nil
}

// Label returns the label for ord, or "" if none is set.
func (l Labels) Label(ord Ordinal) string {
	return l[ord]
}

// Name formats ord for log lines: "1" or "1 (right-forearm)".
func (l Labels) Name(ord Ordinal) string {
	if label := l[ord]; label != "" {
		return fmt.Sprintf("%d (%s)", ord, label)
	}
	return ord.String()
}
