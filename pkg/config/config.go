// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads and validates a single processing job's YAML
// configuration.
package config

import (
	"fmt"
	"io/ioutil"
	"math"

	"gopkg.in/yaml.v2"

	"cursorsmooth/pkg/log"
)

// Config is a single job's tunable parameters.
type Config struct {
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`
	Responsiveness float64 `yaml:"responsiveness"`
	Smoothness     float64 `yaml:"smoothness"`
	FrameRate      float64 `yaml:"frame_rate"`
	LogLevelRaw    string  `yaml:"log_level"`

	// DebugDir, when non-empty and LogLevel is log.LevelTrace, receives
	// the intermediate point-sequence CSV dumps.
	DebugDir string `yaml:"debug_dir"`

	LogLevel log.Level `yaml:"-"`
}

// Default returns a Config with spec-mandated defaults applied.
func Default() Config {
	return Config{
		SmoothingAlpha: 0.5,
		Responsiveness: 0.5,
		Smoothness:     0.5,
		FrameRate:      60,
		LogLevelRaw:    "info",
		LogLevel:       log.LevelInfo,
	}
}

// Load reads and validates a YAML job config from path.
func Load(path string) (Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes into a validated Config, defaulting
// smoothing_alpha to 0.5 and frame_rate to 60 when left zero-valued.
func Parse(raw []byte) (Config, error) {
	c := Default()
	// Override only the fields the YAML document sets to a non-zero value;
	// yaml.v2 leaves absent scalar fields at their zero value, so defaulting
	// happens field-by-field afterwards, same as the teacher's env.yaml. A
	// field explicitly set to zero is treated like an absent one and keeps
	// its default.
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Config{}, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if parsed.SmoothingAlpha != 0 {
		c.SmoothingAlpha = parsed.SmoothingAlpha
	}
	if parsed.Responsiveness != 0 {
		c.Responsiveness = parsed.Responsiveness
	}
	if parsed.Smoothness != 0 {
		c.Smoothness = parsed.Smoothness
	}
	if parsed.FrameRate != 0 {
		c.FrameRate = parsed.FrameRate
	}
	if parsed.LogLevelRaw != "" {
		c.LogLevelRaw = parsed.LogLevelRaw
	}
	if parsed.DebugDir != "" {
		c.DebugDir = parsed.DebugDir
	}

	c.LogLevel = log.ParseLevel(c.LogLevelRaw)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate enforces spec.md §3's "all numeric fields finite; frame_rate
// > 0" plus the [0,1] ranges on the perceptual inputs.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"smoothing_alpha": c.SmoothingAlpha,
		"responsiveness":  c.Responsiveness,
		"smoothness":      c.Smoothness,
		"frame_rate":      c.FrameRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %v", name, v)
		}
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be > 0, got %v", c.FrameRate)
	}
	if c.SmoothingAlpha < 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing_alpha must be in [0,1], got %v", c.SmoothingAlpha)
	}
	if c.Responsiveness < 0 || c.Responsiveness > 1 {
		return fmt.Errorf("responsiveness must be in [0,1], got %v", c.Responsiveness)
	}
	if c.Smoothness < 0 || c.Smoothness > 1 {
		return fmt.Errorf("smoothness must be in [0,1], got %v", c.Smoothness)
	}
	return nil
}
