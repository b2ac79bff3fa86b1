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

// Command cursorsmooth re-renders a captured video with a
// kinematically-smoothed cursor overlay composited in at the raw
// capture's own timestamps.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"cursorsmooth/pkg/config"
	"cursorsmooth/pkg/geometry"
	"cursorsmooth/pkg/log"
	"cursorsmooth/pkg/pipeline"
)

var (
	inputPath    string
	outputPath   string
	spritePath   string
	samplesPath  string
	configPath   string
	logLevelFlag string
)

func main() {
	exitCode := 0

	root := &cobra.Command{
		Use:   "cursorsmooth",
		Short: "Re-render a captured video with a smoothed cursor overlay",
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := run(cmd.Context())
			exitCode = code
			return err
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&inputPath, "input", "", "source video path (required)")
	root.Flags().StringVar(&outputPath, "output", "", "destination video path (required)")
	root.Flags().StringVar(&spritePath, "sprite", "", "cursor sprite image path (required)")
	root.Flags().StringVar(&samplesPath, "samples", "", "raw cursor sample CSV: x,y,timestamp_ms per row (required)")
	root.Flags().StringVar(&configPath, "config", "", "job config YAML path (optional, defaults applied otherwise)")
	root.Flags().StringVar(&logLevelFlag, "log-level", "", "off|error|warning|info|debug|trace (overrides config)")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = pipeline.StatusInvalidInput
		}
	}
	os.Exit(exitCode)
}

func run(ctx context.Context) (int, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return pipeline.StatusInvalidInput, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if logLevelFlag != "" {
		cfg.LogLevel = log.ParseLevel(logLevelFlag)
	}

	samples, err := loadSamples(samplesPath)
	if err != nil {
		return pipeline.StatusInvalidInput, fmt.Errorf("load samples: %w", err)
	}

	progress := func(p float64) {
		fmt.Fprintf(os.Stderr, "progress: %.2f\n", p)
	}

	return pipeline.Process(ctx, inputPath, outputPath, spritePath, samples, cfg, progress)
}

// loadSamples reads a CSV of raw cursor samples, one x,y,timestamp_ms row
// per line. A header row (or any other non-numeric row) is tolerated by
// skipping it rather than failing the whole job over a cosmetic label.
func loadSamples(path string) ([]geometry.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	samples := make([]geometry.Sample, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		x, errX := strconv.ParseFloat(row[0], 64)
		y, errY := strconv.ParseFloat(row[1], 64)
		t, errT := strconv.ParseFloat(row[2], 64)
		if errX != nil || errY != nil || errT != nil {
			continue
		}
		samples = append(samples, geometry.Sample{X: x, Y: y, TimestampMs: t})
	}
	return samples, nil
}
