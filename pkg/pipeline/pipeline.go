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

// Package pipeline is the orchestrator: it runs the smoothing stages once
// per job, then drives the decode/composite/encode frame loop, converting
// every failure into the numbered status the caller is told about.
package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"cursorsmooth/pkg/align"
	"cursorsmooth/pkg/arclength"
	"cursorsmooth/pkg/compositor"
	"cursorsmooth/pkg/config"
	"cursorsmooth/pkg/ffmpeg"
	"cursorsmooth/pkg/geometry"
	"cursorsmooth/pkg/kinematic"
	"cursorsmooth/pkg/log"
	"cursorsmooth/pkg/oracle"
	"cursorsmooth/pkg/spline"
	"cursorsmooth/pkg/spring"
	"cursorsmooth/pkg/sprite"
)

// Status codes, matching spec.md §6's return-code taxonomy.
const (
	StatusSuccess          = 0
	StatusInvalidInput     = -1
	StatusInvalidEncoding  = -2
	StatusInsufficientData = -3
	StatusMediaIO          = -4
)

// Sentinel errors an errors.Is check can match regardless of the wrapped
// detail, one per §7 error kind.
var (
	ErrInvalidInput     = errors.New("required path or input is absent")
	ErrInvalidEncoding  = errors.New("path is not valid text in the platform encoding")
	ErrInsufficientData = errors.New("smoothing failed to produce any targets")
	ErrMediaIO          = errors.New("video decode/encode/render failed")
)

// minRawSamples is spec.md §4.2's floor below which the smoothing stage
// refuses to run at all.
const minRawSamples = 4

// ffmpegBin and ffprobeBin name the binaries pkg/ffmpeg shells out to.
// Package variables, like the teacher's own exec.Command indirection, so
// tests can point them at a binary with a known-good or known-bad outcome
// without threading a dependency through every call site.
var (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"
)

// Process runs one full cursor-smoothing job: input validation, the
// one-shot smoothing pipeline (spline, arc-length, kinematic, spring),
// then the per-frame decode/composite/encode loop. It returns the §6
// status code alongside an error carrying the human-readable detail; on
// success the error is nil. progress, if non-nil, is invoked with
// monotone non-decreasing values in [0,1] at the milestones spec.md §6
// fixes.
func Process(
	ctx context.Context,
	inputVideoPath, outputVideoPath, cursorSpritePath string,
	rawSamples []geometry.Sample,
	cfg config.Config,
	progress func(float64),
) (int, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	logger := log.New(cfg.LogLevel)

	for _, p := range []struct {
		label, value string
	}{
		{"input video path", inputVideoPath},
		{"output video path", outputVideoPath},
		{"cursor sprite path", cursorSpritePath},
	} {
		if err := validatePath(p.label, p.value); err != nil {
			return statusFor(err), err
		}
	}

	progress(0.0)

	if len(rawSamples) < minRawSamples {
		err := fmt.Errorf("%w: got %d raw samples, need at least %d", ErrInsufficientData, len(rawSamples), minRawSamples)
		return StatusInsufficientData, err
	}

	ff := ffmpeg.New(ffmpegBin, ffprobeBin)
	info, err := ff.Probe(ctx, inputVideoPath)
	if err != nil {
		logger.Warn().Src("pipeline").Msgf("probe failed, falling back to configured frame rate: %v", err)
		info = fallbackStreamInfo(rawSamples, cfg)
	}

	splinePts := spline.Chain(rawSamples, info.FrameRate, cfg.SmoothingAlpha)
	table := arclength.Build(splinePts)
	targets := kinematic.Generate(rawSamples, splinePts, table, info.FrameRate, kinematic.VMax, kinematic.AMax)
	if len(targets) == 0 {
		err := fmt.Errorf("%w: kinematic stage produced no targets from %d samples", ErrInsufficientData, len(rawSamples))
		return StatusInsufficientData, err
	}
	pathPoints := spring.Follow(targets, cfg.Responsiveness, cfg.Smoothness, info.FrameRate)

	progress(0.10)

	if cfg.LogLevel == log.LevelTrace && cfg.DebugDir != "" {
		if err := dumpDebugCSVs(cfg.DebugDir, rawSamples, splinePts, targets, pathPoints); err != nil {
			logger.Warn().Src("pipeline").Msgf("debug CSV dump failed: %v", err)
		}
	}

	cur, err := sprite.Load(cursorSpritePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: cursor sprite: %v", ErrInvalidInput, err)
			return StatusInvalidInput, err
		}
		err = fmt.Errorf("%w: cursor sprite: %v", ErrMediaIO, err)
		return StatusMediaIO, err
	}

	status, err := render(ctx, ff, inputVideoPath, outputVideoPath, cur, info, pathPoints, progress, logger)
	if err != nil {
		return status, err
	}

	progress(1.0)
	return StatusSuccess, nil
}

// render drives the decode/composite/encode frame loop described in
// spec.md §4.8 steps 4-6.
func render(
	ctx context.Context,
	ff *ffmpeg.FFMPEG,
	inputPath, outputPath string,
	cur *sprite.Sprite,
	info ffmpeg.StreamInfo,
	pathPoints []geometry.PathPoint,
	progress func(float64),
	logger *log.Logger,
) (int, error) {
	reader, err := ffmpeg.NewFrameReader(ctx, ffmpegBin, inputPath, info, logger)
	if err != nil {
		return StatusMediaIO, fmt.Errorf("%w: open decoder: %v", ErrMediaIO, err)
	}

	writer, err := ffmpeg.NewFrameWriter(ctx, ffmpegBin, outputPath, info.Width, info.Height, info.FrameRate, logger)
	if err != nil {
		reader.Close() //nolint:errcheck
		return StatusMediaIO, fmt.Errorf("%w: open encoder: %v", ErrMediaIO, err)
	}

	orc := oracle.New(pathPoints)
	aligner := align.New()
	pathStartMs := pathPoints[0].TimestampMs
	framesEstimated := estimateFrameCount(info, pathPoints)

	frameIndex := 0
	for {
		frame, frameMs, err := reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writer.Close() //nolint:errcheck
			reader.Close() //nolint:errcheck
			return StatusMediaIO, fmt.Errorf("%w: decode frame %d: %v", ErrMediaIO, frameIndex, err)
		}

		aligner.AddFrame(frameMs, pathStartMs)
		alignedMs := frameMs + aligner.Offset()

		if result, ok := orc.At(alignedMs); ok {
			if result.Clamped {
				logger.Debug().Src("pipeline").Msgf("oracle clamped at %.2fms", alignedMs)
			}
			compositor.Composite(frame, info.Width, info.Height, cur, result.X, result.Y)
		} else {
			logger.Debug().Src("pipeline").Msgf("no cursor position available at %.2fms", alignedMs)
		}

		if err := writer.WriteFrame(frame); err != nil {
			writer.Close() //nolint:errcheck
			reader.Close() //nolint:errcheck
			return StatusMediaIO, fmt.Errorf("%w: encode frame %d: %v", ErrMediaIO, frameIndex, err)
		}

		frameIndex++
		progress(math.Min(1.0, 0.10+0.85*float64(frameIndex)/framesEstimated))
	}

	if err := writer.Close(); err != nil {
		reader.Close() //nolint:errcheck
		return StatusMediaIO, fmt.Errorf("%w: close encoder: %v", ErrMediaIO, err)
	}
	if err := reader.Close(); err != nil {
		return StatusMediaIO, fmt.Errorf("%w: close decoder: %v", ErrMediaIO, err)
	}

	return StatusSuccess, nil
}

// validatePath enforces §6/§7's -1/-2 split: an empty path is an absent
// required input, a non-UTF-8 path can't be represented in the platform
// encoding this build targets.
func validatePath(label, p string) error {
	if p == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, label)
	}
	if !utf8.ValidString(p) {
		return fmt.Errorf("%w: %s", ErrInvalidEncoding, label)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidEncoding):
		return StatusInvalidEncoding
	case errors.Is(err, ErrInvalidInput):
		return StatusInvalidInput
	case errors.Is(err, ErrInsufficientData):
		return StatusInsufficientData
	default:
		return StatusMediaIO
	}
}

// fallbackStreamInfo reconstructs just enough of a probe result to keep
// the job moving when ffprobe can't be run: the configured frame rate and
// a duration derived from the raw capture's own span. Width/height are
// left zero, since nothing short of decoding the file can recover them;
// in practice a probe failure on a file that still decodes cleanly is
// unusual, so this primarily keeps the failure path's progress reporting
// and error messages well-formed rather than promising a full recovery.
func fallbackStreamInfo(rawSamples []geometry.Sample, cfg config.Config) ffmpeg.StreamInfo {
	var duration float64
	if len(rawSamples) > 0 {
		duration = (rawSamples[len(rawSamples)-1].TimestampMs - rawSamples[0].TimestampMs) / 1000
	}
	return ffmpeg.StreamInfo{FrameRate: cfg.FrameRate, Duration: duration}
}

// estimateFrameCount is the denominator of §6's progress formula.
func estimateFrameCount(info ffmpeg.StreamInfo, pathPoints []geometry.PathPoint) float64 {
	if info.Duration > 0 && info.FrameRate > 0 {
		return info.Duration * info.FrameRate
	}
	if len(pathPoints) > 0 {
		return float64(len(pathPoints))
	}
	return 1
}

// dumpDebugCSVs writes the four intermediate point-sequence CSVs spec.md
// §6/§11.3 reserves for trace-level debugging.
func dumpDebugCSVs(
	dir string,
	samples []geometry.Sample,
	splinePts []geometry.SplinePoint,
	targets []geometry.Target,
	path []geometry.PathPoint,
) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}

	sampleRows := make([][]string, len(samples))
	for i, s := range samples {
		sampleRows[i] = []string{ftoa(s.X), ftoa(s.Y), ftoa(s.TimestampMs)}
	}
	if err := writeCSV(filepath.Join(dir, "control_points.csv"), []string{"x", "y", "timestamp_ms"}, sampleRows); err != nil {
		return err
	}

	splineRows := make([][]string, len(splinePts))
	for i, p := range splinePts {
		splineRows[i] = []string{ftoa(p.X), ftoa(p.Y), ftoa(p.TimestampMs)}
	}
	if err := writeCSV(filepath.Join(dir, "spline.csv"), []string{"x", "y", "timestamp_ms"}, splineRows); err != nil {
		return err
	}

	targetRows := make([][]string, len(targets))
	for i, t := range targets {
		targetRows[i] = []string{ftoa(t.X), ftoa(t.Y), ftoa(t.TimestampMs)}
	}
	if err := writeCSV(filepath.Join(dir, "targets.csv"), []string{"x", "y", "timestamp_ms"}, targetRows); err != nil {
		return err
	}

	pathRows := make([][]string, len(path))
	for i, p := range path {
		pathRows[i] = []string{ftoa(p.X), ftoa(p.Y), ftoa(p.TimestampMs), ftoa(p.VX), ftoa(p.VY)}
	}
	return writeCSV(filepath.Join(dir, "path.csv"), []string{"x", "y", "timestamp_ms", "vx", "vy"}, pathRows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
