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

package pipeline

import (
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cursorsmooth/pkg/config"
	"cursorsmooth/pkg/ffmpeg"
	"cursorsmooth/pkg/geometry"
	"cursorsmooth/pkg/log"
)

func writeTestSprite(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 255, 0, 255})
	img.Set(0, 1, color.NRGBA{0, 0, 255, 255})
	img.Set(1, 1, color.NRGBA{255, 255, 255, 255})

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func fourSamples() []geometry.Sample {
	return []geometry.Sample{
		{X: 0, Y: 0, TimestampMs: 0},
		{X: 100, Y: 0, TimestampMs: 100},
		{X: 100, Y: 100, TimestampMs: 200},
		{X: 0, Y: 100, TimestampMs: 300},
	}
}

func TestProcessRejectsEmptyPaths(t *testing.T) {
	status, err := Process(context.Background(), "", "out.mp4", "cursor.png", fourSamples(), config.Default(), nil)
	require.Error(t, err)
	require.Equal(t, StatusInvalidInput, status)
}

func TestProcessRejectsNonUTF8Path(t *testing.T) {
	bad := string([]byte{0xff, 0xfe})
	status, err := Process(context.Background(), bad, "out.mp4", "cursor.png", fourSamples(), config.Default(), nil)
	require.Error(t, err)
	require.Equal(t, StatusInvalidEncoding, status)
}

func TestProcessRejectsTooFewSamples(t *testing.T) {
	dir := t.TempDir()
	sprite := filepath.Join(dir, "cursor.png")
	writeTestSprite(t, sprite)

	samples := fourSamples()[:3]
	status, err := Process(context.Background(), "in.mp4", "out.mp4", sprite, samples, config.Default(), nil)
	require.Error(t, err)
	require.Equal(t, StatusInsufficientData, status)
}

// TestProcessMediaIOWhenFFmpegMissing points the pipeline at a
// guaranteed-absent ffmpeg/ffprobe binary: probing falls back to the
// configured frame rate (exercising fallbackStreamInfo), and opening the
// decoder then fails, surfacing as a media-io status.
func TestProcessMediaIOWhenFFmpegMissing(t *testing.T) {
	oldFFmpeg, oldFFprobe := ffmpegBin, ffprobeBin
	ffmpegBin, ffprobeBin = "/nonexistent/ffmpeg-bin", "/nonexistent/ffprobe-bin"
	defer func() { ffmpegBin, ffprobeBin = oldFFmpeg, oldFFprobe }()

	dir := t.TempDir()
	sprite := filepath.Join(dir, "cursor.png")
	writeTestSprite(t, sprite)

	var progressValues []float64
	status, err := Process(
		context.Background(),
		filepath.Join(dir, "in.mp4"),
		filepath.Join(dir, "out.mp4"),
		sprite,
		fourSamples(),
		config.Default(),
		func(p float64) { progressValues = append(progressValues, p) },
	)

	require.Error(t, err)
	require.Equal(t, StatusMediaIO, status)
	require.NotEmpty(t, progressValues)
	require.Equal(t, 0.0, progressValues[0])
}

func TestProcessMissingSpriteIsInvalidInput(t *testing.T) {
	oldFFmpeg, oldFFprobe := ffmpegBin, ffprobeBin
	ffmpegBin, ffprobeBin = "/nonexistent/ffmpeg-bin", "/nonexistent/ffprobe-bin"
	defer func() { ffmpegBin, ffprobeBin = oldFFmpeg, oldFFprobe }()

	dir := t.TempDir()
	status, err := Process(
		context.Background(),
		filepath.Join(dir, "in.mp4"),
		filepath.Join(dir, "out.mp4"),
		filepath.Join(dir, "does-not-exist.png"),
		fourSamples(),
		config.Default(),
		nil,
	)

	require.Error(t, err)
	require.Equal(t, StatusInvalidInput, status)
}

func TestProcessWritesDebugCSVsAtTraceLevel(t *testing.T) {
	oldFFmpeg, oldFFprobe := ffmpegBin, ffprobeBin
	ffmpegBin, ffprobeBin = "/nonexistent/ffmpeg-bin", "/nonexistent/ffprobe-bin"
	defer func() { ffmpegBin, ffprobeBin = oldFFmpeg, oldFFprobe }()

	dir := t.TempDir()
	sprite := filepath.Join(dir, "cursor.png")
	writeTestSprite(t, sprite)
	debugDir := filepath.Join(dir, "debug")

	cfg := config.Default()
	cfg.LogLevel = log.LevelTrace
	cfg.DebugDir = debugDir

	// This run still fails at the decoder-open step (no real ffmpeg), but
	// the CSV dump happens before that, so the files must exist regardless.
	_, _ = Process(
		context.Background(),
		filepath.Join(dir, "in.mp4"),
		filepath.Join(dir, "out.mp4"),
		sprite,
		fourSamples(),
		cfg,
		nil,
	)

	for _, name := range []string{"control_points.csv", "spline.csv", "targets.csv", "path.csv"} {
		path := filepath.Join(debugDir, name)
		f, err := os.Open(path)
		require.NoErrorf(t, err, "expected %s to exist", name)
		defer f.Close()

		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Greater(t, len(rows), 1, "%s should have a header plus at least one row", name)
	}
}

func TestEstimateFrameCountPrefersDurationTimesFrameRate(t *testing.T) {
	info := ffmpeg.StreamInfo{FrameRate: 30, Duration: 2}
	require.Equal(t, 60.0, estimateFrameCount(info, nil))
}

func TestEstimateFrameCountFallsBackToPathLength(t *testing.T) {
	info := ffmpeg.StreamInfo{}
	points := make([]geometry.PathPoint, 5)
	require.Equal(t, 5.0, estimateFrameCount(info, points))
}

func TestStatusForMapsSentinels(t *testing.T) {
	require.Equal(t, StatusInvalidInput, statusFor(ErrInvalidInput))
	require.Equal(t, StatusInvalidEncoding, statusFor(ErrInvalidEncoding))
	require.Equal(t, StatusInsufficientData, statusFor(ErrInsufficientData))
	require.Equal(t, StatusMediaIO, statusFor(ErrMediaIO))
}
