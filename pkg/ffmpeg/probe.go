// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StreamInfo describes the video stream geometry and timing needed to
// drive the raw-frame decode/encode pipes.
type StreamInfo struct {
	Width     int
	Height    int
	FrameRate float64
	Duration  float64 // seconds
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// Probe runs ffprobe against path and extracts the first video stream's
// geometry, frame rate and container duration. It runs through the same
// Process supervisor the decode/encode pipes use, so a cancelled ctx
// interrupts a hung ffprobe gracefully rather than leaving it orphaned.
func (f *FFMPEG) Probe(ctx context.Context, path string) (StreamInfo, error) {
	cmd := f.newProbeCommand(
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	proc := NewProcess(cmd)
	if err := proc.Start(ctx); err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe: %v: %s", err, stderr.String())
	}
	if err := proc.Wait(); err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe: %v: %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var videoStream *probeStream
	for i := range out.Streams {
		if out.Streams[i].CodecType == "video" {
			videoStream = &out.Streams[i]
			break
		}
	}
	if videoStream == nil {
		return StreamInfo{}, fmt.Errorf("no video stream found in %s", path)
	}

	rate := videoStream.AvgFrameRate
	if rate == "" || rate == "0/0" {
		rate = videoStream.RFrameRate
	}
	fps, err := parseRational(rate)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("parse frame rate %q: %w", rate, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}

	return StreamInfo{
		Width:     videoStream.Width,
		Height:    videoStream.Height,
		FrameRate: fps,
		Duration:  duration,
	}, nil
}

// parseRational parses ffprobe's "num/den" frame rate notation.
func parseRational(s string) (float64, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	if len(parts) == 1 {
		return num, nil
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("zero denominator in %q", s)
	}
	return num / den, nil
}
