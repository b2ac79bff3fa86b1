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

// Package align reconciles the video's decoded-frame clock with the
// input-capture clock by estimating a fixed offset from a handful of
// early frames, using a median rather than a mean to stay robust against
// the timestamp jitter codecs introduce around B-frame reordering and
// stream start.
package align

import "sort"

const (
	// DefaultMaxSamples is N in spec.md §4.5.
	DefaultMaxSamples = 10
	// DefaultMaxWindowMs is the collection window in spec.md §4.5.
	DefaultMaxWindowMs = 500.0
)

type state int

const (
	stateCollecting state = iota
	stateComputed
)

// Aligner estimates and then freezes a video-clock-to-input-clock
// offset. Once Computed, Offset always returns the same value.
type Aligner struct {
	maxSamples  int
	maxWindowMs float64

	state      state
	firstFrame float64
	hasFirst   bool
	samples    []float64
	offset     float64
}

// New returns an Aligner configured with the spec's default bounds.
func New() *Aligner {
	return &Aligner{maxSamples: DefaultMaxSamples, maxWindowMs: DefaultMaxWindowMs}
}

// NewWithBounds returns an Aligner with explicit sample/window bounds,
// primarily for testing.
func NewWithBounds(maxSamples int, maxWindowMs float64) *Aligner {
	return &Aligner{maxSamples: maxSamples, maxWindowMs: maxWindowMs}
}

// AddFrame records a decoded-frame timestamp against the input path's
// start timestamp, while the aligner is still Collecting. Calls after
// the offset is Computed are no-ops.
func (a *Aligner) AddFrame(frameMs, pathStartMs float64) {
	if a.state == stateComputed {
		return
	}
	if !a.hasFirst {
		a.firstFrame = frameMs
		a.hasFirst = true
	}

	a.samples = append(a.samples, pathStartMs-frameMs)

	windowElapsed := frameMs - a.firstFrame
	if len(a.samples) >= a.maxSamples || (windowElapsed > a.maxWindowMs && len(a.samples) > 0) {
		a.compute()
	}
}

// Computed reports whether the offset has been finalized.
func (a *Aligner) Computed() bool {
	return a.state == stateComputed
}

// Offset returns the frozen offset once Computed, 0 if no sample was
// ever seen.
func (a *Aligner) Offset() float64 {
	return a.offset
}

func (a *Aligner) compute() {
	a.offset = median(a.samples)
	a.state = stateComputed
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
