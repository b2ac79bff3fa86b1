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

package spline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"cursorsmooth/pkg/geometry"
)

func s(x, y, ts float64) geometry.Sample {
	return geometry.Sample{X: x, Y: y, TimestampMs: ts}
}

func TestEvaluateSegmentZeroAndOne(t *testing.T) {
	p0, p1, p2, p3 := s(0, 0, 0), s(1, 1, 100), s(2, 0, 200), s(3, 1, 300)

	require.Empty(t, EvaluateSegment(p0, p1, p2, p3, 0, DefaultAlpha))

	one := EvaluateSegment(p0, p1, p2, p3, 1, DefaultAlpha)
	require.Len(t, one, 1)
	require.InDelta(t, p1.X, one[0].X, 1e-6)
	require.InDelta(t, p1.Y, one[0].Y, 1e-6)
}

func TestEvaluateSegmentEndpointRecovery(t *testing.T) {
	p0, p1, p2, p3 := s(0, 0, 0), s(1, 1, 100), s(2, 0, 200), s(3, 1, 300)
	points := EvaluateSegment(p0, p1, p2, p3, 400, DefaultAlpha)
	require.Len(t, points, 400)

	require.InDelta(t, p1.X, points[0].X, 1e-4)
	require.InDelta(t, p1.Y, points[0].Y, 1e-4)
	require.InDelta(t, p2.X, points[len(points)-1].X, 1e-4)
	require.InDelta(t, p2.Y, points[len(points)-1].Y, 1e-4)
}

func TestEvaluateSegmentCollinear(t *testing.T) {
	p0, p1, p2, p3 := s(0, 0, 0), s(1, 0, 100), s(2, 0, 200), s(3, 0, 300)
	points := EvaluateSegment(p0, p1, p2, p3, 5, DefaultAlpha)
	require.Len(t, points, 5)
	for _, p := range points {
		require.InDelta(t, 0.0, p.Y, 1e-6)
		require.True(t, p.X >= p1.X-1e-6 && p.X <= p2.X+1e-6)
		require.True(t, p.TimestampMs >= p1.TimestampMs-1e-6 && p.TimestampMs <= p2.TimestampMs+1e-6)
		require.False(t, math.IsNaN(p.X))
	}
}

func TestEvaluateSegmentCoincidentPoints(t *testing.T) {
	p := s(5, 5, 50)
	points := EvaluateSegment(p, p, p, p, 10, DefaultAlpha)
	require.Len(t, points, 10)
	for _, pt := range points {
		require.False(t, math.IsNaN(pt.X))
		require.False(t, math.IsNaN(pt.Y))
		require.InDelta(t, 5.0, pt.X, 1e-6)
		require.InDelta(t, 5.0, pt.Y, 1e-6)
	}
}

func TestChainTooFewSamples(t *testing.T) {
	require.Empty(t, Chain([]geometry.Sample{s(0, 0, 0), s(1, 1, 10), s(2, 2, 20)}, 60, DefaultAlpha))
}

func TestChainPassesThroughAnchors(t *testing.T) {
	samples := []geometry.Sample{
		s(0, 0, 0), s(500, 0, 500), s(1000, 0, 1000), s(1500, 0, 1500),
	}
	points := Chain(samples, 60, DefaultAlpha)
	require.NotEmpty(t, points)

	require.InDelta(t, samples[0].X, points[0].X, 1e-3)
	require.InDelta(t, samples[len(samples)-1].X, points[len(points)-1].X, 1e-3)

	// Arc-length-wise the chain should be monotonic in timestamp.
	for i := 1; i < len(points); i++ {
		require.GreaterOrEqual(t, points[i].TimestampMs, points[i-1].TimestampMs)
	}
}

func TestChainRecoversAnchorsCloserThanHalfAFrameInterval(t *testing.T) {
	// samples[1] and samples[2] are 1ms apart, far under a 60fps frame
	// interval (~16.7ms): the segment between them would round to a
	// single-point count if not floored, which then loses samples[2]
	// outright once the junction dedup drops it.
	samples := []geometry.Sample{
		s(0, 0, 0), s(50, 0, 40), s(50, 5, 41), s(100, 50, 200),
	}
	points := Chain(samples, 60, DefaultAlpha)
	require.NotEmpty(t, points)

	found := false
	for _, p := range points {
		if math.Abs(p.X-50) < 1e-6 && math.Abs(p.Y-5) < 1e-6 {
			found = true
			break
		}
	}
	require.True(t, found, "anchor (50,5) at t=41 must survive chaining")
}

func TestChainCornerStaysInBounds(t *testing.T) {
	samples := []geometry.Sample{
		s(0, 0, 0), s(100, 0, 100), s(200, 0, 200), s(200, 100, 400), s(200, 200, 600),
	}
	points := Chain(samples, 60, DefaultAlpha)
	require.NotEmpty(t, points)
	for _, p := range points {
		require.GreaterOrEqual(t, p.Y, -2.0)
		require.LessOrEqual(t, p.Y, 202.0)
	}
}
