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

// Package spline evaluates a centripetal Catmull-Rom curve through
// quadruples of raw cursor samples using the Barry-Goldman pyramid, and
// chains such segments across a whole recording.
package spline

import (
	"math"

	"cursorsmooth/pkg/geometry"
)

// DefaultAlpha is the centripetal parameterization exponent.
const DefaultAlpha = 0.5

// knotEpsilon is the floor below which a knot interval is treated as
// coincident, to avoid dividing by a near-zero span.
const knotEpsilon = 1e-9

// point4 is the minimal (x, y, t) tuple the pyramid blends, decoupled
// from geometry.Sample so it can also carry blended intermediate values.
type point4 struct {
	x, y, t float64
}

// EvaluateSegment samples n points of the centripetal Catmull-Rom curve
// through p0..p3, tracing the portion of the curve between p1 and p2.
// n == 0 returns no points; n == 1 returns p1 alone.
func EvaluateSegment(p0, p1, p2, p3 geometry.Sample, n int, alpha float64) []geometry.SplinePoint {
	if n <= 0 {
		return nil
	}

	q0 := point4{p0.X, p0.Y, p0.TimestampMs}
	q1 := point4{p1.X, p1.Y, p1.TimestampMs}
	q2 := point4{p2.X, p2.Y, p2.TimestampMs}
	q3 := point4{p3.X, p3.Y, p3.TimestampMs}

	t0 := 0.0
	t1 := knotStep(t0, q0, q1, alpha)
	t2 := knotStep(t1, q1, q2, alpha)
	t3 := knotStep(t2, q2, q3, alpha)

	out := make([]geometry.SplinePoint, 0, n)
	for _, t := range linspace(t1, t2, n) {
		a1 := blend(t0, t1, t, q0, q1)
		a2 := blend(t1, t2, t, q1, q2)
		a3 := blend(t2, t3, t, q2, q3)

		b1 := blend(t0, t2, t, a1, a2)
		b2 := blend(t1, t3, t, a2, a3)

		final := blend(t1, t2, t, b1, b2)
		out = append(out, geometry.SplinePoint{X: final.x, Y: final.y, TimestampMs: final.t})
	}
	return out
}

// knotStep returns t_i plus the chord length between p and q raised to alpha.
func knotStep(tPrev float64, p, q point4, alpha float64) float64 {
	l := math.Hypot(q.x-p.x, q.y-p.y)
	return tPrev + math.Pow(l, alpha)
}

// blend performs the weighted linear blend used at every level of the
// Barry-Goldman pyramid. When the knot interval collapses below
// knotEpsilon, it returns the endpoint with the smaller parametric time
// rather than dividing by a near-zero span.
func blend(tStart, tEnd, t float64, pStart, pEnd point4) point4 {
	var w1, w2 float64
	if math.Abs(tEnd-tStart) < knotEpsilon {
		if t <= tStart {
			w1, w2 = 1, 0
		} else {
			w1, w2 = 0, 1
		}
	} else {
		w1 = (tEnd - t) / (tEnd - tStart)
		w2 = (t - tStart) / (tEnd - tStart)
	}
	return point4{
		x: w1*pStart.x + w2*pEnd.x,
		y: w1*pStart.y + w2*pEnd.y,
		t: w1*pStart.t + w2*pEnd.t,
	}
}

// linspace returns num evenly spaced values over [start, end] inclusive.
func linspace(start, end float64, num int) []float64 {
	if num <= 0 {
		return nil
	}
	if num == 1 {
		return []float64{start}
	}
	out := make([]float64, num)
	step := (end - start) / float64(num-1)
	for i := 0; i < num; i++ {
		out[i] = start + float64(i)*step
	}
	return out
}

// Chain samples the full centripetal Catmull-Rom curve through every
// consecutive pair of raw samples, duplicating the first and last sample
// so that every raw sample anchors a valid quadruple. Each segment is
// sampled with a count proportional to its time span at frameRate
// (rounded, minimum 2); junction points shared between adjacent segments
// are emitted exactly once.
func Chain(samples []geometry.Sample, frameRate, alpha float64) []geometry.SplinePoint {
	n := len(samples)
	if n < 4 {
		return nil
	}

	extended := make([]geometry.Sample, 0, n+2)
	extended = append(extended, samples[0])
	extended = append(extended, samples...)
	extended = append(extended, samples[n-1])

	segments := n - 1
	out := make([]geometry.SplinePoint, 0, segments*4)

	for i := 0; i < segments; i++ {
		p0 := extended[i]
		p1 := extended[i+1]
		p2 := extended[i+2]
		p3 := extended[i+3]

		durationMs := p2.TimestampMs - p1.TimestampMs
		count := int(math.Round(durationMs / 1000 * frameRate))
		// Every segment must reach p2 explicitly: segments after the first
		// drop their own first sample below on the assumption the prior
		// segment's last sample already supplied it, so any segment that
		// collapsed to a single point (its own p1, never reaching p2)
		// would both fail to anchor its own end AND cause the next
		// segment's dedup to drop the point that was supposed to recover
		// it, losing the anchor outright.
		if count < 2 {
			count = 2
		}

		segPoints := EvaluateSegment(p0, p1, p2, p3, count, alpha)
		if i > 0 && len(segPoints) > 0 {
			segPoints = segPoints[1:]
		}
		out = append(out, segPoints...)
	}
	return out
}
