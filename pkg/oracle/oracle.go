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

// Package oracle answers "where was the cursor at time t" between two
// spring-follower path points, using cubic Hermite interpolation so the
// answer is C1-continuous in both position and velocity.
package oracle

import (
	"sort"

	"cursorsmooth/pkg/geometry"
)

// Result is a queried cursor position, flagged when the query fell
// outside the path's time range and was clamped to an endpoint.
type Result struct {
	X, Y    float64
	Clamped bool
}

// Oracle answers frame-time position queries against an immutable
// PathPoint sequence.
type Oracle struct {
	points []geometry.PathPoint
}

// New wraps a PathPoint sequence for querying. The sequence must already
// be sorted by TimestampMs.
func New(points []geometry.PathPoint) *Oracle {
	return &Oracle{points: points}
}

// At returns the position at time t (milliseconds). An empty path
// returns (Result{}, false).
func (o *Oracle) At(t float64) (Result, bool) {
	n := len(o.points)
	if n == 0 {
		return Result{}, false
	}
	if n == 1 {
		return Result{X: o.points[0].X, Y: o.points[0].Y, Clamped: true}, true
	}

	first, last := o.points[0], o.points[n-1]
	if t <= first.TimestampMs {
		return Result{X: first.X, Y: first.Y, Clamped: t < first.TimestampMs}, true
	}
	if t >= last.TimestampMs {
		return Result{X: last.X, Y: last.Y, Clamped: t > last.TimestampMs}, true
	}

	i := sort.Search(n, func(i int) bool { return o.points[i].TimestampMs >= t })
	p2 := o.points[i]
	p1 := o.points[i-1]

	dtMs := p2.TimestampMs - p1.TimestampMs
	if dtMs <= 0 {
		return Result{X: p1.X, Y: p1.Y}, true
	}

	dtSec := dtMs / 1000
	tau := (t - p1.TimestampMs) / dtMs

	x := hermite(p1.X, p2.X, p1.VX*dtSec, p2.VX*dtSec, tau)
	y := hermite(p1.Y, p2.Y, p1.VY*dtSec, p2.VY*dtSec, tau)

	return Result{X: x, Y: y}, true
}

// hermite evaluates the cubic Hermite basis at tau in [0,1] between
// positions p0, p1 with tangents m0, m1 already scaled to the segment's
// own time units.
func hermite(p0, p1, m0, m1, tau float64) float64 {
	tau2 := tau * tau
	tau3 := tau2 * tau

	h00 := 2*tau3 - 3*tau2 + 1
	h10 := tau3 - 2*tau2 + tau
	h01 := -2*tau3 + 3*tau2
	h11 := tau3 - tau2

	return h00*p0 + h10*m0 + h01*p1 + h11*m1
}
