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

// Package arclength reparameterizes a dense spline sequence by cumulative
// Euclidean distance, so downstream stages can place targets by "how far
// along the curve" rather than by the spline's native sample index.
package arclength

import (
	"sort"

	"cursorsmooth/pkg/geometry"
)

// Table holds a non-decreasing cumulative-length index over a spline
// sequence, with the first entry always zero.
type Table struct {
	points []geometry.SplinePoint
	lens   []float64
}

// Build constructs a Table from a dense spline sequence. An empty or
// single-point input yields a Table whose Total is zero.
func Build(points []geometry.SplinePoint) *Table {
	lens := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		lens[i] = lens[i-1] + geometry.Distance(
			points[i-1].X, points[i-1].Y, points[i].X, points[i].Y,
		)
	}
	return &Table{points: points, lens: lens}
}

// Total returns the total arc length of the table, 0 if empty.
func (t *Table) Total() float64 {
	if len(t.lens) == 0 {
		return 0
	}
	return t.lens[len(t.lens)-1]
}

// Len returns the number of points backing the table.
func (t *Table) Len() int {
	return len(t.points)
}

// LengthAt returns the cumulative length at spline index i.
func (t *Table) LengthAt(i int) float64 {
	return t.lens[i]
}

// NearestIndex returns the index of the spline point with cumulative
// length closest to s, used to project an anchor sample onto the curve.
func (t *Table) NearestIndex(s float64) int {
	if len(t.lens) == 0 {
		return 0
	}
	i := sort.SearchFloat64s(t.lens, s)
	if i <= 0 {
		return 0
	}
	if i >= len(t.lens) {
		return len(t.lens) - 1
	}
	if t.lens[i]-s < s-t.lens[i-1] {
		return i
	}
	return i - 1
}

// PositionAtDistance clamps s to [0, Total()] and linearly interpolates
// the (x, y) position at arc-length s along the curve. A degenerate
// (zero-length) bracketing pair returns the upper endpoint.
func (t *Table) PositionAtDistance(s float64) (x, y float64) {
	if len(t.points) == 0 {
		return 0, 0
	}
	if len(t.points) == 1 {
		return t.points[0].X, t.points[0].Y
	}

	total := t.Total()
	s = geometry.Clamp(s, 0, total)

	// Binary-search for the bracketing pair [i-1, i] such that
	// lens[i-1] <= s <= lens[i].
	i := sort.Search(len(t.lens), func(i int) bool { return t.lens[i] >= s })
	if i <= 0 {
		return t.points[0].X, t.points[0].Y
	}
	if i >= len(t.lens) {
		last := t.points[len(t.points)-1]
		return last.X, last.Y
	}

	lo, hi := t.lens[i-1], t.lens[i]
	if hi-lo < 1e-12 {
		p := t.points[i]
		return p.X, p.Y
	}

	frac := (s - lo) / (hi - lo)
	a, b := t.points[i-1], t.points[i]
	return geometry.Lerp(a.X, b.X, frac), geometry.Lerp(a.Y, b.Y, frac)
}
