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

// Package kinematic resamples the arc-length-parameterized spline into a
// dense, frame-cadence target stream under a trapezoidal (or triangular)
// speed profile anchored at each raw sample's original timestamp.
package kinematic

import (
	"math"

	"cursorsmooth/pkg/arclength"
	"cursorsmooth/pkg/geometry"
)

// Design-tuned kinematic caps (spec.md §4.3/§6): "cross a Full-HD screen
// in ~1s" and "reach peak speed in ~0.45s".
const (
	VMax = 1800.0 // px/s
	AMax = 4000.0 // px/s^2
)

const timeEpsilonMs = 1e-6
const distEpsilon = 1e-9

// Generate produces the dense target stream spanning every consecutive
// pair of anchors. Anchors must be in non-decreasing timestamp order.
// Fewer than 2 anchors, or fewer than 2 spline points, degrades to
// passing the spline sequence through unchanged.
func Generate(
	anchors []geometry.Sample,
	spline []geometry.SplinePoint,
	table *arclength.Table,
	frameRate, vMax, aMax float64,
) []geometry.Target {
	if len(anchors) < 2 || table.Len() < 2 {
		out := make([]geometry.Target, len(spline))
		for i, p := range spline {
			out[i] = geometry.Target{X: p.X, Y: p.Y, TimestampMs: p.TimestampMs}
		}
		return out
	}

	var out []geometry.Target
	prevS := 0.0
	for i := 0; i < len(anchors)-1; i++ {
		a0, a1 := anchors[i], anchors[i+1]

		idx0 := nearestIndex(spline, a0)
		idx1 := nearestIndex(spline, a1)
		s0 := table.LengthAt(idx0)
		s1 := table.LengthAt(idx1)

		if s0 < prevS {
			s0 = prevS
		}
		if s1 < s0 {
			s1 = s0
		}
		ds := s1 - s0
		if ds < 0 {
			ds = 0
		}
		prevS = s1

		segTargets := generateSegment(a0, a1, s0, ds, table, frameRate, vMax, aMax)
		if i > 0 && len(segTargets) > 0 {
			segTargets = segTargets[1:]
		}
		out = append(out, segTargets...)
	}
	return out
}

// nearestIndex finds the spline point whose position is closest to s.
func nearestIndex(spline []geometry.SplinePoint, s geometry.Sample) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, p := range spline {
		d := geometry.Distance(p.X, p.Y, s.X, s.Y)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// generateSegment builds the frame-cadence target stream for a single
// anchor-to-anchor segment, beginning at arc-length s0 and covering
// distance ds, anchored at a0's and a1's timestamps/positions.
func generateSegment(
	a0, a1 geometry.Sample,
	s0, ds float64,
	table *arclength.Table,
	frameRate, vMax, aMax float64,
) []geometry.Target {
	dtMs := a1.TimestampMs - a0.TimestampMs
	if dtMs < timeEpsilonMs {
		x, y := table.PositionAtDistance(s0)
		return []geometry.Target{
			{X: x, Y: y, TimestampMs: a0.TimestampMs},
		}
	}
	dt := dtMs / 1000

	if ds < distEpsilon {
		// Stationary dwell: emit a frame-cadence run at the anchor
		// position for the whole duration.
		return sampleProfile(a0, a1, dt, frameRate, table, func(float64) float64 { return s0 })
	}

	vPeak := trapezoidPeakVelocity(ds, dt, vMax, aMax)
	tAcc := vPeak / aMax
	tCruise := dt - 2*tAcc
	if tCruise < 0 {
		tCruise = 0
	}

	sTotal := aMax*tAcc*tAcc + vPeak*tCruise
	aEff, vEff := aMax, vPeak
	if sTotal > distEpsilon {
		k := ds / sTotal
		aEff *= k
		vEff *= k
	}

	sAt := func(t float64) float64 {
		switch {
		case t <= tAcc:
			return 0.5 * aEff * t * t
		case t <= tAcc+tCruise:
			return 0.5*aEff*tAcc*tAcc + vEff*(t-tAcc)
		default:
			td := t - tAcc - tCruise
			return 0.5*aEff*tAcc*tAcc + vEff*tCruise + vEff*td - 0.5*aEff*td*td
		}
	}

	return sampleProfile(a0, a1, dt, frameRate, table, func(t float64) float64 { return s0 + sAt(t) })
}

// trapezoidPeakVelocity solves the trapezoidal motion constraints for
// the peak velocity of a segment spanning duration dt and distance ds.
func trapezoidPeakVelocity(ds, dt, vMax, aMax float64) float64 {
	discriminant := (aMax*dt)*(aMax*dt) - 4*aMax*ds
	var v float64
	if discriminant < 0 {
		v = aMax * dt / 2
	} else {
		v = (aMax*dt - math.Sqrt(discriminant)) / 2
	}
	if v > vMax {
		return vMax
	}
	return v
}

// sampleProfile emits one target every 1/frameRate seconds across
// [0, dt), mapping elapsed time through sAtT to an arc-length position
// via table, then always appends an exact final endpoint at a1
// regardless of floating-point drift in the loop.
func sampleProfile(
	a0, a1 geometry.Sample,
	dt, frameRate float64,
	table *arclength.Table,
	sAtT func(t float64) float64,
) []geometry.Target {
	frameStep := 1 / frameRate
	out := make([]geometry.Target, 0, int(dt*frameRate)+2)

	for t := 0.0; t < dt; t += frameStep {
		x, y := table.PositionAtDistance(sAtT(t))
		out = append(out, geometry.Target{
			X: x, Y: y,
			TimestampMs: a0.TimestampMs + t*1000,
		})
	}

	out = append(out, geometry.Target{X: a1.X, Y: a1.Y, TimestampMs: a1.TimestampMs})
	return out
}
