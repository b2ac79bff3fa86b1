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

// Package spring follows a target stream with a critically-tuned
// second-order mass-spring-damper, integrated with semi-implicit
// (symplectic) Euler. It adds sub-kinematic "feel" on top of a target
// stream that already implements the desired macro-scale kinematics.
package spring

import (
	"math"

	"cursorsmooth/pkg/geometry"
)

const (
	minSettlingTime = 0.06 // seconds, responsiveness = 1
	maxSettlingTime = 0.40 // seconds, responsiveness = 0

	minDamping = 0.7 // zeta, smoothness = 0
	maxDamping = 1.5 // zeta, smoothness = 1

	mass = 1.0
)

// SettlingTime maps responsiveness in [0,1] to a settling time in
// [0.40s, 0.06s], monotone decreasing.
func SettlingTime(responsiveness float64) float64 {
	r := geometry.Clamp(responsiveness, 0, 1)
	return geometry.Lerp(maxSettlingTime, minSettlingTime, r)
}

// DampingRatio maps smoothness in [0,1] to a damping ratio in [0.7, 1.5],
// monotone increasing.
func DampingRatio(smoothness float64) float64 {
	s := geometry.Clamp(smoothness, 0, 1)
	return geometry.Lerp(minDamping, maxDamping, s)
}

// Follow runs the spring follower over the target stream, returning one
// PathPoint per input target. An empty input yields an empty output.
func Follow(targets []geometry.Target, responsiveness, smoothness, frameRate float64) []geometry.PathPoint {
	if len(targets) == 0 {
		return nil
	}

	ts := SettlingTime(responsiveness)
	zeta := DampingRatio(smoothness)
	omegaN := 4 / (zeta * ts)
	k := omegaN * omegaN * mass
	c := 2 * zeta * omegaN * mass

	out := make([]geometry.PathPoint, len(targets))
	posX, posY := targets[0].X, targets[0].Y
	velX, velY := 0.0, 0.0
	out[0] = geometry.PathPoint{X: posX, Y: posY, TimestampMs: targets[0].TimestampMs}

	for i := 1; i < len(targets); i++ {
		prev, cur := targets[i-1], targets[i]
		dt := (cur.TimestampMs - prev.TimestampMs) / 1000
		if dt < 0 {
			dt = 0
		}

		substeps := adaptiveSubsteps(dt, omegaN, frameRate)
		h := dt / float64(substeps)

		for step := 0; step < substeps; step++ {
			forceX := k*(cur.X-posX) - c*velX
			forceY := k*(cur.Y-posY) - c*velY

			velX += forceX / mass * h
			velY += forceY / mass * h

			posX += velX * h
			posY += velY * h
		}

		out[i] = geometry.PathPoint{X: posX, Y: posY, TimestampMs: cur.TimestampMs, VX: velX, VY: velY}
	}

	return out
}

// adaptiveSubsteps bounds the integrator step so that omegaN*h stays
// at or below 0.125, preventing oscillation when the target
// stream has large gaps.
func adaptiveSubsteps(dt, omegaN, frameRate float64) int {
	if dt <= 0 {
		return 1
	}
	byFrame := math.Ceil(dt / (2 / frameRate))
	byFreq := math.Ceil(dt * omegaN * 8)
	n := int(math.Max(byFrame, byFreq))
	if n < 1 {
		n = 1
	}
	return n
}
