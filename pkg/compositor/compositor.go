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

// Package compositor draws a cursor sprite onto a raw RGBA frame buffer
// at a sub-pixel position, sampling the sprite with bilinear filtering
// and compositing with the standard alpha-over operator.
package compositor

import "cursorsmooth/pkg/sprite"

// Composite draws sprite onto frame (tightly packed RGBA8, frameWidth
// pixels wide) so that the sprite's top-left corner lands at (x, y) in
// frame pixel coordinates, which may be fractional. Destination pixels
// outside the frame are skipped; frame alpha is left untouched, matching
// the assumption that the underlying video frame is fully opaque.
func Composite(frame []byte, frameWidth, frameHeight int, cur *sprite.Sprite, x, y float64) {
	startX := int(floor(x))
	startY := int(floor(y))
	endX := startX + cur.Width + 1
	endY := startY + cur.Height + 1

	drawStartX := max(startX, 0)
	drawStartY := max(startY, 0)
	drawEndX := min(endX, frameWidth)
	drawEndY := min(endY, frameHeight)

	for dy := drawStartY; dy < drawEndY; dy++ {
		for dx := drawStartX; dx < drawEndX; dx++ {
			srcX := float64(dx) - x
			srcY := float64(dy) - y

			r, g, b, a, ok := sampleBilinear(cur, srcX, srcY)
			if !ok {
				continue
			}
			alpha := float64(a) / 255.0
			if alpha <= 0 {
				continue
			}

			idx := (dy*frameWidth + dx) * 4
			frame[idx] = blend(frame[idx], r, alpha)
			frame[idx+1] = blend(frame[idx+1], g, alpha)
			frame[idx+2] = blend(frame[idx+2], b, alpha)
		}
	}
}

func blend(bg, fg byte, alpha float64) byte {
	v := float64(bg)*(1-alpha) + float64(fg)*alpha
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// sampleBilinear samples the sprite at (x, y) in sprite-pixel space,
// where integer coordinates address pixel centers. Samples outside
// [-0.5, dim-0.5) in either axis are rejected rather than extrapolated.
func sampleBilinear(cur *sprite.Sprite, x, y float64) (r, g, b, a byte, ok bool) {
	w, h := float64(cur.Width), float64(cur.Height)
	if x < -0.5 || y < -0.5 || x >= w-0.5 || y >= h-0.5 {
		return 0, 0, 0, 0, false
	}

	xFloor := floor(x)
	yFloor := floor(y)
	tlX := int(xFloor)
	tlY := int(yFloor)

	u := x - xFloor
	v := y - yFloor
	invU := 1 - u
	invV := 1 - v

	tlR, tlG, tlB, tlA := cur.At(tlX, tlY)
	trR, trG, trB, trA := cur.At(tlX+1, tlY)
	blR, blG, blB, blA := cur.At(tlX, tlY+1)
	brR, brG, brB, brA := cur.At(tlX+1, tlY+1)

	interp := func(tl, tr, bl, br byte) byte {
		top := float64(tl)*invU + float64(tr)*u
		bot := float64(bl)*invU + float64(br)*u
		return byte(top*invV + bot*v)
	}

	return interp(tlR, trR, blR, brR),
		interp(tlG, trG, blG, brG),
		interp(tlB, trB, blB, brB),
		interp(tlA, trA, blA, brA),
		true
}

func floor(x float64) float64 {
	i := float64(int64(x))
	if x < 0 && i != x {
		return i - 1
	}
	return i
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
