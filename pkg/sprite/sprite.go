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

// Package sprite loads a cursor image into a tightly packed RGBA8 buffer
// suitable for O(1) pixel access during compositing.
package sprite

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Sprite is a decoded cursor image, stored as non-premultiplied RGBA8.
type Sprite struct {
	Data   []byte
	Width  int
	Height int
}

// Load decodes a PNG or JPEG cursor sprite from path.
func Load(path string) (*Sprite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cursor sprite: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode cursor sprite: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]byte, w*h*4)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// img.At().RGBA() is alpha-premultiplied; undo that so the
			// compositor's blend math operates on straight alpha.
			r, g, b, a := img.At(x, y).RGBA()
			if a > 0 {
				r = r * 0xffff / a
				g = g * 0xffff / a
				b = b * 0xffff / a
			}
			data[i] = byte(r >> 8)
			data[i+1] = byte(g >> 8)
			data[i+2] = byte(b >> 8)
			data[i+3] = byte(a >> 8)
			i += 4
		}
	}

	return &Sprite{Data: data, Width: w, Height: h}, nil
}

// At returns the pixel at (x, y), clamped to the sprite's edges.
func (s *Sprite) At(x, y int) (r, g, b, a byte) {
	if x < 0 {
		x = 0
	}
	if x > s.Width-1 {
		x = s.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y > s.Height-1 {
		y = s.Height - 1
	}
	idx := (y*s.Width + x) * 4
	return s.Data[idx], s.Data[idx+1], s.Data[idx+2], s.Data[idx+3]
}
