package geom

import (
	"fmt"
	"math"
)

// Grid is a square buffer of samples with a fixed number of channels. Values
// are stored row-major in a single slice, with the channels of a texel
// stored contiguously.
//
// A Grid can be addressed by integer texel coordinates or by normalized
// coordinates in [0, 1)^2. Normalized lookups use bilinear filtering and
// clamp to the edge: a Grid never wraps around.
type Grid struct {
	Vals []float64

	width, channels int
}

// NewGrid returns a zeroed Grid with the given width and channel count.
// Channel counts other than 1, 2, and 4 are not supported.
func NewGrid(width, channels int) *Grid {
	g := &Grid{}
	g.Init(width, channels)
	return g
}

// Init (re)allocates a Grid instance.
func (g *Grid) Init(width, channels int) {
	if width < 1 {
		panic(fmt.Sprintf("Grid width is %d, must be positive.", width))
	}
	switch channels {
	case 1, 2, 4:
	default:
		panic(fmt.Sprintf(
			"Grid has %d channels, must be one of 1, 2, or 4.", channels,
		))
	}

	g.width, g.channels = width, channels
	g.Vals = make([]float64, width*width*channels)
}

// Width returns the number of texels along one side of the grid.
func (g *Grid) Width() int { return g.width }

// Channels returns the number of values stored per texel.
func (g *Grid) Channels() int { return g.channels }

// Idx returns the index of the first channel of the texel at (x, y).
func (g *Grid) Idx(x, y int) int {
	return (x + y*g.width) * g.channels
}

// Coords returns the x, y coordinates of a texel from its texel index.
func (g *Grid) Coords(texel int) (x, y int) {
	return texel % g.width, texel / g.width
}

// BoundsCheck returns true if the given coordinates are within the Grid and
// false otherwise.
func (g *Grid) BoundsCheck(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.width
}

// At returns channel c of the texel at (x, y).
func (g *Grid) At(x, y, c int) float64 { return g.Vals[g.Idx(x, y)+c] }

// Set sets channel c of the texel at (x, y).
func (g *Grid) Set(x, y, c int, v float64) { g.Vals[g.Idx(x, y)+c] = v }

// Texel returns the channels of the texel at (x, y). The returned slice
// aliases the grid.
func (g *Grid) Texel(x, y int) []float64 {
	i := g.Idx(x, y)
	return g.Vals[i : i+g.channels]
}

// TexelCenter returns the normalized coordinates of the center of the texel
// at (x, y).
func (g *Grid) TexelCenter(x, y int) Vec2 {
	w := float64(g.width)
	return Vec2{(float64(x) + 0.5) / w, (float64(y) + 0.5) / w}
}

// clampIdx clamps a texel coordinate to the edge of the grid.
func (g *Grid) clampIdx(i int) int {
	if i < 0 {
		return 0
	} else if i >= g.width {
		return g.width - 1
	}
	return i
}

// footprint finds the four texels surrounding uv and the bilinear weights
// between them.
func (g *Grid) footprint(uv Vec2) (i00, i10, i01, i11 int, tx, ty float64) {
	w := float64(g.width)
	fx, fy := clampCoord(uv[0]*w-0.5, w), clampCoord(uv[1]*w-0.5, w)
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx, ty = fx-x0, fy-y0

	x, y := int(x0), int(y0)
	xa, xb := g.clampIdx(x), g.clampIdx(x+1)
	ya, yb := g.clampIdx(y), g.clampIdx(y+1)

	return g.Idx(xa, ya), g.Idx(xb, ya), g.Idx(xa, yb), g.Idx(xb, yb), tx, ty
}

// Sample bilinearly interpolates every channel of the grid at the normalized
// coordinates uv and writes them to out, which is also returned. If out is
// nil, a new slice is allocated.
func (g *Grid) Sample(uv Vec2, out []float64) []float64 {
	if out == nil {
		out = make([]float64, g.channels)
	}
	i00, i10, i01, i11, tx, ty := g.footprint(uv)
	for c := 0; c < g.channels; c++ {
		out[c] = lerp(
			lerp(g.Vals[i00+c], g.Vals[i10+c], tx),
			lerp(g.Vals[i01+c], g.Vals[i11+c], tx),
			ty,
		)
	}
	return out
}

// Sample1 bilinearly interpolates the first channel of the grid at uv.
func (g *Grid) Sample1(uv Vec2) float64 {
	i00, i10, i01, i11, tx, ty := g.footprint(uv)
	return lerp(
		lerp(g.Vals[i00], g.Vals[i10], tx),
		lerp(g.Vals[i01], g.Vals[i11], tx),
		ty,
	)
}

// Sample2 bilinearly interpolates the first two channels of the grid at uv.
func (g *Grid) Sample2(uv Vec2) Vec2 {
	i00, i10, i01, i11, tx, ty := g.footprint(uv)
	var v Vec2
	for c := 0; c < 2; c++ {
		v[c] = lerp(
			lerp(g.Vals[i00+c], g.Vals[i10+c], tx),
			lerp(g.Vals[i01+c], g.Vals[i11+c], tx),
			ty,
		)
	}
	return v
}

// clampCoord keeps far out-of-range coordinates from overflowing int.
func clampCoord(f, w float64) float64 {
	if f < -1 {
		return -1
	} else if f > w {
		return w
	}
	return f
}

func lerp(a, b, t float64) float64 { return a*(1-t) + b*t }

// Clear sets every value in the grid to zero.
func (g *Grid) Clear() {
	for i := range g.Vals {
		g.Vals[i] = 0
	}
}

// Fill sets every texel to the given channel values. Missing channels are
// set to zero.
func (g *Grid) Fill(vals ...float64) {
	if len(vals) > g.channels {
		panic(fmt.Sprintf(
			"Fill given %d values, but grid has %d channels.",
			len(vals), g.channels,
		))
	}
	for i := 0; i < len(g.Vals); i += g.channels {
		for c := 0; c < g.channels; c++ {
			if c < len(vals) {
				g.Vals[i+c] = vals[c]
			} else {
				g.Vals[i+c] = 0
			}
		}
	}
}

// SameShape returns true if both grids have the same width and channel count.
func (g *Grid) SameShape(h *Grid) bool {
	return g.width == h.width && g.channels == h.channels
}

// CopyFrom overwrites g with the contents of src. The grids must have the
// same shape.
func (g *Grid) CopyFrom(src *Grid) {
	if !g.SameShape(src) {
		panic(fmt.Sprintf(
			"Cannot copy a %dx%d grid with %d channels into a %dx%d grid "+
				"with %d channels.", src.width, src.width, src.channels,
			g.width, g.width, g.channels,
		))
	}
	copy(g.Vals, src.Vals)
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	h := NewGrid(g.width, g.channels)
	copy(h.Vals, g.Vals)
	return h
}

// Channel returns a copy of channel c of every texel.
func (g *Grid) Channel(c int) []float64 {
	out := make([]float64, g.width*g.width)
	for i := range out {
		out[i] = g.Vals[i*g.channels+c]
	}
	return out
}
