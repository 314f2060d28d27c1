package geom

import (
	"errors"
	"fmt"
)

// ErrEmptyPyramid is returned when a pyramid would have no levels.
var ErrEmptyPyramid = errors.New("grid pyramid has no levels")

// Pyramid is a sequence of grids of strictly decreasing resolution, built by
// repeatedly halving a base resolution. Levels are ordered coarsest first,
// so Levels[len(Levels)-1] has the base resolution.
type Pyramid struct {
	Levels []*Grid
}

// PyramidWidths returns the widths of the levels of a pyramid built from
// base, coarsest first. A level is included as long as its width is strictly
// greater than minWidth.
func PyramidWidths(base, minWidth int) []int {
	widths := []int{}
	for w := base; w > minWidth && w > 0; w /= 2 {
		widths = append(widths, w)
	}

	for i, j := 0, len(widths)-1; i < j; i, j = i+1, j-1 {
		widths[i], widths[j] = widths[j], widths[i]
	}
	return widths
}

// NewPyramid allocates a zeroed Pyramid with the given channel count. It
// returns an error if base is too small to produce a single level.
func NewPyramid(base, minWidth, channels int) (*Pyramid, error) {
	widths := PyramidWidths(base, minWidth)
	if len(widths) == 0 {
		return nil, fmt.Errorf(
			"%w: base width %d must be larger than minimum width %d",
			ErrEmptyPyramid, base, minWidth,
		)
	}

	p := &Pyramid{Levels: make([]*Grid, len(widths))}
	for i, w := range widths {
		p.Levels[i] = NewGrid(w, channels)
	}
	return p, nil
}

// Len returns the number of levels in the pyramid.
func (p *Pyramid) Len() int { return len(p.Levels) }

// Level returns level i. Level 0 is the coarsest.
func (p *Pyramid) Level(i int) *Grid { return p.Levels[i] }

// Finest returns the level with the base resolution.
func (p *Pyramid) Finest() *Grid { return p.Levels[len(p.Levels)-1] }

// Widths returns the width of every level, coarsest first.
func (p *Pyramid) Widths() []int {
	widths := make([]int, len(p.Levels))
	for i, g := range p.Levels {
		widths[i] = g.Width()
	}
	return widths
}

// Clear zeroes every level.
func (p *Pyramid) Clear() {
	for _, g := range p.Levels {
		g.Clear()
	}
}
