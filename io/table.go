package io

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/caustic/geom"
)

// ReadTableGrid reads a one-channel grid from a text file with "x y value"
// columns. x and y are integer texel coordinates and every texel of the
// square grid they span must appear exactly once.
func ReadTableGrid(file string) (*geom.Grid, error) {
	cols, err := table.ReadTable(file, []int{0, 1, 2}, nil)
	if err != nil {
		return nil, err
	}
	return tableGrid(file, cols[0], cols[1], cols[2])
}

func tableGrid(file string, xs, ys, vals []float64) (*geom.Grid, error) {
	if len(xs) == 0 {
		return nil, fmt.Errorf("Table %s is empty.", file)
	}

	width := 0
	for i := range xs {
		if xs[i] != math.Trunc(xs[i]) || ys[i] != math.Trunc(ys[i]) ||
			xs[i] < 0 || ys[i] < 0 {
			return nil, fmt.Errorf(
				"Line %d of table %s has invalid coordinates (%g, %g).",
				i, file, xs[i], ys[i],
			)
		}
		if int(xs[i]) >= width {
			width = int(xs[i]) + 1
		}
		if int(ys[i]) >= width {
			width = int(ys[i]) + 1
		}
	}

	if len(xs) != width*width {
		return nil, fmt.Errorf(
			"Table %s has %d rows, but spans a %dx%d grid.",
			file, len(xs), width, width,
		)
	}

	g := geom.NewGrid(width, 1)
	seen := make([]bool, width*width)
	for i := range xs {
		x, y := int(xs[i]), int(ys[i])
		if seen[g.Idx(x, y)] {
			return nil, fmt.Errorf(
				"Texel (%d, %d) appears more than once in table %s.",
				x, y, file,
			)
		}
		seen[g.Idx(x, y)] = true
		g.Set(x, y, 0, vals[i])
	}

	return g, nil
}
