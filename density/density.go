/*package density estimates how strongly a displacement field compresses or
stretches the cells of a regular grid.
*/
package density

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
)

// Estimator computes the area ratio of every undeformed cell to its deformed
// counterpart. A cell which has been squeezed has a density above 1 and a
// cell which has been folded over has a negative density.
type Estimator struct {
	// Clamp limits densities to [-Clamp, Clamp] when positive. Zero leaves
	// them unbounded.
	Clamp float64
}

// Estimate writes the density of every cell of dst. disp is the
// two-channel displacement field, and must be exactly one texel wider than
// dst so that its texels sit on the corners of dst's cells.
//
// Displacements are in domain units, where the whole domain is 1 wide.
// Corner (i, j) of a cell reads displacement texel (x+i, y+j), which is the
// texel whose center lies at ((x+i+0.5)/(N+1), (y+j+0.5)/(N+1)). Each corner
// is then pushed outwards by its own undisplaced offset of half a cell,
// w = 1/(2N). The density is the undisplaced cell area 4w^2 = 1/N^2 divided
// by the signed area of the resulting quadrilateral.
func (e *Estimator) Estimate(pipe *render.Pipeline, dst, disp *geom.Grid) {
	render.RequireChannels("densities", dst, 1)
	render.RequireChannels("displacements", disp, 2)
	render.Distinct(dst, disp)

	n := dst.Width()
	if disp.Width() != n+1 {
		panic(fmt.Sprintf(
			"Displacement grid has width %d, but density grid of width %d "+
				"requires width %d.", disp.Width(), n, n+1,
		))
	}

	w := 0.5 / float64(n)
	unit := 4 * w * w
	clamp := e.Clamp

	pipe.Apply(dst, func(x, y int, _ geom.Vec2, out []float64) {
		c00 := corner(disp, x, y).Add(geom.Vec2{-w, -w})
		c10 := corner(disp, x+1, y).Add(geom.Vec2{w, -w})
		c11 := corner(disp, x+1, y+1).Add(geom.Vec2{w, w})
		c01 := corner(disp, x, y+1).Add(geom.Vec2{-w, w})

		rho := unit / geom.QuadArea(c00, c10, c11, c01)
		if clamp > 0 {
			rho = math.Max(-clamp, math.Min(clamp, rho))
		}
		out[0] = rho
	})
}

func corner(disp *geom.Grid, x, y int) geom.Vec2 {
	t := disp.Texel(x, y)
	return geom.Vec2{t[0], t[1]}
}
