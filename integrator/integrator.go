/*package integrator turns the mismatch between a lightmap and its target
into an update of the displacement field.

The passes are, in order: Difference, a Poisson solve of the difference (see
the multigrid package), Gradient of the resulting potential, and Integrate,
which moves every displacement texel along that gradient. Divergence and
Correct implement an optional second correction step on top of these.
*/
package integrator

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
	"github.com/phil-mansfield/caustic/transport"
)

// Border describes the band around the edge of the domain that light is
// pushed away from.
type Border struct {
	// Width is the width of the band as a fraction of the domain.
	Width float64

	// Sink is the value the difference takes inside the band.
	Sink float64
}

// DefaultBorder returns the Border used when nothing else is configured.
func DefaultBorder() Border { return Border{Width: 0.01, Sink: -0.02} }

// Band returns the width of the border band in cells for a grid of width
// n. Any positive Width gives a band at least one cell wide.
func (b Border) Band(n int) int {
	if b.Width <= 0 {
		return 0
	}
	return int(math.Ceil(b.Width * float64(n)))
}

// Contains returns true if cell (x, y) of a grid of width n is inside the
// border band.
func (b Border) Contains(x, y, n int) bool {
	band := b.Band(n)
	return x < band || y < band || x >= n-band || y >= n-band
}

// Difference writes target - lightmap to every cell of dst outside the
// border band and border.Sink to every cell inside it. target and lightmap
// are resampled at the resolution of dst.
func Difference(
	pipe *render.Pipeline, dst, target, lightmap *geom.Grid, border Border,
) {
	render.RequireChannels("difference", dst, 1)
	render.RequireChannels("target", target, 1)
	render.RequireChannels("lightmap", lightmap, 1)
	render.Distinct(dst, target, lightmap)

	n := dst.Width()
	band := border.Band(n)
	pipe.Apply(dst, func(x, y int, uv geom.Vec2, out []float64) {
		if x < band || y < band || x >= n-band || y >= n-band {
			out[0] = border.Sink
			return
		}
		out[0] = target.Sample1(uv) - lightmap.Sample1(uv)
	})
}

// Gradient writes the central-difference gradient of potential to the
// two-channel grid dst:
//
//	res * (potential(uv + dx) - potential(uv - dx))
//
// per axis, where res is the width of dst and dx is one of its texels.
func Gradient(pipe *render.Pipeline, dst, potential *geom.Grid) {
	render.RequireChannels("gradient", dst, 2)
	render.RequireChannels("potential", potential, 1)
	render.Distinct(dst, potential)

	res := float64(dst.Width())
	h := 1 / res
	pipe.Apply(dst, func(_, _ int, uv geom.Vec2, out []float64) {
		out[0] = res * (potential.Sample1(geom.Vec2{uv[0] + h, uv[1]}) -
			potential.Sample1(geom.Vec2{uv[0] - h, uv[1]}))
		out[1] = res * (potential.Sample1(geom.Vec2{uv[0], uv[1] + h}) -
			potential.Sample1(geom.Vec2{uv[0], uv[1] - h}))
	})
}

func checkDisp(name string, dst, disp *geom.Grid) {
	render.RequireChannels(name, dst, 2)
	render.RequireChannels("displacements", disp, 2)
	if dst.Width() != disp.Width() {
		panic(fmt.Sprintf(
			"Displacement grid has width %d, but %s has width %d.",
			disp.Width(), name, dst.Width(),
		))
	}
}

// Integrate advances the displacement field by one step. For every texel
// of disp, it finds the texel's position uv in the domain and writes
//
//	d + step * gradient(uv + d)
//
// to dst, where d is the texel's current displacement. The gradient is read
// at the displaced position, so a texel is moved by the gradient at the
// place it currently sends light to.
func Integrate(
	pipe *render.Pipeline, dst, disp, gradient *geom.Grid, step float64,
) {
	checkDisp("integrated displacements", dst, disp)
	render.RequireChannels("gradient", gradient, 2)
	render.Distinct(dst, disp, gradient)

	n := disp.Width() - 1
	pipe.Apply(dst, func(x, y int, c geom.Vec2, out []float64) {
		t := disp.Texel(x, y)
		d := geom.Vec2{t[0], t[1]}
		g := gradient.Sample2(transport.DomainCoord(c, n).Add(d))

		out[0], out[1] = d[0], d[1]
		if g != (geom.Vec2{}) {
			out[0] += step * g[0]
			out[1] += step * g[1]
		}
	})
}

// Divergence writes the divergence of the displacement field to every cell
// of the one-channel grid dst, using the same central differences and
// scaling as Gradient.
func Divergence(pipe *render.Pipeline, dst, disp *geom.Grid) {
	render.RequireChannels("divergence", dst, 1)
	render.RequireChannels("displacements", disp, 2)
	render.Distinct(dst, disp)

	n := disp.Width() - 1
	res := float64(dst.Width())
	h := 1 / res
	at := func(u, v float64) geom.Vec2 {
		return disp.Sample2(transport.DisplacementCoord(geom.Vec2{u, v}, n))
	}

	pipe.Apply(dst, func(_, _ int, uv geom.Vec2, out []float64) {
		ddx := at(uv[0]+h, uv[1])[0] - at(uv[0]-h, uv[1])[0]
		ddy := at(uv[0], uv[1]+h)[1] - at(uv[0], uv[1]-h)[1]
		out[0] = res * (ddx + ddy)
	})
}

// Correct adds weight times the correction field, read at each texel's
// position in the domain, to the displacement field and writes the result
// to dst.
func Correct(
	pipe *render.Pipeline, dst, disp, correction *geom.Grid, weight float64,
) {
	checkDisp("corrected displacements", dst, disp)
	render.RequireChannels("correction", correction, 2)
	render.Distinct(dst, disp, correction)

	n := disp.Width() - 1
	pipe.Apply(dst, func(x, y int, c geom.Vec2, out []float64) {
		t := disp.Texel(x, y)
		g := correction.Sample2(transport.DomainCoord(c, n))
		out[0] = t[0] + weight*g[0]
		out[1] = t[1] + weight*g[1]
	})
}
