/*package transport moves light through a displaced grid mesh.

The domain is an N x N grid of cells whose (N+1) x (N+1) corners are the
vertices of a triangle mesh. Each vertex is moved by a two-channel
displacement field of width N+1, and the moved mesh is drawn into an output
grid, which is usually finer than the domain.
*/
package transport

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
)

// DisplacementCoord returns the coordinates in the displacement field of
// the mesh vertex at uv in an n x n domain.
func DisplacementCoord(uv geom.Vec2, n int) geom.Vec2 {
	k, d := float64(n+1), float64(n+2)
	return geom.Vec2{(uv[0]*k + 0.5) / d, (uv[1]*k + 0.5) / d}
}

// DomainCoord is the inverse of DisplacementCoord.
func DomainCoord(c geom.Vec2, n int) geom.Vec2 {
	k, d := float64(n+1), float64(n+2)
	return geom.Vec2{(c[0]*d - 0.5) / k, (c[1]*d - 0.5) / k}
}

// Evaluator draws the displaced mesh of an n x n domain.
type Evaluator struct {
	Mesh       *render.Mesh
	Resolution int
}

// NewEvaluator returns an Evaluator for an n x n domain.
func NewEvaluator(n int) *Evaluator {
	return &Evaluator{Mesh: render.NewGridMesh(n), Resolution: n}
}

func (ev *Evaluator) checkDisp(disp *geom.Grid) {
	render.RequireChannels("displacements", disp, 2)
	if disp.Width() != ev.Resolution+1 {
		panic(fmt.Sprintf(
			"Displacement grid has width %d, but a domain of width %d "+
				"requires width %d.", disp.Width(), ev.Resolution,
			ev.Resolution+1,
		))
	}
}

// vertex returns the vertex function which moves every mesh vertex by the
// displacement field.
func (ev *Evaluator) vertex(disp *geom.Grid) render.VertexFunc {
	n := ev.Resolution
	return func(_ int, uv geom.Vec2) geom.Vec2 {
		return uv.Add(disp.Sample2(DisplacementCoord(uv, n)))
	}
}

// Lightmap draws the displaced mesh into dst with additive blending. Each
// fragment carries density(uv) * source(uv), where uv is the fragment's
// undisplaced position. If maxIntensity is positive, every fragment is
// limited to at most maxIntensity.
func (ev *Evaluator) Lightmap(
	pipe *render.Pipeline, dst, disp, dens, source *geom.Grid,
	maxIntensity float64,
) {
	render.RequireChannels("lightmap", dst, 1)
	render.RequireChannels("densities", dens, 1)
	render.Require("source", source)
	ev.checkDisp(disp)
	render.Distinct(dst, disp, dens, source)

	frag := func(uv geom.Vec2, out []float64) {
		v := dens.Sample1(uv) * source.Sample1(uv)
		if maxIntensity > 0 {
			v = math.Min(v, maxIntensity)
		}
		out[0] = v
	}

	pipe.Rasterize(dst, ev.Mesh, ev.vertex(disp), frag, render.Additive)
}

// TransportUV draws the displaced mesh into the two-channel grid dst,
// storing each fragment's undisplaced position. Where triangles overlap,
// the last one drawn wins. Pixels no triangle reaches are set to NaN, see
// Covered.
func (ev *Evaluator) TransportUV(pipe *render.Pipeline, dst, disp *geom.Grid) {
	render.RequireChannels("transport uv", dst, 2)
	ev.checkDisp(disp)
	render.Distinct(dst, disp)

	frag := func(uv geom.Vec2, out []float64) {
		out[0], out[1] = uv[0], uv[1]
	}

	dst.Fill(math.NaN(), math.NaN())
	pipe.Draw(dst, ev.Mesh, ev.vertex(disp), frag, render.Replace)
}

// Covered returns true if a transport uv texel was reached by a triangle.
func Covered(texel []float64) bool {
	return !math.IsNaN(texel[0]) && !math.IsNaN(texel[1])
}

// Pullback resamples field at the undisplaced position of every cell of
// dst, as recorded in a transport uv grid of the same width. Cells which no
// triangle covered are set to zero.
func Pullback(pipe *render.Pipeline, dst, field, tuv *geom.Grid) {
	render.Require("pullback target", dst)
	render.RequireChannels("field", field, dst.Channels())
	render.RequireChannels("transport uv", tuv, 2)
	render.Distinct(dst, field, tuv)
	if tuv.Width() != dst.Width() {
		panic(fmt.Sprintf(
			"Transport uv grid has width %d, but pullback target has "+
				"width %d.", tuv.Width(), dst.Width(),
		))
	}

	pipe.Apply(dst, func(x, y int, _ geom.Vec2, out []float64) {
		t := tuv.Texel(x, y)
		if !Covered(t) {
			return
		}
		field.Sample(geom.Vec2{t[0], t[1]}, out)
	})
}
