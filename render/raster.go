package render

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/caustic/geom"
)

// Blend is the way fragments are combined with the target.
type Blend int

const (
	// Replace keeps the last fragment drawn to a pixel, in triangle order.
	Replace Blend = iota
	// Additive sums every fragment drawn to a pixel.
	Additive
)

func (b Blend) String() string {
	switch b {
	case Replace:
		return "Replace"
	case Additive:
		return "Additive"
	}
	return fmt.Sprintf("Blend(%d)", int(b))
}

// Mesh is an indexed triangle mesh. Every vertex carries its undisplaced
// position in the unit square, which is also the attribute interpolated
// across each triangle.
type Mesh struct {
	UV   []geom.Vec2
	Tris [][3]int
}

// NewGridMesh returns the mesh of the unit square cut into n x n quads. It
// has (n+1)^2 vertices, with vertex (x, y) at index x + y*(n+1), and each
// quad is split into the triangles (00, 10, 11) and (00, 11, 01).
func NewGridMesh(n int) *Mesh {
	if n < 1 {
		panic(fmt.Sprintf("Mesh width is %d, must be positive.", n))
	}

	vn := n + 1
	m := &Mesh{
		UV:   make([]geom.Vec2, vn*vn),
		Tris: make([][3]int, 0, 2*n*n),
	}
	for y := 0; y < vn; y++ {
		for x := 0; x < vn; x++ {
			m.UV[x+y*vn] = geom.Vec2{float64(x) / float64(n), float64(y) / float64(n)}
		}
	}

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i00, i10 := x+y*vn, x+1+y*vn
			i01, i11 := x+(y+1)*vn, x+1+(y+1)*vn
			m.Tris = append(m.Tris, [3]int{i00, i10, i11}, [3]int{i00, i11, i01})
		}
	}

	return m
}

// VertexFunc maps the undisplaced position of vertex i to its position in
// the target, in normalized coordinates.
type VertexFunc func(i int, uv geom.Vec2) geom.Vec2

// FragmentFunc computes the value of a fragment from the interpolated
// undisplaced position and writes it to out.
type FragmentFunc func(uv geom.Vec2, out []float64)

// Rasterize clears target and draws mesh into it. Each vertex is moved by
// vertex, and every pixel whose center is covered by a moved triangle gets
// one fragment. Both windings are drawn and zero-area triangles are
// skipped. Pixels on an edge shared by two triangles are covered by exactly
// one of them.
func (p *Pipeline) Rasterize(
	target *geom.Grid, mesh *Mesh, vertex VertexFunc,
	fragment FragmentFunc, blend Blend,
) {
	target.Clear()
	p.Draw(target, mesh, vertex, fragment, blend)
}

// Draw is Rasterize without clearing target first. Pixels no triangle
// covers keep their previous values.
func (p *Pipeline) Draw(
	target *geom.Grid, mesh *Mesh, vertex VertexFunc,
	fragment FragmentFunc, blend Blend,
) {
	w := float64(target.Width())
	pos := make([]geom.Vec2, len(mesh.UV))
	p.Bands(len(pos), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			pos[i] = vertex(i, mesh.UV[i]).Scale(w)
		}
	})

	p.Bands(target.Width(), func(_, lo, hi int) {
		rasterizeBand(target, mesh, pos, fragment, blend, lo, hi)
	})
}

// rasterizeBand draws every triangle of the mesh clipped to the rows
// [lo, hi) of target.
func rasterizeBand(
	target *geom.Grid, mesh *Mesh, pos []geom.Vec2,
	fragment FragmentFunc, blend Blend, lo, hi int,
) {
	ch := target.Channels()
	maxX := float64(target.Width() - 1)
	frag := make([]float64, ch)

	for _, tri := range mesh.Tris {
		ia, ib, ic := tri[0], tri[1], tri[2]
		a, b, c := pos[ia], pos[ib], pos[ic]

		area2 := b.Sub(a).Cross(c.Sub(a))
		if area2 == 0 || !(math.Abs(area2) < math.Inf(1)) {
			continue
		}
		if area2 < 0 {
			ib, ic = ic, ib
			b, c = c, b
		}

		x0 := math.Max(math.Floor(math.Min(a[0], math.Min(b[0], c[0]))-0.5), 0)
		x1 := math.Min(math.Ceil(math.Max(a[0], math.Max(b[0], c[0]))-0.5), maxX)
		y0 := math.Max(math.Floor(math.Min(a[1], math.Min(b[1], c[1]))-0.5), float64(lo))
		y1 := math.Min(math.Ceil(math.Max(a[1], math.Max(b[1], c[1]))-0.5), float64(hi-1))
		if x0 > x1 || y0 > y1 {
			continue
		}

		uvA, uvB, uvC := mesh.UV[ia], mesh.UV[ib], mesh.UV[ic]
		for y := int(y0); y <= int(y1); y++ {
			for x := int(x0); x <= int(x1); x++ {
				pt := geom.Vec2{float64(x) + 0.5, float64(y) + 0.5}

				eA, okA := edge(pos, ib, ic, pt)
				if !okA {
					continue
				}
				eB, okB := edge(pos, ic, ia, pt)
				if !okB {
					continue
				}
				eC, okC := edge(pos, ia, ib, pt)
				if !okC {
					continue
				}

				sum := eA + eB + eC
				uv := uvA.Scale(eA / sum).Add(uvB.Scale(eB / sum)).
					Add(uvC.Scale(eC / sum))

				for k := range frag {
					frag[k] = 0
				}
				fragment(uv, frag)

				out := target.Texel(x, y)
				switch blend {
				case Additive:
					for k := range out {
						out[k] += frag[k]
					}
				default:
					copy(out, frag)
				}
			}
		}
	}
}

// edge evaluates the edge function of the directed edge (i, j) at pt and
// reports whether pt is covered by it. Points on the edge are covered only
// when the edge is a top or left edge.
//
// The edge function is always computed from the lower vertex index to the
// higher one, so the two triangles sharing an edge see exactly opposite
// values and the tie rule assigns each pixel center to exactly one of them.
func edge(pos []geom.Vec2, i, j int, pt geom.Vec2) (float64, bool) {
	flip := false
	if i > j {
		i, j, flip = j, i, true
	}

	a, b := pos[i], pos[j]
	d := b.Sub(a)
	e := d.Cross(pt.Sub(a))
	topLeft := d[1] < 0 || (d[1] == 0 && d[0] > 0)
	if flip {
		e, topLeft = -e, !topLeft
	}

	if e > 0 {
		return e, true
	}
	return e, e == 0 && topLeft
}
