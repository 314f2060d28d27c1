package integrator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
	"github.com/phil-mansfield/caustic/transport"
)

func randomGrid(gen *rand.Rand, width, channels int) *geom.Grid {
	g := geom.NewGrid(width, channels)
	for i := range g.Vals {
		g.Vals[i] = gen.Float64()*2 - 1
	}
	return g
}

func TestBand(t *testing.T) {
	tests := []struct {
		width float64
		n     int
		exp   int
	}{
		{0.01, 8, 1},
		{0.01, 256, 3},
		{0.01, 50, 1},
		{0.1, 64, 7},
		{0.25, 8, 2},
		{0, 64, 0},
		{-1, 64, 0},
	}

	for i, test := range tests {
		b := Border{Width: test.width}
		assert.Equal(t, test.exp, b.Band(test.n), "test %d", i)
	}

	b := DefaultBorder()
	assert.True(t, b.Contains(0, 4, 8))
	assert.True(t, b.Contains(4, 7, 8))
	assert.False(t, b.Contains(1, 6, 8))
}

func TestDifferenceBorder(t *testing.T) {
	gen := rand.New(rand.NewSource(3))
	n := 16
	target, lightmap := randomGrid(gen, n, 1), randomGrid(gen, 2*n, 1)
	dst := geom.NewGrid(n, 1)
	border := Border{Width: 0.1, Sink: -0.02}

	Difference(render.NewPipeline(3), dst, target, lightmap, border)

	band := border.Band(n)
	assert.Equal(t, 2, band)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if border.Contains(x, y, n) {
				assert.Equal(t, -0.02, dst.At(x, y, 0))
				continue
			}
			uv := dst.TexelCenter(x, y)
			exp := target.At(x, y, 0) - lightmap.Sample1(uv)
			assert.InDelta(t, exp, dst.At(x, y, 0), 1e-12)
		}
	}
}

func TestDifferenceNoBorder(t *testing.T) {
	n := 8
	target, lightmap := geom.NewGrid(n, 1), geom.NewGrid(n, 1)
	target.Fill(1)
	lightmap.Fill(0.25)
	dst := geom.NewGrid(n, 1)

	Difference(render.NewPipeline(1), dst, target, lightmap, Border{})
	for _, v := range dst.Vals {
		assert.Equal(t, 0.75, v)
	}
}

func TestGradient(t *testing.T) {
	n := 8
	phi := geom.NewGrid(n, 1)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := phi.TexelCenter(x, y)
			phi.Set(x, y, 0, 3*c[0]-2*c[1])
		}
	}

	dst := geom.NewGrid(n, 2)
	Gradient(render.NewPipeline(2), dst, phi)

	for y := 1; y < n-1; y++ {
		for x := 1; x < n-1; x++ {
			assert.InDelta(t, 6, dst.At(x, y, 0), 1e-9)
			assert.InDelta(t, -4, dst.At(x, y, 1), 1e-9)
		}
	}
	// One side of the stencil is clamped at the edges.
	assert.InDelta(t, 3, dst.At(0, 3, 0), 1e-9)
	assert.InDelta(t, -2, dst.At(3, n-1, 1), 1e-9)
}

func TestIntegrateZeroGradient(t *testing.T) {
	gen := rand.New(rand.NewSource(11))
	n := 8
	disp := randomGrid(gen, n+1, 2)
	disp.Set(2, 2, 0, math.Copysign(0, -1))
	dst := geom.NewGrid(n+1, 2)

	Integrate(render.NewPipeline(3), dst, disp, geom.NewGrid(n, 2), 0.1)
	for i := range disp.Vals {
		assert.Equal(t, math.Float64bits(disp.Vals[i]),
			math.Float64bits(dst.Vals[i]), "value %d", i)
	}
}

func TestIntegrateConstantGradient(t *testing.T) {
	n := 8
	disp := geom.NewGrid(n+1, 2)
	disp.Fill(0.01, -0.02)
	grad := geom.NewGrid(n, 2)
	grad.Fill(2, 3)
	dst := geom.NewGrid(n+1, 2)

	Integrate(render.NewPipeline(2), dst, disp, grad, 0.5)
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			assert.InDelta(t, 1.01, dst.At(x, y, 0), 1e-12)
			assert.InDelta(t, 1.48, dst.At(x, y, 1), 1e-12)
		}
	}
}

func TestIntegrateSemiLagrangian(t *testing.T) {
	n := 8
	grad := geom.NewGrid(n, 2)
	grad.Set(5, 2, 0, 1)

	// Point texel (1, 1) at the center of gradient cell (5, 2).
	disp := geom.NewGrid(n+1, 2)
	c := transport.DomainCoord(disp.TexelCenter(1, 1), n)
	target := grad.TexelCenter(5, 2)
	disp.Set(1, 1, 0, target[0]-c[0])
	disp.Set(1, 1, 1, target[1]-c[1])

	dst := geom.NewGrid(n+1, 2)
	Integrate(render.NewPipeline(1), dst, disp, grad, 0.25)

	assert.InDelta(t, disp.At(1, 1, 0)+0.25, dst.At(1, 1, 0), 1e-9)
	assert.InDelta(t, disp.At(1, 1, 1), dst.At(1, 1, 1), 1e-9)
	assert.Equal(t, 0.0, dst.At(0, n, 0))
}

func TestDivergence(t *testing.T) {
	n := 8
	s := 0.05
	disp := geom.NewGrid(n+1, 2)
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			uv := transport.DomainCoord(disp.TexelCenter(x, y), n)
			disp.Set(x, y, 0, s*uv[0])
			disp.Set(x, y, 1, s*uv[1])
		}
	}

	dst := geom.NewGrid(n, 1)
	Divergence(render.NewPipeline(2), dst, disp)
	for y := 2; y < n-2; y++ {
		for x := 2; x < n-2; x++ {
			assert.InDelta(t, 4*s, dst.At(x, y, 0), 1e-9)
		}
	}

	Divergence(render.NewPipeline(2), dst, geom.NewGrid(n+1, 2))
	for _, v := range dst.Vals {
		assert.Equal(t, 0.0, v)
	}
}

func TestCorrect(t *testing.T) {
	n := 4
	disp := geom.NewGrid(n+1, 2)
	disp.Fill(0.5, 0.25)
	corr := geom.NewGrid(n, 2)
	corr.Fill(-1, 2)
	dst := geom.NewGrid(n+1, 2)

	Correct(render.NewPipeline(1), dst, disp, corr, 0.125)
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			assert.InDelta(t, 0.375, dst.At(x, y, 0), 1e-12)
			assert.InDelta(t, 0.5, dst.At(x, y, 1), 1e-12)
		}
	}
}

func TestPanics(t *testing.T) {
	pipe := render.NewPipeline(1)
	disp := geom.NewGrid(5, 2)

	assert.Panics(t, func() { Integrate(pipe, disp, disp, geom.NewGrid(4, 2), 1) })
	assert.Panics(t, func() {
		Integrate(pipe, geom.NewGrid(4, 2), disp, geom.NewGrid(4, 2), 1)
	})
	assert.Panics(t, func() { Gradient(pipe, geom.NewGrid(4, 1), geom.NewGrid(4, 1)) })
	assert.Panics(t, func() {
		Difference(pipe, geom.NewGrid(4, 1), nil, geom.NewGrid(4, 1), DefaultBorder())
	})
}
