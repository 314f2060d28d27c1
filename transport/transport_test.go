package transport

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phil-mansfield/caustic/density"
	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
)

const testEps = 1e-12

func TestCoordsInverse(t *testing.T) {
	for _, n := range []int{1, 4, 7, 64} {
		for _, uv := range []geom.Vec2{{0, 0}, {1, 1}, {0.3, 0.8}} {
			c := DisplacementCoord(uv, n)
			back := DomainCoord(c, n)
			assert.InDelta(t, uv[0], back[0], testEps)
			assert.InDelta(t, uv[1], back[1], testEps)
		}
	}

	assert.Equal(t, geom.Vec2{0.5 / 6, 0.5 / 6}, DisplacementCoord(geom.Vec2{0, 0}, 4))
	assert.Equal(t, geom.Vec2{5.5 / 6, 5.5 / 6}, DisplacementCoord(geom.Vec2{1, 1}, 4))
}

func uniform(width, channels int, vals ...float64) *geom.Grid {
	g := geom.NewGrid(width, channels)
	g.Fill(vals...)
	return g
}

func TestLightmapIdentity(t *testing.T) {
	n, p := 4, 2
	ev := NewEvaluator(n)
	pipe := render.NewPipeline(3)

	dst := geom.NewGrid(n*p, 1)
	disp := geom.NewGrid(n+1, 2)
	ev.Lightmap(pipe, dst, disp, uniform(n, 1, 1), uniform(n*p, 1, 1), 0)

	for i, v := range dst.Vals {
		assert.Equal(t, 1.0, v, "pixel %d", i)
	}
}

func TestLightmapSource(t *testing.T) {
	n, p := 8, 2
	ev := NewEvaluator(n)

	source := geom.NewGrid(n*p, 1)
	gen := rand.New(rand.NewSource(7))
	for i := range source.Vals {
		source.Vals[i] = gen.Float64()
	}

	dst := geom.NewGrid(n*p, 1)
	dens := uniform(n, 1, 2)
	ev.Lightmap(render.NewPipeline(2), dst, geom.NewGrid(n+1, 2), dens, source, 0)

	for i := range dst.Vals {
		assert.InDelta(t, 2*source.Vals[i], dst.Vals[i], 1e-9, "pixel %d", i)
	}
}

func TestLightmapMaxIntensity(t *testing.T) {
	n := 4
	ev := NewEvaluator(n)
	dst := geom.NewGrid(n, 1)
	disp := geom.NewGrid(n+1, 2)
	pipe := render.NewPipeline(1)

	ev.Lightmap(pipe, dst, disp, uniform(n, 1, 1), uniform(n, 1, 5), 2)
	for _, v := range dst.Vals {
		assert.Equal(t, 2.0, v)
	}

	ev.Lightmap(pipe, dst, disp, uniform(n, 1, 1), uniform(n, 1, 5), 0)
	for _, v := range dst.Vals {
		assert.Equal(t, 5.0, v)
	}
}

func TestLightmapTranslation(t *testing.T) {
	n, p := 4, 2
	ev := NewEvaluator(n)
	dst := geom.NewGrid(n*p, 1)
	disp := uniform(n+1, 2, 0.25, 0)

	ev.Lightmap(render.NewPipeline(2), dst, disp,
		uniform(n, 1, 1), uniform(n, 1, 1), 0)

	for y := 0; y < n*p; y++ {
		for x := 0; x < n*p; x++ {
			exp := 1.0
			if x < 2 {
				exp = 0
			}
			assert.Equal(t, exp, dst.At(x, y, 0), "pixel (%d, %d)", x, y)
		}
	}
}

// scaleDisp returns the displacement field of an n x n domain which scales
// the whole domain by s around the origin.
func scaleDisp(n int, s float64) *geom.Grid {
	disp := geom.NewGrid(n+1, 2)
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			disp.Set(i, j, 0, (s-1)*float64(i)/float64(n))
			disp.Set(i, j, 1, (s-1)*float64(j)/float64(n))
		}
	}
	return disp
}

func TestLightmapConservesLight(t *testing.T) {
	tests := []struct {
		n, p    int
		s       float64
		dens    float64 // area ratio of every cell
		covered int     // lit lightmap pixels
		mean    float64 // lightmap mean for a source of mean 1
	}{
		{16, 2, 1, 1, 1024, 1},
		{16, 2, 0.5, 4, 256, 1},
		{8, 4, 0.25, 16, 64, 1},
		{16, 2, 1.5, 1 / 2.25, 1024, 1 / 2.25},
	}

	pipe := render.NewPipeline(3)
	for i, test := range tests {
		ev := NewEvaluator(test.n)
		disp := scaleDisp(test.n, test.s)

		dens := geom.NewGrid(test.n, 1)
		(&density.Estimator{}).Estimate(pipe, dens, disp)
		for _, v := range dens.Vals {
			assert.InDelta(t, test.dens, v, 1e-9, "test %d", i)
		}

		dst := geom.NewGrid(test.n*test.p, 1)
		ev.Lightmap(pipe, dst, disp, dens, uniform(test.n, 1, 1), 0)

		covered, sum := 0, 0.0
		for _, v := range dst.Vals {
			if v != 0 {
				covered++
				assert.InDelta(t, test.dens, v, 1e-9, "test %d", i)
			}
			sum += v
		}
		assert.Equal(t, test.covered, covered, "test %d", i)
		assert.InDelta(t, test.mean, sum/float64(len(dst.Vals)), 1e-9,
			"test %d", i)
	}
}

func TestTransportUV(t *testing.T) {
	n, p := 4, 3
	ev := NewEvaluator(n)
	dst := geom.NewGrid(n*p, 2)
	ev.TransportUV(render.NewPipeline(4), dst, geom.NewGrid(n+1, 2))

	for y := 0; y < n*p; y++ {
		for x := 0; x < n*p; x++ {
			c := dst.TexelCenter(x, y)
			assert.InDelta(t, c[0], dst.At(x, y, 0), testEps)
			assert.InDelta(t, c[1], dst.At(x, y, 1), testEps)
		}
	}
}

func TestPullback(t *testing.T) {
	n := 4
	ev := NewEvaluator(n)
	pipe := render.NewPipeline(2)

	field := geom.NewGrid(2*n, 1)
	for i := range field.Vals {
		field.Vals[i] = float64(i)
	}

	tuv := geom.NewGrid(2*n, 2)
	ev.TransportUV(pipe, tuv, uniform(n+1, 2, 0.25, 0))

	dst := geom.NewGrid(2*n, 1)
	Pullback(pipe, dst, field, tuv)

	for y := 0; y < 2*n; y++ {
		for x := 0; x < 2*n; x++ {
			assert.Equal(t, x >= 2, Covered(tuv.Texel(x, y)),
				"pixel (%d, %d)", x, y)
			if x < 2 {
				assert.Equal(t, 0.0, dst.At(x, y, 0))
			} else {
				// Shifted right by two pixels.
				assert.InDelta(t, field.At(x-2, y, 0), dst.At(x, y, 0), 1e-9)
			}
		}
	}
}

func TestPullbackOrigin(t *testing.T) {
	field := geom.NewGrid(4, 1)
	field.Fill(7)

	tuv := geom.NewGrid(4, 2)
	tuv.Fill(math.NaN(), math.NaN())
	tuv.Set(1, 1, 0, 0)
	tuv.Set(1, 1, 1, 0)
	tuv.Set(2, 1, 0, 0.5)
	tuv.Set(2, 1, 1, 0.5)

	dst := geom.NewGrid(4, 1)
	Pullback(render.NewPipeline(2), dst, field, tuv)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			exp := 0.0
			if y == 1 && (x == 1 || x == 2) {
				exp = 7
			}
			assert.Equal(t, exp, dst.At(x, y, 0), "pixel (%d, %d)", x, y)
		}
	}
}

func TestEvaluatorPanics(t *testing.T) {
	ev := NewEvaluator(4)
	pipe := render.NewPipeline(1)
	dst := geom.NewGrid(8, 1)
	ones := uniform(4, 1, 1)

	assert.Panics(t, func() {
		ev.Lightmap(pipe, dst, geom.NewGrid(4, 2), ones, ones, 0)
	})
	assert.Panics(t, func() {
		ev.Lightmap(pipe, dst, geom.NewGrid(5, 2), ones, nil, 0)
	})
	assert.Panics(t, func() {
		ev.TransportUV(pipe, dst, geom.NewGrid(5, 2))
	})
	assert.Panics(t, func() {
		Pullback(pipe, dst, dst, geom.NewGrid(8, 2))
	})
}
