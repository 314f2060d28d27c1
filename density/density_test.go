package density

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
)

const testEps = 1e-10

// linearDisp returns a displacement field where the texel on corner (i, j)
// is moved by (sx*i/n + tx, sy*j/n + ty). Every cell is then scaled by
// (1 + sx, 1 + sy) and has density 1/((1 + sx)(1 + sy)).
func linearDisp(n int, sx, sy, tx, ty float64) *geom.Grid {
	disp := geom.NewGrid(n+1, 2)
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			disp.Set(i, j, 0, sx*float64(i)/float64(n)+tx)
			disp.Set(i, j, 1, sy*float64(j)/float64(n)+ty)
		}
	}
	return disp
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		n              int
		sx, sy, tx, ty float64
		exp            float64
	}{
		{8, 0, 0, 0, 0, 1},
		{10, 0, 0, 0, 0, 1},
		{7, 0, 0, 0.3, -0.2, 1},
		{8, 2, 2, 0, 0, 1.0 / 9},
		{8, 2, 0, 0, 0, 1.0 / 3},
		{8, -0.5, -0.5, 0, 0, 4},
		{16, -0.5, -0.5, 0.1, 0, 4},
		{8, 0, -0.75, 0, 0, 4},
		{8, -2, 0, 0, 0, -1},
	}

	pipe := render.NewPipeline(3)
	for i, test := range tests {
		dst := geom.NewGrid(test.n, 1)
		disp := linearDisp(test.n, test.sx, test.sy, test.tx, test.ty)
		(&Estimator{}).Estimate(pipe, dst, disp)

		for j, v := range dst.Vals {
			assert.InDelta(t, test.exp, v, testEps, "test %d, cell %d", i, j)
		}
	}
}

func TestEstimateLocal(t *testing.T) {
	n := 8
	disp := geom.NewGrid(n+1, 2)
	// Pull a single corner towards the center of cell (3, 3).
	disp.Set(3, 3, 0, 0.5/float64(n))
	disp.Set(3, 3, 1, 0.5/float64(n))

	dst := geom.NewGrid(n, 1)
	(&Estimator{}).Estimate(render.NewPipeline(2), dst, disp)

	assert.Greater(t, dst.At(3, 3, 0), 1.0)
	assert.Less(t, dst.At(2, 2, 0), 1.0)
	assert.InDelta(t, 1.0, dst.At(6, 6, 0), testEps)
}

func TestEstimateClamp(t *testing.T) {
	n := 8
	disp := linearDisp(n, -0.995, 0, 0, 0)
	dst := geom.NewGrid(n, 1)
	pipe := render.NewPipeline(1)

	(&Estimator{}).Estimate(pipe, dst, disp)
	assert.InDelta(t, 200, dst.At(0, 0, 0), 1e-6)

	(&Estimator{Clamp: 50}).Estimate(pipe, dst, disp)
	for _, v := range dst.Vals {
		assert.Equal(t, 50.0, v)
	}

	(&Estimator{Clamp: 50}).Estimate(pipe, dst, linearDisp(n, -3, 0, 0, 0))
	for _, v := range dst.Vals {
		assert.InDelta(t, -0.5, v, testEps)
	}
}

func TestEstimateDegenerate(t *testing.T) {
	n := 4
	dst := geom.NewGrid(n, 1)
	(&Estimator{}).Estimate(render.NewPipeline(1), dst, linearDisp(n, -1, 0, 0, 0))
	for _, v := range dst.Vals {
		assert.True(t, math.IsInf(v, 0))
	}
}

func TestEstimatePanics(t *testing.T) {
	pipe := render.NewPipeline(1)
	e := &Estimator{}
	assert.Panics(t, func() { e.Estimate(pipe, geom.NewGrid(8, 1), geom.NewGrid(8, 2)) })
	assert.Panics(t, func() { e.Estimate(pipe, geom.NewGrid(8, 1), geom.NewGrid(9, 1)) })
	assert.Panics(t, func() { e.Estimate(pipe, geom.NewGrid(8, 1), nil) })
}

func BenchmarkEstimate(b *testing.B) {
	pipe := render.NewPipeline(0)
	dst := geom.NewGrid(256, 1)
	disp := linearDisp(256, 0.1, 0.1, 0, 0)
	e := &Estimator{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Estimate(pipe, dst, disp)
	}
}
