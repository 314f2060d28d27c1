/*package multigrid approximately solves the discrete Poisson equation on a
square grid by Jacobi relaxation over a pyramid of resolutions.

The solver never tests for convergence. It runs a fixed number of sweeps per
level, and whatever it has reached when the budget runs out is the answer.
*/
package multigrid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/render"
)

var (
	// ErrSubIterations is returned for non-positive sweep counts.
	ErrSubIterations = errors.New("sub-iteration count must be positive")
	// ErrWeights is returned for non-finite relaxation weights.
	ErrWeights = errors.New("relaxation weights must be finite")
)

// Params are the relaxation weights and sweep budget of a Solver.
type Params struct {
	// SubIterations is the number of sweeps run at every level.
	SubIterations int

	// Mix weights the sum of the four neighbors of a cell.
	Mix float64

	// ForcingWeight weights the forcing term.
	ForcingWeight float64
}

// DefaultParams returns the Params used when nothing else is configured.
func DefaultParams() Params {
	return Params{SubIterations: 10, Mix: 0.25, ForcingWeight: 0.25}
}

// Validate returns an error if p cannot be used by a Solver.
func (p Params) Validate() error {
	if p.SubIterations < 1 {
		return fmt.Errorf("%w: got %d", ErrSubIterations, p.SubIterations)
	}
	if !finite(p.Mix) || !finite(p.ForcingWeight) {
		return fmt.Errorf(
			"%w: Mix = %g, ForcingWeight = %g",
			ErrWeights, p.Mix, p.ForcingWeight,
		)
	}
	return nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// Solver owns the working grids of a multigrid solve. Every level of the
// hierarchy has two grids which sweeps alternate between.
type Solver struct {
	Params

	a, b *geom.Pyramid
}

// New allocates a Solver for a potential of width resolution. Levels are
// halved while their width is larger than minWidth, and an error is
// returned if that leaves no levels at all.
func New(resolution, minWidth int, p Params) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	a, err := geom.NewPyramid(resolution, minWidth, 1)
	if err != nil {
		return nil, err
	}
	b, err := geom.NewPyramid(resolution, minWidth, 1)
	if err != nil {
		return nil, err
	}

	return &Solver{Params: p, a: a, b: b}, nil
}

// Levels returns the number of levels in the hierarchy.
func (s *Solver) Levels() int { return s.a.Len() }

// Widths returns the width of every level, coarsest first.
func (s *Solver) Widths() []int { return s.a.Widths() }

// Relax runs a single Jacobi sweep at the resolution of dst:
//
//	dst(uv) = Mix * (prev(uv +/- dy) + prev(uv +/- dx)) +
//	          ForcingWeight * forcing(uv)
//
// where dx and dy are one texel of dst. prev and forcing may have any
// resolution and are resampled on read.
func (p Params) Relax(pipe *render.Pipeline, dst, prev, forcing *geom.Grid) {
	render.RequireChannels("relaxation target", dst, 1)
	render.RequireChannels("previous potential", prev, 1)
	render.RequireChannels("forcing", forcing, 1)
	render.Distinct(dst, prev, forcing)

	h := 1 / float64(dst.Width())
	mix, fw := p.Mix, p.ForcingWeight

	pipe.Apply(dst, func(_, _ int, uv geom.Vec2, out []float64) {
		sum := prev.Sample1(geom.Vec2{uv[0], uv[1] + h}) +
			prev.Sample1(geom.Vec2{uv[0], uv[1] - h}) +
			prev.Sample1(geom.Vec2{uv[0] + h, uv[1]}) +
			prev.Sample1(geom.Vec2{uv[0] - h, uv[1]})
		out[0] = mix*sum + fw*forcing.Sample1(uv)
	})
}

// Solve approximately solves for the potential whose discrete Laplacian is
// forcing and writes it to target. The hierarchy is traversed from the
// coarsest level to the finest: the coarsest level starts from zero, and
// each finer level starts from the result of the level before it. Every
// level runs SubIterations sweeps.
func (s *Solver) Solve(pipe *render.Pipeline, target, forcing *geom.Grid) {
	s.solve(pipe, target, forcing, func(int) int { return s.SubIterations })
}

// SolveCoarsePriority is Solve with a sweep budget that front-loads the
// coarse levels: level i runs 3 + 100/((i+2)(i+1)) sweeps.
func (s *Solver) SolveCoarsePriority(
	pipe *render.Pipeline, target, forcing *geom.Grid,
) {
	s.solve(pipe, target, forcing, CoarsePrioritySweeps)
}

// CoarsePrioritySweeps returns the number of sweeps SolveCoarsePriority
// runs at level i.
func CoarsePrioritySweeps(i int) int {
	return 3 + 100/((i+2)*(i+1))
}

func (s *Solver) solve(
	pipe *render.Pipeline, target, forcing *geom.Grid, sweeps func(int) int,
) {
	render.RequireChannels("potential", target, 1)
	render.RequireChannels("forcing", forcing, 1)

	s.a.Clear()
	s.b.Clear()

	// The second buffer of the coarsest level is zero and seeds the solve.
	prev := s.b.Level(0)
	for i := 0; i < s.a.Len(); i++ {
		bufs := [2]*geom.Grid{s.a.Level(i), s.b.Level(i)}
		for k := 0; k < sweeps(i); k++ {
			dst := bufs[k%2]
			s.Relax(pipe, dst, prev, forcing)
			prev = dst
		}
	}

	if target.SameShape(prev) {
		target.CopyFrom(prev)
		return
	}
	render.Distinct(target, prev)
	pipe.Apply(target, func(_, _ int, uv geom.Vec2, out []float64) {
		out[0] = prev.Sample1(uv)
	})
}

// Residual returns the L2 norm of the residual of potential against forcing,
// scaled so that for the default weights it is
//
//	forcing - (4*potential - neighbors)
//
// at every cell. Neighbors are clamped to the edge of the grid, and forcing
// is resampled at the resolution of potential.
func (p Params) Residual(potential, forcing *geom.Grid) float64 {
	render.RequireChannels("potential", potential, 1)
	render.RequireChannels("forcing", forcing, 1)

	scale := p.ForcingWeight
	if scale == 0 {
		scale = 1
	}

	w := potential.Width()
	res := make([]float64, w*w)
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= w {
			x = w - 1
		}
		if y < 0 {
			y = 0
		} else if y >= w {
			y = w - 1
		}
		return potential.At(x, y, 0)
	}

	for y := 0; y < w; y++ {
		for x := 0; x < w; x++ {
			sum := at(x+1, y) + at(x-1, y) + at(x, y+1) + at(x, y-1)
			f := forcing.Sample1(potential.TexelCenter(x, y))
			r := p.ForcingWeight*f - (at(x, y) - p.Mix*sum)
			res[x+y*w] = r / scale
		}
	}

	return floats.Norm(res, 2)
}
