/*package caustic designs a displacement field which refracts a uniform
beam of light into a target image.

A Transporter holds the whole state of the design. Each call to Step
estimates how the current field concentrates light, compares the resulting
lightmap to the target, solves a Poisson equation for the mismatch, and
moves the field along the gradient of the solution. Repeated steps slowly
push light from over-lit regions into under-lit ones.
*/
package caustic

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/phil-mansfield/caustic/density"
	"github.com/phil-mansfield/caustic/geom"
	"github.com/phil-mansfield/caustic/integrator"
	"github.com/phil-mansfield/caustic/multigrid"
	"github.com/phil-mansfield/caustic/render"
	"github.com/phil-mansfield/caustic/transport"
)

// Names of the grids returned by Outputs.
const (
	LightmapName             = "lightmap"
	DisplacementsName        = "displacements"
	DensitiesName            = "densities"
	DifferenceName           = "difference"
	PotentialName            = "potential"
	GradientName             = "gradient"
	TransportUVName          = "transport_uv"
	WarpedName               = "warped"
	DivergenceName           = "divergence"
	DivergenceCorrectionName = "divergence_correction"
)

// OutputNames lists every output name in the order the grids are computed.
var OutputNames = []string{
	DensitiesName, LightmapName, TransportUVName, WarpedName,
	DifferenceName, PotentialName, GradientName, DisplacementsName,
	DivergenceName, DivergenceCorrectionName,
}

// Transporter is the state of a caustic design. It is not safe for
// concurrent use. Grids returned by its accessors are owned by the
// Transporter and are only valid until the next call to Step.
type Transporter struct {
	cfg  Config
	log  *log.Logger
	pipe *render.Pipeline

	source, target *geom.Grid

	estimator density.Estimator
	evaluator *transport.Evaluator
	solver    *multigrid.Solver
	border    integrator.Border

	disp, nextDisp *geom.Grid
	densities      *geom.Grid
	lightmap       *geom.Grid
	tuv, warped    *geom.Grid
	difference     *geom.Grid
	potential      *geom.Grid
	gradient       *geom.Grid

	divergence, divPotential, correction *geom.Grid

	step     int
	residual float64
}

// Option configures optional parts of a Transporter.
type Option func(*Transporter)

// WithLogger makes the Transporter log to l. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(t *Transporter) { t.log = l }
}

// WithPipeline makes the Transporter run its passes on p instead of on a
// pipeline with Config.Workers workers.
func WithPipeline(p *render.Pipeline) Option {
	return func(t *Transporter) { t.pipe = p }
}

// New creates a Transporter which shines the one-channel source image
// through a displacement field and fits the result to the one-channel
// target image. The images may have any width: they are resampled whenever
// they are read. Every grid the Transporter needs is allocated here.
func New(
	cfg Config, source, target *geom.Grid, opts ...Option,
) (*Transporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkImage("source", source); err != nil {
		return nil, err
	}
	if err := checkImage("target", target); err != nil {
		return nil, err
	}

	solver, err := multigrid.New(cfg.Resolution, cfg.MinLevelWidth,
		multigrid.Params{
			SubIterations: cfg.SubIterations,
			Mix:           cfg.Mix,
			ForcingWeight: cfg.ForcingWeight,
		})
	if err != nil {
		return nil, err
	}

	n, dn, ln := cfg.Resolution, cfg.DisplacementWidth(), cfg.LightmapWidth()
	t := &Transporter{
		cfg:       cfg,
		log:       log.New(io.Discard),
		source:    source,
		target:    target,
		estimator: density.Estimator{Clamp: cfg.DensityClamp},
		evaluator: transport.NewEvaluator(n),
		solver:    solver,
		border:    integrator.Border{Width: cfg.BorderWidth, Sink: cfg.BorderSink},

		disp:       geom.NewGrid(dn, 2),
		nextDisp:   geom.NewGrid(dn, 2),
		densities:  geom.NewGrid(n, 1),
		lightmap:   geom.NewGrid(ln, 1),
		tuv:        geom.NewGrid(ln, 2),
		warped:     geom.NewGrid(ln, 1),
		difference: geom.NewGrid(n, 1),
		potential:  geom.NewGrid(n, 1),
		gradient:   geom.NewGrid(n, 2),
	}
	if cfg.Divergence {
		t.divergence = geom.NewGrid(n, 1)
		t.divPotential = geom.NewGrid(n, 1)
		t.correction = geom.NewGrid(n, 2)
	}

	for _, opt := range opts {
		opt(t)
	}
	if t.pipe == nil {
		t.pipe = render.NewPipeline(cfg.Workers)
	}

	if cfg.Perturbation != 0 {
		Perturb(t.pipe, t.disp, cfg.Perturbation)
	}

	t.log.Debug("Created transporter",
		"resolution", n, "lightmap", ln, "levels", solver.Widths(),
		"workers", t.pipe.Workers)

	return t, nil
}

func checkImage(name string, g *geom.Grid) error {
	if g == nil {
		return fmt.Errorf("%w: %s image is nil", ErrInput, name)
	}
	if g.Channels() != 1 {
		return fmt.Errorf("%w: %s image has %d channels, must have 1",
			ErrInput, name, g.Channels())
	}
	return nil
}

// Perturb overwrites the displacement field with a smooth pattern of
// amplitude a.
func Perturb(pipe *render.Pipeline, disp *geom.Grid, a float64) {
	render.RequireChannels("displacements", disp, 2)
	k := 2 * math.Pi
	pipe.Apply(disp, func(_, _ int, uv geom.Vec2, out []float64) {
		s, d := k*(uv[0]+uv[1]), k*(uv[0]-uv[1])
		out[0] = a * (math.Sin(s) + math.Cos(d))
		out[1] = a * (math.Sin(s+4.9) + math.Cos(d+3.1))
	})
}

// Config returns the configuration the Transporter was created with.
func (t *Transporter) Config() Config { return t.cfg }

// Steps returns the number of completed calls to Step.
func (t *Transporter) Steps() int { return t.step }

// Forward computes the densities, the lightmap, the transport uv grid and
// the warped source image from the current displacement field. It does not
// change the displacement field.
func (t *Transporter) Forward() {
	t.estimator.Estimate(t.pipe, t.densities, t.disp)
	t.evaluator.Lightmap(t.pipe, t.lightmap, t.disp, t.densities,
		t.source, t.cfg.MaxIntensity)
	t.evaluator.TransportUV(t.pipe, t.tuv, t.disp)
	transport.Pullback(t.pipe, t.warped, t.source, t.tuv)
}

// Step runs one full iteration: Forward, the difference against the
// target, the Poisson solve, the gradient, and the displacement update,
// followed by the divergence pass if it is enabled.
func (t *Transporter) Step() {
	t.Forward()

	integrator.Difference(t.pipe, t.difference, t.target, t.lightmap, t.border)
	t.solve(t.potential, t.difference)
	integrator.Gradient(t.pipe, t.gradient, t.potential)

	integrator.Integrate(t.pipe, t.nextDisp, t.disp, t.gradient, t.cfg.StepSize)
	t.disp, t.nextDisp = t.nextDisp, t.disp

	if t.cfg.Divergence {
		integrator.Divergence(t.pipe, t.divergence, t.disp)
		t.solve(t.divPotential, t.divergence)
		integrator.Gradient(t.pipe, t.correction, t.divPotential)

		if t.cfg.DivergenceFeedback {
			integrator.Correct(t.pipe, t.nextDisp, t.disp, t.correction,
				t.cfg.DivergenceWeight)
			t.disp, t.nextDisp = t.nextDisp, t.disp
		}
	}

	t.residual = t.solver.Residual(t.potential, t.difference)
	t.step++

	if t.log.GetLevel() <= log.DebugLevel {
		s := t.Stats()
		t.log.Debug("Finished step", "step", s.Step,
			"mean", s.LightmapMean, "variance", s.LightmapVariance,
			"displacement", s.MeanDisplacement, "residual", s.Residual)
	}
}

// Render is an alias of Step.
func (t *Transporter) Render() { t.Step() }

func (t *Transporter) solve(dst, forcing *geom.Grid) {
	if t.cfg.CoarsePriority {
		t.solver.SolveCoarsePriority(t.pipe, dst, forcing)
	} else {
		t.solver.Solve(t.pipe, dst, forcing)
	}
}

// Lightmap returns the light transported through the displacement field.
func (t *Transporter) Lightmap() *geom.Grid { return t.lightmap }

// Displacements returns the two-channel displacement field.
func (t *Transporter) Displacements() *geom.Grid { return t.disp }

// Densities returns the area ratios of the domain cells.
func (t *Transporter) Densities() *geom.Grid { return t.densities }

// Difference returns the difference between the target and the lightmap.
func (t *Transporter) Difference() *geom.Grid { return t.difference }

// Potential returns the solution of the Poisson equation for Difference.
func (t *Transporter) Potential() *geom.Grid { return t.potential }

// Gradient returns the gradient of Potential.
func (t *Transporter) Gradient() *geom.Grid { return t.gradient }

// TransportUV returns the undisplaced position of every lightmap pixel.
// Pixels no light reaches hold NaN.
func (t *Transporter) TransportUV() *geom.Grid { return t.tuv }

// Warped returns the source image seen through the displacement field.
func (t *Transporter) Warped() *geom.Grid { return t.warped }

// Divergence returns the divergence of the displacement field, or nil if
// the divergence pass is disabled.
func (t *Transporter) Divergence() *geom.Grid { return t.divergence }

// DivergenceCorrection returns the gradient which corrects the divergence
// of the displacement field, or nil if the divergence pass is disabled.
func (t *Transporter) DivergenceCorrection() *geom.Grid { return t.correction }

// Outputs returns every output grid by name. Disabled outputs are left out.
func (t *Transporter) Outputs() map[string]*geom.Grid {
	all := map[string]*geom.Grid{
		LightmapName:             t.lightmap,
		DisplacementsName:        t.disp,
		DensitiesName:            t.densities,
		DifferenceName:           t.difference,
		PotentialName:            t.potential,
		GradientName:             t.gradient,
		TransportUVName:          t.tuv,
		WarpedName:               t.warped,
		DivergenceName:           t.divergence,
		DivergenceCorrectionName: t.correction,
	}

	out := make(map[string]*geom.Grid, len(all))
	for name, g := range all {
		if g != nil {
			out[name] = g
		}
	}
	return out
}

// Snapshot returns deep copies of every output grid. Unlike the grids
// returned by Outputs, they stay valid after later steps.
func (t *Transporter) Snapshot() map[string]*geom.Grid {
	out := t.Outputs()
	for name, g := range out {
		out[name] = g.Clone()
	}
	return out
}
