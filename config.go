package caustic

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrResolution    = errors.New("invalid resolution")
	ErrPixelDensity  = errors.New("invalid pixel density")
	ErrSubIterations = errors.New("invalid sub-iteration count")
	ErrStepSize      = errors.New("invalid step size")
	ErrMinLevelWidth = errors.New("invalid minimum level width")
	ErrWeights       = errors.New("invalid relaxation weights")
	ErrBorder        = errors.New("invalid border")
	ErrClamp         = errors.New("invalid clamp")
	ErrDivergence    = errors.New("invalid divergence settings")
	ErrPerturbation  = errors.New("invalid perturbation")
	ErrInput         = errors.New("invalid input image")
)

// Config holds every construction-time parameter of a Transporter. Use
// DefaultConfig to get a Config with sensible values: a zero Config is not
// valid.
type Config struct {
	// Resolution is the width of the domain grid in cells. The displacement
	// field is one texel wider.
	Resolution int

	// PixelDensity is the number of lightmap pixels per domain cell along
	// each axis.
	PixelDensity int

	// SubIterations is the number of relaxation sweeps per multigrid level.
	SubIterations int

	// CoarsePriority spends more sweeps on coarse levels instead of using
	// SubIterations everywhere.
	CoarsePriority bool

	// MinLevelWidth is the width that multigrid levels are halved down to,
	// exclusive.
	MinLevelWidth int

	// Mix and ForcingWeight are the relaxation weights.
	Mix, ForcingWeight float64

	// StepSize scales the gradient when the displacement field is updated.
	StepSize float64

	// BorderWidth is the width of the light sink around the edge of the
	// domain as a fraction of the domain. BorderSink is the value of the
	// difference inside it.
	BorderWidth, BorderSink float64

	// DensityClamp and MaxIntensity limit densities and lightmap fragments
	// when positive.
	DensityClamp, MaxIntensity float64

	// Divergence computes the divergence of the displacement field and a
	// correction for it every step. The correction is only applied when
	// DivergenceFeedback is set, scaled by DivergenceWeight.
	Divergence, DivergenceFeedback bool

	DivergenceWeight float64

	// Perturbation is the amplitude of the smooth pattern the displacement
	// field starts from.
	Perturbation float64

	// Workers is the number of goroutines passes are split across. Zero
	// uses one per core.
	Workers int
}

// DefaultConfig returns the default Config for a domain of the given
// resolution.
func DefaultConfig(resolution int) Config {
	step := 0.002
	if resolution > 0 {
		step /= float64(resolution)
	}

	return Config{
		Resolution:       resolution,
		PixelDensity:     4,
		SubIterations:    10,
		MinLevelWidth:    8,
		Mix:              0.25,
		ForcingWeight:    0.25,
		StepSize:         step,
		BorderWidth:      0.01,
		BorderSink:       -0.02,
		DivergenceWeight: step,
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// Validate returns a descriptive error wrapping one of the package's Err*
// values if the Config cannot be used to build a Transporter.
func (c *Config) Validate() error {
	switch {
	case c.MinLevelWidth < 1:
		return fmt.Errorf("%w: MinLevelWidth = %d, must be positive",
			ErrMinLevelWidth, c.MinLevelWidth)
	case c.Resolution <= c.MinLevelWidth:
		return fmt.Errorf(
			"%w: Resolution = %d, must be larger than MinLevelWidth = %d",
			ErrResolution, c.Resolution, c.MinLevelWidth,
		)
	case c.PixelDensity < 1:
		return fmt.Errorf("%w: PixelDensity = %d, must be positive",
			ErrPixelDensity, c.PixelDensity)
	case c.SubIterations < 1:
		return fmt.Errorf("%w: SubIterations = %d, must be positive",
			ErrSubIterations, c.SubIterations)
	case !(c.StepSize > 0) || !finite(c.StepSize):
		return fmt.Errorf("%w: StepSize = %g, must be positive",
			ErrStepSize, c.StepSize)
	case !finite(c.Mix) || !finite(c.ForcingWeight):
		return fmt.Errorf("%w: Mix = %g, ForcingWeight = %g, must be finite",
			ErrWeights, c.Mix, c.ForcingWeight)
	case !(c.BorderWidth >= 0 && c.BorderWidth < 0.5):
		return fmt.Errorf("%w: BorderWidth = %g, must be in [0, 0.5)",
			ErrBorder, c.BorderWidth)
	case !finite(c.BorderSink):
		return fmt.Errorf("%w: BorderSink = %g, must be finite",
			ErrBorder, c.BorderSink)
	case !(c.DensityClamp >= 0) || !(c.MaxIntensity >= 0):
		return fmt.Errorf(
			"%w: DensityClamp = %g, MaxIntensity = %g, must be non-negative",
			ErrClamp, c.DensityClamp, c.MaxIntensity,
		)
	case c.DivergenceFeedback && !c.Divergence:
		return fmt.Errorf("%w: DivergenceFeedback requires Divergence",
			ErrDivergence)
	case c.DivergenceFeedback &&
		(!(c.DivergenceWeight > 0) || !finite(c.DivergenceWeight)):
		return fmt.Errorf("%w: DivergenceWeight = %g, must be positive",
			ErrDivergence, c.DivergenceWeight)
	case !finite(c.Perturbation):
		return fmt.Errorf("%w: Perturbation = %g, must be finite",
			ErrPerturbation, c.Perturbation)
	}
	return nil
}

// DisplacementWidth returns the width of the displacement field.
func (c *Config) DisplacementWidth() int { return c.Resolution + 1 }

// LightmapWidth returns the width of the lightmap.
func (c *Config) LightmapWidth() int { return c.Resolution * c.PixelDensity }
