package io

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/caustic"
)

const ExampleCausticFile = `[Caustic]

#######################
# Required Parameters #
#######################

# Image that is shone through the displacement field. PNG, JPEG, GIF, BMP
# and TIFF images are read as grayscale. Files ending in .grid are read as
# binary grids and files ending in .txt, .dat or .table are read as text
# tables with "x y value" columns.
Source = path/to/source.png
# Image the lightmap is fitted to. Same formats as Source.
Target = path/to/target.png
# Directory which output files will be written to.
Output = path/to/output/dir

# Width of the domain grid in cells. The displacement field is one texel
# wider and the lightmap is PixelDensity times wider.
Resolution = 256
# Number of steps to run.
Steps = 2000

#######################
# Optional Parameters #
#######################

# Number of lightmap pixels per domain cell along each axis. Default is 4.
# PixelDensity = 4

# Poisson solver. VCycle runs SubIterations sweeps on every level and
# CoarsePriority runs more sweeps on the coarse levels. Default is VCycle.
# Solver = VCycle
# SubIterations = 10
# MinLevelWidth = 8

# Relaxation weights. Both default to 0.25.
# Mix = 0.25
# ForcingWeight = 0.25

# Step size of the displacement update. Defaults to 0.002 / Resolution.
# StepSize = 0.0000078125

# Light sink around the edge of the domain. BorderWidth is a fraction of
# the domain and BorderSink is the difference inside the band.
# BorderWidth = 0.01
# BorderSink = -0.02

# Upper limits on densities and lightmap fragments. Zero disables them.
# DensityClamp = 0
# MaxIntensity = 0

# Divergence pass. The correction is only fed back into the displacement
# field if DivergenceFeedback is set. DivergenceWeight defaults to StepSize.
# Divergence = false
# DivergenceFeedback = false
# DivergenceWeight = 0.0000078125

# Amplitude of the smooth pattern the displacement field starts from.
# Perturbation = 0

# Number of worker goroutines. Zero uses one per core.
# Workers = 0

# Outputs are written every SaveEvery steps and after the last step. Zero
# only writes the final outputs. Outputs is a comma-separated list of any of
# lightmap, displacements, densities, difference, potential, gradient,
# transport_uv, warped, divergence, divergence_correction.
# SaveEvery = 0
# Outputs = lightmap, warped

# Format is one of png, grid or both. PNG images are scaled up by
# ImageScale and their values are mapped to [0, 1] with Mapping, which is
# one of Auto, Clamp, MinMax or Sine.
# Format = png
# ImageScale = 1
# Mapping = Auto

# Plots the lightmap variance and solver residual against step count.
# PlotFile = convergence.png

# Verbose logs every step.
# Verbose = false

# Output files which are useful for profiling and debugging.
# ProfileFile = prof.out
# LogFile = log.out`

// SharedConfig holds the file names every mode needs.
type SharedConfig struct {
	// Required
	Source, Target, Output string
	// Optional
	LogFile, ProfileFile string
}

func (con *SharedConfig) ValidSource() bool {
	return con.Source != ""
}
func (con *SharedConfig) ValidTarget() bool {
	return con.Target != ""
}
func (con *SharedConfig) ValidOutput() bool {
	return con.Output != ""
}
func (con *SharedConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *SharedConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}

// CausticConfig is the [Caustic] section of a configuration file.
type CausticConfig struct {
	SharedConfig

	// Required
	Resolution, Steps int

	// Optional
	PixelDensity, SubIterations, MinLevelWidth int
	Solver                                     string
	Mix, ForcingWeight, StepSize               float64
	BorderWidth, BorderSink                    float64
	DensityClamp, MaxIntensity                 float64
	Divergence, DivergenceFeedback             bool
	DivergenceWeight, Perturbation             float64
	Workers                                    int

	SaveEvery         int
	Outputs, Format   string
	ImageScale        int
	Mapping, PlotFile string
	Verbose           bool
}

type CausticWrapper struct {
	Caustic CausticConfig
}

// DefaultCausticWrapper returns a wrapper with every optional parameter set
// to its default value.
func DefaultCausticWrapper() *CausticWrapper {
	def := caustic.DefaultConfig(0)
	con := CausticConfig{}

	con.PixelDensity = def.PixelDensity
	con.SubIterations = def.SubIterations
	con.MinLevelWidth = def.MinLevelWidth
	con.Solver = "VCycle"
	con.Mix, con.ForcingWeight = def.Mix, def.ForcingWeight
	con.BorderWidth, con.BorderSink = def.BorderWidth, def.BorderSink

	con.Outputs = "lightmap, warped"
	con.Format = "png"
	con.ImageScale = 1
	con.Mapping = "Auto"

	return &CausticWrapper{con}
}

// ReadCausticConfig reads the [Caustic] section of the given file and checks
// every parameter in it.
func ReadCausticConfig(fname string) (*CausticConfig, error) {
	wrap := DefaultCausticWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	if err := wrap.Caustic.CheckInit(); err != nil {
		return nil, err
	}
	return &wrap.Caustic, nil
}

func (con *CausticConfig) ValidResolution() bool {
	return con.Resolution > con.MinLevelWidth
}
func (con *CausticConfig) ValidSteps() bool {
	return con.Steps > 0
}
func (con *CausticConfig) ValidPixelDensity() bool {
	return con.PixelDensity > 0
}
func (con *CausticConfig) ValidSubIterations() bool {
	return con.SubIterations > 0
}
func (con *CausticConfig) ValidMinLevelWidth() bool {
	return con.MinLevelWidth > 0
}
func (con *CausticConfig) ValidSolver() bool {
	s := strings.ToLower(con.Solver)
	return s == "vcycle" || s == "coarsepriority"
}
func (con *CausticConfig) ValidStepSize() bool {
	return con.StepSize >= 0 && !math.IsInf(con.StepSize, 0)
}
func (con *CausticConfig) ValidBorderWidth() bool {
	return con.BorderWidth >= 0 && con.BorderWidth < 0.5
}
func (con *CausticConfig) ValidDivergence() bool {
	return con.Divergence || !con.DivergenceFeedback
}
func (con *CausticConfig) ValidDivergenceWeight() bool {
	return con.DivergenceWeight >= 0 && !math.IsInf(con.DivergenceWeight, 0)
}
func (con *CausticConfig) ValidWorkers() bool {
	return con.Workers >= 0
}
func (con *CausticConfig) ValidSaveEvery() bool {
	return con.SaveEvery >= 0
}
func (con *CausticConfig) ValidOutputs() bool {
	_, err := con.OutputFlags()
	return err == nil
}
func (con *CausticConfig) ValidFormat() bool {
	f := strings.ToLower(con.Format)
	return f == "png" || f == "grid" || f == "both"
}
func (con *CausticConfig) ValidImageScale() bool {
	return con.ImageScale > 0
}
func (con *CausticConfig) ValidMapping() bool {
	_, err := ParseMapping(con.Mapping)
	return err == nil
}
func (con *CausticConfig) ValidPlotFile() bool {
	return con.PlotFile != ""
}

// CheckInit returns an error describing the first invalid parameter in con,
// if there is one.
func (con *CausticConfig) CheckInit() error {
	if !con.ValidSource() {
		return fmt.Errorf("Invalid/non-existent 'Source' value.")
	} else if !con.ValidTarget() {
		return fmt.Errorf("Invalid/non-existent 'Target' value.")
	} else if !con.ValidOutput() {
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	} else if !con.ValidMinLevelWidth() {
		return fmt.Errorf("'MinLevelWidth' must be positive, but is %d.",
			con.MinLevelWidth)
	} else if !con.ValidResolution() {
		return fmt.Errorf(
			"'Resolution' must be larger than MinLevelWidth = %d, but is %d.",
			con.MinLevelWidth, con.Resolution,
		)
	} else if !con.ValidSteps() {
		return fmt.Errorf("Invalid/non-existent 'Steps' value.")
	} else if !con.ValidPixelDensity() {
		return fmt.Errorf("'PixelDensity' must be positive, but is %d.",
			con.PixelDensity)
	} else if !con.ValidSubIterations() {
		return fmt.Errorf("'SubIterations' must be positive, but is %d.",
			con.SubIterations)
	} else if !con.ValidSolver() {
		return fmt.Errorf(
			"Unrecognized 'Solver' value '%s'. Only recognized values are "+
				"'VCycle' and 'CoarsePriority'.", con.Solver,
		)
	} else if !con.ValidStepSize() {
		return fmt.Errorf("'StepSize' must be non-negative, but is %g.",
			con.StepSize)
	} else if !con.ValidBorderWidth() {
		return fmt.Errorf("'BorderWidth' must be in range [0, 0.5), but is %g.",
			con.BorderWidth)
	} else if !con.ValidDivergence() {
		return fmt.Errorf("'DivergenceFeedback' is set but 'Divergence' isn't.")
	} else if !con.ValidDivergenceWeight() {
		return fmt.Errorf("'DivergenceWeight' must be non-negative, but is %g.",
			con.DivergenceWeight)
	} else if !con.ValidWorkers() {
		return fmt.Errorf("'Workers' must be non-negative, but is %d.",
			con.Workers)
	} else if !con.ValidSaveEvery() {
		return fmt.Errorf("'SaveEvery' must be non-negative, but is %d.",
			con.SaveEvery)
	} else if _, err := con.OutputFlags(); err != nil {
		return err
	} else if !con.ValidFormat() {
		return fmt.Errorf(
			"Unrecognized 'Format' value '%s'. Only recognized values are "+
				"'png', 'grid' and 'both'.", con.Format,
		)
	} else if !con.ValidImageScale() {
		return fmt.Errorf("'ImageScale' must be positive, but is %d.",
			con.ImageScale)
	} else if _, err := ParseMapping(con.Mapping); err != nil {
		return err
	}

	cfg := con.CoreConfig()
	return cfg.Validate()
}

// OutputFlags parses the Outputs list.
func (con *CausticConfig) OutputFlags() ([]GridFlag, error) {
	flags := []GridFlag{}
	for _, name := range strings.Split(con.Outputs, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, err := ParseGridFlag(name)
		if err != nil {
			return nil, err
		}
		if flag == Image {
			return nil, fmt.Errorf("Output '%s' is not a transporter grid.",
				name)
		}
		if (flag == Divergence || flag == DivergenceCorrection) &&
			!con.Divergence {
			return nil, fmt.Errorf(
				"Output '%s' requires 'Divergence' to be set.", name,
			)
		}
		flags = append(flags, flag)
	}
	return flags, nil
}

// WritesPNG returns true if outputs should be written as PNG images.
func (con *CausticConfig) WritesPNG() bool {
	f := strings.ToLower(con.Format)
	return f == "png" || f == "both"
}

// WritesGrid returns true if outputs should be written as binary grids.
func (con *CausticConfig) WritesGrid() bool {
	f := strings.ToLower(con.Format)
	return f == "grid" || f == "both"
}

// CoreConfig converts con to the Config of a Transporter. Zero step sizes
// and divergence weights are replaced by the defaults for con.Resolution.
func (con *CausticConfig) CoreConfig() caustic.Config {
	cfg := caustic.DefaultConfig(con.Resolution)

	cfg.PixelDensity = con.PixelDensity
	cfg.SubIterations = con.SubIterations
	cfg.CoarsePriority = strings.ToLower(con.Solver) == "coarsepriority"
	cfg.MinLevelWidth = con.MinLevelWidth
	cfg.Mix, cfg.ForcingWeight = con.Mix, con.ForcingWeight
	if con.StepSize > 0 {
		cfg.StepSize = con.StepSize
		cfg.DivergenceWeight = con.StepSize
	}
	cfg.BorderWidth, cfg.BorderSink = con.BorderWidth, con.BorderSink
	cfg.DensityClamp, cfg.MaxIntensity = con.DensityClamp, con.MaxIntensity
	cfg.Divergence = con.Divergence
	cfg.DivergenceFeedback = con.DivergenceFeedback
	if con.DivergenceWeight > 0 {
		cfg.DivergenceWeight = con.DivergenceWeight
	}
	cfg.Perturbation = con.Perturbation
	cfg.Workers = con.Workers

	return cfg
}
