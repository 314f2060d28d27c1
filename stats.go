package caustic

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/caustic/geom"
)

// Stats summarizes the state of a Transporter after a step.
type Stats struct {
	Step int

	// LightmapMean and LightmapVariance are the mean and the unbiased
	// variance of the lightmap pixels.
	LightmapMean, LightmapVariance float64

	// MeanDisplacement and MaxDisplacement are the mean and the maximum
	// length of the displacement vectors.
	MeanDisplacement, MaxDisplacement float64

	// Residual is the norm of the Poisson residual of the last solve. It is
	// zero before the first step.
	Residual float64
}

// Stats computes summary statistics of the current lightmap and
// displacement field.
func (t *Transporter) Stats() Stats {
	mean, variance := stat.MeanVariance(t.lightmap.Vals, nil)
	lengths := Lengths(t.disp)

	return Stats{
		Step:             t.step,
		LightmapMean:     mean,
		LightmapVariance: variance,
		MeanDisplacement: stat.Mean(lengths, nil),
		MaxDisplacement:  floats.Max(lengths),
		Residual:         t.residual,
	}
}

// Lengths returns the length of every vector in a two-channel grid.
func Lengths(g *geom.Grid) []float64 {
	x, y := g.Channel(0), g.Channel(1)
	for i := range x {
		x[i] = math.Hypot(x[i], y[i])
	}
	return x
}
