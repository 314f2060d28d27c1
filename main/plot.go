package main

import (
	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/caustic"
)

// plotConvergence plots the lightmap variance (black) and the solver
// residual (red) of every step.
func plotConvergence(fname string, history []caustic.Stats) {
	steps := make([]float64, len(history))
	variances := make([]float64, len(history))
	residuals := make([]float64, len(history))
	for i, s := range history {
		steps[i] = float64(s.Step)
		variances[i] = s.LightmapVariance
		residuals[i] = s.Residual
	}

	plt.Reset()
	plt.Figure()
	plt.Plot(steps, variances, "k", plt.LW(2))
	plt.Plot(steps, residuals, "r", plt.LW(2))
	plt.Title("Lightmap variance (black) and residual (red)")
	plt.XLabel("Step", plt.FontSize(16))
	plt.YLabel("Value", plt.FontSize(16))
	plt.YScale("log")
	plt.SaveFig(fname)
	plt.Execute()
}
