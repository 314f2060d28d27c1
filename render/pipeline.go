// Package render evaluates per-cell kernels and draws triangle meshes into
// geom.Grid buffers using a pool of worker goroutines.
package render

import (
	"fmt"
	"runtime"

	"github.com/phil-mansfield/caustic/geom"
)

// Kernel is a per-cell function. It is called once for every cell of the
// target grid with the cell's integer coordinates and the normalized
// coordinates of its center, and writes the cell's channels to out. out
// aliases the (cleared) target.
//
// Kernels read their inputs through closures. They must never read the grid
// they are writing.
type Kernel func(x, y int, uv geom.Vec2, out []float64)

// Pipeline runs kernels across a fixed number of workers.
type Pipeline struct {
	Workers int
}

// NewPipeline returns a Pipeline with the given number of workers. A
// non-positive count uses one worker per available core.
func NewPipeline(workers int) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{Workers: workers}
}

// workers returns the number of workers to use for n rows of work.
func (p *Pipeline) workers(n int) int {
	w := p.Workers
	if w <= 0 {
		w = 1
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Apply clears target and then evaluates k for every cell of target.
func (p *Pipeline) Apply(target *geom.Grid, k Kernel) {
	target.Clear()

	workers := p.workers(target.Width())
	out := make(chan int, workers)

	for id := 0; id < workers-1; id++ {
		go chanApply(id, workers, target, k, out)
	}
	chanApply(workers-1, workers, target, k, out)

	for i := 0; i < workers; i++ {
		<-out
	}
}

// chanApply is a worker function which evaluates a kernel over every row
// congruent to worker modulo workers. The worker ID is sent to out when it
// finishes.
func chanApply(
	worker, workers int, target *geom.Grid, k Kernel, out chan<- int,
) {
	width, ch := target.Width(), target.Channels()
	for y := worker; y < width; y += workers {
		for x := 0; x < width; x++ {
			i := target.Idx(x, y)
			k(x, y, target.TexelCenter(x, y), target.Vals[i:i+ch])
		}
	}
	out <- worker
}

// Bands splits the half-open range [0, n) into one contiguous band per
// worker and calls f on each band concurrently. It returns once every band
// is finished.
func (p *Pipeline) Bands(n int, f func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := p.workers(n)
	out := make(chan int, workers)

	band := func(id int) {
		lo, hi := id*n/workers, (id+1)*n/workers
		f(id, lo, hi)
		out <- id
	}

	for id := 0; id < workers-1; id++ {
		go band(id)
	}
	band(workers - 1)

	for i := 0; i < workers; i++ {
		<-out
	}
}

// Require panics if the kernel input called name has not been bound.
func Require(name string, g *geom.Grid) {
	if g == nil {
		panic(fmt.Sprintf("Kernel input '%s' is not bound.", name))
	}
}

// RequireChannels panics if the kernel input called name has not been bound
// or does not have the given number of channels.
func RequireChannels(name string, g *geom.Grid, channels int) {
	Require(name, g)
	if g.Channels() != channels {
		panic(fmt.Sprintf(
			"Kernel input '%s' has %d channels, but %d are required.",
			name, g.Channels(), channels,
		))
	}
}

// Distinct panics if any of the inputs shares storage with target. A pass
// which reads the grid it writes would see partially written values.
func Distinct(target *geom.Grid, inputs ...*geom.Grid) {
	Require("target", target)
	for i, in := range inputs {
		if in == nil {
			continue
		}
		if in == target || (len(in.Vals) > 0 && len(target.Vals) > 0 &&
			&in.Vals[0] == &target.Vals[0]) {
			panic(fmt.Sprintf(
				"Kernel input %d is the same buffer as the pass target.", i,
			))
		}
	}
}
