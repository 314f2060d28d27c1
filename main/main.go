package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/phil-mansfield/caustic"
	"github.com/phil-mansfield/caustic/io"
)

type FileGroup struct {
	log, prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.log != nil {
		if err := fg.log.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		if err := fg.prof.Close(); err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var run, exampleConfig string
	vars := map[string]*string{
		"Run":           &run,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(
		&run, "Run", "",
		"Configuration file for [Caustic] mode.",
	)
	flag.StringVar(
		&exampleConfig, "ExampleConfig", "",
		"Prints an example configuration file of the specified type to "+
			"stdout. The only accepted argument is 'Caustic'.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Run":
		con, err := io.ReadCausticConfig(run)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err = runMain(con); err != nil {
			log.Fatal(err.Error())
		}
	case "ExampleConfig":
		switch exampleConfig {
		case "Caustic":
			fmt.Println(io.ExampleCausticFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only " +
					"recognized argument is 'Caustic'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but caustic "+
				"only accepts one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

// setupIO opens the optional log and profile files and creates the logger
// every later step logs to.
func setupIO(con *io.CausticConfig) (*log.Logger, *FileGroup, error) {
	fg := &FileGroup{}
	out := os.Stderr

	if con.ValidLogFile() {
		f, err := os.Create(con.LogFile)
		if err != nil {
			return nil, nil, err
		}
		fg.log, out = f, f
	}

	if con.ValidProfileFile() {
		f, err := os.Create(con.ProfileFile)
		if err != nil {
			fg.Close()
			return nil, nil, err
		}
		if err = pprof.StartCPUProfile(f); err != nil {
			f.Close()
			fg.Close()
			return nil, nil, err
		}
		fg.prof = f
	}

	level := log.InfoLevel
	if con.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "caustic",
		Level:           level,
	})

	return logger, fg, nil
}

func runMain(con *io.CausticConfig) error {
	logger, fg, err := setupIO(con)
	if err != nil {
		return err
	}
	defer fg.Close()

	source, err := io.ReadGrid(con.Source)
	if err != nil {
		return err
	}
	target, err := io.ReadGrid(con.Target)
	if err != nil {
		return err
	}
	logger.Info("Read inputs", "source", con.Source, "target", con.Target,
		"source_width", source.Width(), "target_width", target.Width())

	if err = os.MkdirAll(con.Output, 0777); err != nil {
		return err
	}

	t, err := caustic.New(con.CoreConfig(), source, target,
		caustic.WithLogger(logger))
	if err != nil {
		return err
	}

	flags, err := con.OutputFlags()
	if err != nil {
		return err
	}

	start := time.Now()
	history := make([]caustic.Stats, 0, con.Steps)
	for i := 0; i < con.Steps; i++ {
		t.Step()
		s := t.Stats()
		history = append(history, s)

		if s.Step%100 == 0 {
			logger.Info("Progress", "step", s.Step, "of", con.Steps,
				"variance", s.LightmapVariance, "residual", s.Residual,
				"elapsed", time.Since(start).Round(time.Millisecond))
		}

		if con.SaveEvery > 0 && s.Step%con.SaveEvery == 0 &&
			s.Step != con.Steps {
			if err = writeOutputs(con, t, flags, logger); err != nil {
				return err
			}
		}
	}

	// Refresh the forward grids so that they match the final displacements.
	t.Forward()
	if err = writeOutputs(con, t, flags, logger); err != nil {
		return err
	}

	if con.ValidPlotFile() {
		logger.Info("Plotting convergence", "file", con.PlotFile)
		plotConvergence(con.PlotFile, history)
	}

	logger.Info("Finished", "steps", t.Steps(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// writeOutputs writes every requested output of t to con.Output. Files are
// named after the output and the current step.
func writeOutputs(
	con *io.CausticConfig, t *caustic.Transporter,
	flags []io.GridFlag, logger *log.Logger,
) error {
	outputs := t.Outputs()
	sim := io.NewSimInfo(t)
	mapping, err := io.ParseMapping(con.Mapping)
	if err != nil {
		return err
	}

	for _, flag := range flags {
		g, ok := outputs[flag.String()]
		if !ok {
			return fmt.Errorf("Output '%s' is not computed.", flag)
		}
		base := path.Join(con.Output, fmt.Sprintf("%s_%06d", flag, t.Steps()))

		if con.WritesPNG() {
			err = io.WritePNG(base+".png", g, mapping.Resolve(flag),
				con.ImageScale)
			if err != nil {
				return err
			}
		}
		if con.WritesGrid() {
			if err = io.WriteGridFile(base+".grid", flag, g, sim); err != nil {
				return err
			}
		}
	}

	logger.Debug("Wrote outputs", "step", t.Steps(), "count", len(flags),
		"dir", con.Output)
	return nil
}
