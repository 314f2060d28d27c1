/*package io reads and writes the files used by the caustic command: the
[Caustic] configuration file, input images and tables, and output images and
binary grids.
*/
package io

import (
	"path/filepath"
	"strings"

	"github.com/phil-mansfield/caustic/geom"
)

// ReadGrid reads a one-channel grid from the given file. Files ending in
// .grid are read with ReadBinaryGrid, files ending in .txt, .dat or .table
// with ReadTableGrid, and everything else with ReadImage. Only the first
// channel of a binary grid is kept.
func ReadGrid(file string) (*geom.Grid, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".grid":
		_, g, err := ReadBinaryGrid(file)
		if err != nil {
			return nil, err
		}
		if g.Channels() == 1 {
			return g, nil
		}
		out := geom.NewGrid(g.Width(), 1)
		copy(out.Vals, g.Channel(0))
		return out, nil
	case ".txt", ".dat", ".table":
		return ReadTableGrid(file)
	}
	return ReadImage(file)
}
