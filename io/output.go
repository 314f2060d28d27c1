package io

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"unsafe"

	"github.com/phil-mansfield/caustic"
	"github.com/phil-mansfield/caustic/geom"
)

var end = binary.LittleEndian

// MaxGridWidth is the largest width a grid file may declare.
const MaxGridWidth = 1 << 14

/*
The binary format used for grids is as follows:
    |-- 1 --||-- ... 2 ... --||-- ... 3 ... --|

    1 - (int64) Flag indicating the endianness of the file. -1 indicates a
        little endian byte order and 0 indicates a big endian byte order.
    2 - (GridHeader) The rest of the header, starting with its own size,
        which should be checked for consistency.
    3 - ([]float32) Contiguous block of grid values, row-major with the
        channels of each texel stored together.
*/
type GridHeader struct {
	Type TypeInfo
	Sim  SimInfo
	// Width of the grid in texels.
	Width int64
}

type TypeInfo struct {
	Endianness int64
	HeaderSize int64
	GridType   int64
	Channels   int64
}

// SimInfo records the state of the design a grid was written from.
type SimInfo struct {
	Resolution   int64
	PixelDensity int64
	Step         int64
}

// NewSimInfo returns the SimInfo of the given Transporter.
func NewSimInfo(t *caustic.Transporter) SimInfo {
	cfg := t.Config()
	return SimInfo{
		int64(cfg.Resolution), int64(cfg.PixelDensity), int64(t.Steps()),
	}
}

type GridFlag int64

const (
	Lightmap GridFlag = iota
	Displacements
	Densities
	Difference
	Potential
	Gradient
	TransportUV
	Warped
	Divergence
	DivergenceCorrection
	// Image is an input image written as a grid.
	Image
	EndGridFlag
)

var gridFlagNames = [...]string{
	caustic.LightmapName,
	caustic.DisplacementsName,
	caustic.DensitiesName,
	caustic.DifferenceName,
	caustic.PotentialName,
	caustic.GradientName,
	caustic.TransportUVName,
	caustic.WarpedName,
	caustic.DivergenceName,
	caustic.DivergenceCorrectionName,
	"image",
}

func (flag GridFlag) String() string {
	if flag < 0 || flag >= EndGridFlag {
		return fmt.Sprintf("GridFlag(%d)", int64(flag))
	}
	return gridFlagNames[flag]
}

// ParseGridFlag returns the GridFlag with the given name. Case is ignored.
func ParseGridFlag(name string) (GridFlag, error) {
	for flag := GridFlag(0); flag < EndGridFlag; flag++ {
		if strings.EqualFold(flag.String(), name) {
			return flag, nil
		}
	}
	return -1, fmt.Errorf("Unrecognized grid name '%s'.", name)
}

// WriteGrid writes g to wr in the binary grid format.
func WriteGrid(
	wr io.Writer, flag GridFlag, g *geom.Grid, sim SimInfo,
) error {
	var endFlag int64
	if end == binary.LittleEndian {
		endFlag = -1
	} else {
		endFlag = 0
	}

	hd := GridHeader{}
	hd.Type.Endianness = endFlag
	hd.Type.HeaderSize = int64(unsafe.Sizeof(hd))
	hd.Type.GridType = int64(flag)
	hd.Type.Channels = int64(g.Channels())
	hd.Sim = sim
	hd.Width = int64(g.Width())

	xs := make([]float32, len(g.Vals))
	for i, x := range g.Vals {
		xs[i] = float32(x)
	}

	if err := binary.Write(wr, end, &hd); err != nil {
		return err
	}
	return binary.Write(wr, end, xs)
}

// WriteGridFile writes g to the given file in the binary grid format.
func WriteGridFile(
	file string, flag GridFlag, g *geom.Grid, sim SimInfo,
) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err = WriteGrid(f, flag, g, sim); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func endianness(flag int64) (binary.ByteOrder, error) {
	switch flag {
	case -1:
		return binary.LittleEndian, nil
	case 0:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("Unrecognized endianness flag, %d.", flag)
}

func readGridHeader(rd io.Reader) (*GridHeader, binary.ByteOrder, error) {
	hd := &GridHeader{}

	// order doesn't matter for this read, since flags are symmetric.
	if err := binary.Read(rd, binary.LittleEndian,
		&hd.Type.Endianness); err != nil {
		return nil, nil, err
	}
	order, err := endianness(hd.Type.Endianness)
	if err != nil {
		return nil, nil, err
	}

	if err = binary.Read(rd, order, &hd.Type.HeaderSize); err != nil {
		return nil, nil, err
	}
	if hd.Type.HeaderSize != int64(unsafe.Sizeof(GridHeader{})) {
		return nil, nil, fmt.Errorf(
			"Expected GridHeader size of %d, found %d.",
			unsafe.Sizeof(GridHeader{}), hd.Type.HeaderSize,
		)
	}

	rest := []interface{}{
		&hd.Type.GridType, &hd.Type.Channels, &hd.Sim, &hd.Width,
	}
	for _, x := range rest {
		if err = binary.Read(rd, order, x); err != nil {
			return nil, nil, err
		}
	}

	switch {
	case hd.Type.GridType < 0 || hd.Type.GridType >= int64(EndGridFlag):
		return nil, nil, fmt.Errorf("Unrecognized grid type, %d.",
			hd.Type.GridType)
	case hd.Type.Channels != 1 && hd.Type.Channels != 2 &&
		hd.Type.Channels != 4:
		return nil, nil, fmt.Errorf("Grid has %d channels.", hd.Type.Channels)
	case hd.Width < 1:
		return nil, nil, fmt.Errorf("Grid has width %d.", hd.Width)
	case hd.Width > MaxGridWidth:
		return nil, nil, fmt.Errorf(
			"Grid has width %d, but widths above %d are not supported.",
			hd.Width, MaxGridWidth,
		)
	}

	return hd, order, nil
}

// dataSize returns the number of bytes of grid values following hd.
func (hd *GridHeader) dataSize() int64 {
	return hd.Width * hd.Width * hd.Type.Channels * 4
}

// DecodeGrid reads a grid in the binary grid format from rd.
func DecodeGrid(rd io.Reader) (*GridHeader, *geom.Grid, error) {
	hd, order, err := readGridHeader(rd)
	if err != nil {
		return nil, nil, err
	}
	g, err := decodeValues(rd, order, hd)
	if err != nil {
		return nil, nil, err
	}
	return hd, g, nil
}

// decodeValues reads the values of the grid described by hd one row at a
// time, so a truncated stream fails before the whole grid is allocated.
func decodeValues(
	rd io.Reader, order binary.ByteOrder, hd *GridHeader,
) (*geom.Grid, error) {
	width, ch := int(hd.Width), int(hd.Type.Channels)
	row := make([]float32, width*ch)
	vals := make([]float64, 0, width*ch)

	for y := 0; y < width; y++ {
		if err := binary.Read(rd, order, row); err != nil {
			return nil, fmt.Errorf("Grid values end at row %d of %d: %w",
				y, width, err)
		}
		for _, x := range row {
			vals = append(vals, float64(x))
		}
	}

	g := geom.NewGrid(width, ch)
	copy(g.Vals, vals)
	return g, nil
}

// ReadGridHeader reads the header of the given binary grid file.
func ReadGridHeader(file string) (*GridHeader, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hd, _, err := readGridHeader(f)
	return hd, err
}

// ReadBinaryGrid reads the given binary grid file.
func ReadBinaryGrid(file string) (*GridHeader, *geom.Grid, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	hd, order, err := readGridHeader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("Could not read grid file %s: %w",
			file, err)
	}
	if size := hd.Type.HeaderSize + hd.dataSize(); size != info.Size() {
		return nil, nil, fmt.Errorf(
			"Grid file %s has %d bytes, but its header describes %d.",
			file, info.Size(), size,
		)
	}

	g, err := decodeValues(f, order, hd)
	if err != nil {
		return nil, nil, fmt.Errorf("Could not read grid file %s: %w",
			file, err)
	}
	return hd, g, nil
}
