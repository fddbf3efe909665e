// Package trajectory loads initial atom states from tabular files.
package trajectory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"
)

// Columns is the number of fields in every row: position x, y, z then
// velocity x, y, z.
const Columns = 6

// ErrMalformedRow is returned when a row has the wrong number of fields or a
// field that is not a number.
var ErrMalformedRow = errors.New("trajectory: malformed row")

// DataFrame holds one column slice per field. All slices have equal length.
type DataFrame struct {
	PosX []float64
	PosY []float64
	PosZ []float64
	VelX []float64
	VelY []float64
	VelZ []float64
}

// Len returns the number of rows.
func (df *DataFrame) Len() int {
	return len(df.PosX)
}

// Positions returns the position of every row.
func (df *DataFrame) Positions() []r3.Vec {
	out := make([]r3.Vec, df.Len())
	for i := range out {
		out[i] = r3.Vec{X: df.PosX[i], Y: df.PosY[i], Z: df.PosZ[i]}
	}
	return out
}

// Velocities returns the velocity of every row.
func (df *DataFrame) Velocities() []r3.Vec {
	out := make([]r3.Vec, df.Len())
	for i := range out {
		out[i] = r3.Vec{X: df.VelX[i], Y: df.VelY[i], Z: df.VelZ[i]}
	}
	return out
}

// strictFloat rejects empty fields, which gocsv would otherwise read as zero.
type strictFloat float64

func (f *strictFloat) UnmarshalCSV(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = strictFloat(v)
	return nil
}

type row struct {
	PosX strictFloat `csv:"pos_x"`
	PosY strictFloat `csv:"pos_y"`
	PosZ strictFloat `csv:"pos_z"`
	VelX strictFloat `csv:"vel_x"`
	VelY strictFloat `csv:"vel_y"`
	VelZ strictFloat `csv:"vel_z"`
}

// ReadCSV loads a file of six numeric columns. If hasHeader is set the first
// row is skipped. Any malformed row fails the whole load.
func ReadCSV(path string, hasHeader bool) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory: %w", err)
	}
	defer f.Close()

	df, err := Read(f, hasHeader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return df, nil
}

// Read loads six numeric columns from r. Empty input yields an empty frame.
func Read(r io.Reader, hasHeader bool) (*DataFrame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = Columns
	reader.TrimLeadingSpace = true

	df := &DataFrame{}
	if hasHeader {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return df, nil
			}
			return nil, fmt.Errorf("%w: header: %w", ErrMalformedRow, err)
		}
	}

	var rows []row
	if err := gocsv.UnmarshalCSVWithoutHeaders(reader, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return df, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	n := len(rows)
	df.PosX = make([]float64, n)
	df.PosY = make([]float64, n)
	df.PosZ = make([]float64, n)
	df.VelX = make([]float64, n)
	df.VelY = make([]float64, n)
	df.VelZ = make([]float64, n)
	for i, r := range rows {
		df.PosX[i] = float64(r.PosX)
		df.PosY[i] = float64(r.PosY)
		df.PosZ[i] = float64(r.PosZ)
		df.VelX[i] = float64(r.VelX)
		df.VelY[i] = float64(r.VelY)
		df.VelZ[i] = float64(r.VelZ)
	}
	return df, nil
}
