package trajectory

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		hasHeader bool
		wantRows  int
	}{
		{"empty", "", false, 0},
		{"header only", "px,py,pz,vx,vy,vz\n", true, 0},
		{"one row", "1,2,3,4,5,6\n", false, 1},
		{"header and rows", "px,py,pz,vx,vy,vz\n1,2,3,4,5,6\n-1e-3,0,0,0.5,0,12\n", true, 2},
		{"no trailing newline", "1,2,3,4,5,6", false, 1},
		{"spaces after commas", "1, 2, 3, 4, 5, 6\n", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df, err := Read(strings.NewReader(tt.input), tt.hasHeader)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if df.Len() != tt.wantRows {
				t.Errorf("Len = %d, want %d", df.Len(), tt.wantRows)
			}
			for _, col := range [][]float64{df.PosY, df.PosZ, df.VelX, df.VelY, df.VelZ} {
				if len(col) != df.Len() {
					t.Errorf("column length %d, want %d", len(col), df.Len())
				}
			}
		})
	}
}

func TestReadValues(t *testing.T) {
	input := "pos_x,pos_y,pos_z,vel_x,vel_y,vel_z\n1,2,3,4,5,6\n-1e-3,0,0,0.5,0,12\n"
	df, err := Read(strings.NewReader(input), true)
	if err != nil {
		t.Fatal(err)
	}

	wantPos := []r3.Vec{{X: 1, Y: 2, Z: 3}, {X: -1e-3}}
	wantVel := []r3.Vec{{X: 4, Y: 5, Z: 6}, {X: 0.5, Z: 12}}
	pos, vel := df.Positions(), df.Velocities()
	for i := range wantPos {
		if pos[i] != wantPos[i] {
			t.Errorf("row %d position = %v, want %v", i, pos[i], wantPos[i])
		}
		if vel[i] != wantVel[i] {
			t.Errorf("row %d velocity = %v, want %v", i, vel[i], wantVel[i])
		}
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		hasHeader bool
	}{
		{"non-numeric field", "1,2,3,4,5,abc\n", false},
		{"empty field", "1,2,,4,5,6\n", false},
		{"too few columns", "1,2,3,4,5\n", false},
		{"too many columns", "1,2,3,4,5,6,7\n", false},
		{"bad row after good ones", "1,2,3,4,5,6\n1,2,3,4,5,6\nx,2,3,4,5,6\n", false},
		{"header not skipped", "px,py,pz,vx,vy,vz\n1,2,3,4,5,6\n", false},
		{"short header", "px,py\n1,2,3,4,5,6\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df, err := Read(strings.NewReader(tt.input), tt.hasHeader)
			if !errors.Is(err, ErrMalformedRow) {
				t.Errorf("err = %v, want ErrMalformedRow", err)
			}
			if df != nil {
				t.Errorf("got partial frame with %d rows", df.Len())
			}
		})
	}
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atoms.csv")
	if err := os.WriteFile(path, []byte("x,y,z,vx,vy,vz\n0,0,0,1,1,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	df, err := ReadCSV(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if df.Len() != 1 || df.VelZ[0] != 1 {
		t.Errorf("frame = %+v", df)
	}

	if _, err := ReadCSV(filepath.Join(dir, "missing.csv"), false); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want ErrNotExist", err)
	}
}
