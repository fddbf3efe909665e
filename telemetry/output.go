// Package telemetry provides CSV output, population statistics and per-system
// performance tracking.
package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/lasercool/config"
)

// TrajectoryRecord is one row of trajectory.csv.
type TrajectoryRecord struct {
	Step uint64  `csv:"step"`
	Atom uint32  `csv:"atom"`
	PosX float64 `csv:"pos_x"`
	PosY float64 `csv:"pos_y"`
	PosZ float64 `csv:"pos_z"`
	VelX float64 `csv:"vel_x"`
	VelY float64 `csv:"vel_y"`
	VelZ float64 `csv:"vel_z"`
}

// csvFile writes gocsv records, with the header only on the first write.
type csvFile struct {
	mu            sync.Mutex
	name          string
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{name: name, f: f}, nil
}

func (c *csvFile) write(records any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return fmt.Errorf("writing %s: %w", c.name, err)
		}
		c.headerWritten = true
		return nil
	}
	// Subsequent writes skip headers
	if err := gocsv.MarshalWithoutHeaders(records, c.f); err != nil {
		return fmt.Errorf("writing %s: %w", c.name, err)
	}
	return nil
}

func (c *csvFile) close() error {
	if c == nil {
		return nil
	}
	return c.f.Close()
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir        string
	trajectory *csvFile
	population *csvFile
	perf       *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled). A nil manager accepts every
// write and discards it.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	var err error
	if om.trajectory, err = createCSV(dir, "trajectory.csv"); err != nil {
		return nil, err
	}
	if om.population, err = createCSV(dir, "population.csv"); err != nil {
		om.Close()
		return nil, err
	}
	if om.perf, err = createCSV(dir, "perf.csv"); err != nil {
		om.Close()
		return nil, err
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTrajectory appends atom states to trajectory.csv.
func (om *OutputManager) WriteTrajectory(records []TrajectoryRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	return om.trajectory.write(records)
}

// WritePopulation appends a stats record to population.csv.
func (om *OutputManager) WritePopulation(stats PopulationStats) error {
	if om == nil {
		return nil
	}
	return om.population.write([]PopulationStats{stats})
}

// WritePerf appends the perf window ending at step to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, step uint64) error {
	if om == nil {
		return nil
	}
	return om.perf.write(stats.ToCSV(step))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(om.trajectory.close(), om.population.close(), om.perf.close())
}
