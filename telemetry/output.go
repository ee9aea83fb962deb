package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/faceoff/config"
)

// Output file names inside the match directory.
const (
	telemetryCSV = "telemetry.csv"
	perfCSV      = "perf.csv"
	eventsCSV    = "events.csv"
	bookmarksCSV = "bookmarks.csv"
	configYAML   = "config.yaml"
	summaryYAML  = "summary.yaml"
)

// csvSink is an append-only CSV file whose header goes out with the first
// batch of rows.
type csvSink struct {
	name   string
	f      *os.File
	headed bool
}

func openSink(dir, name string) (*csvSink, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvSink{name: name, f: f}, nil
}

// appendRows writes rows to s. An empty batch writes nothing, header
// included.
func appendRows[T any](s *csvSink, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	var err error
	if s.headed {
		err = gocsv.MarshalWithoutHeaders(rows, s.f)
	} else {
		err = gocsv.Marshal(rows, s.f)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", s.name, err)
	}
	s.headed = true
	return nil
}

// OutputManager owns a match's output directory: CSV streams for window
// stats, perf, events and bookmarks, plus the config and summary YAML. A nil
// manager is valid and discards everything.
type OutputManager struct {
	dir       string
	telemetry *csvSink
	perf      *csvSink
	events    *csvSink
	bookmarks *csvSink
}

// NewOutputManager creates dir and its CSV files. An empty dir disables
// output and returns a nil manager.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for name, dst := range map[string]**csvSink{
		telemetryCSV: &om.telemetry,
		perfCSV:      &om.perf,
		eventsCSV:    &om.events,
		bookmarksCSV: &om.bookmarks,
	} {
		s, err := openSink(dir, name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*dst = s
	}
	return om, nil
}

func (om *OutputManager) sinks() []*csvSink {
	return []*csvSink{om.telemetry, om.perf, om.events, om.bookmarks}
}

// WriteConfig saves cfg as config.yaml.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, configYAML))
}

// WriteTelemetry appends one window to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return appendRows(om.telemetry, []WindowStats{stats})
}

// WritePerf appends the perf summary for the window ending at windowEnd.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return appendRows(om.perf, []PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteEvents appends records to events.csv.
func (om *OutputManager) WriteEvents(records []EventRecord) error {
	if om == nil {
		return nil
	}
	return appendRows(om.events, records)
}

// WriteBookmark appends b to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return appendRows(om.bookmarks, []Bookmark{b})
}

// WriteSummary saves s as summary.yaml, replacing any earlier summary.
func (om *OutputManager) WriteSummary(s Summary) error {
	if om == nil {
		return nil
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(om.dir, summaryYAML), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", summaryYAML, err)
	}
	return nil
}

// Dir is the output directory, empty when output is disabled.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes every CSV file and reports all close failures.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, s := range om.sinks() {
		if s == nil {
			continue
		}
		if err := s.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
