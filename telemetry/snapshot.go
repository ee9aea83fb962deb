package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is the format written by SaveSnapshot.
const SnapshotVersion = 1

// Snapshot holds the match state at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	MatchID string `json:"match_id"`
	Seed    int64  `json:"seed"`
	Tick    int32  `json:"tick"`

	ScoreHome int `json:"score_home"`
	ScoreAway int `json:"score_away"`

	Puck    PuckState     `json:"puck"`
	Skaters []SkaterState `json:"skaters"`

	// Why the snapshot was taken, e.g. "goal"
	Reason   string    `json:"reason,omitempty"`
	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// PuckState holds the puck's kinematic state.
type PuckState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	VelX float64 `json:"vel_x"`
	VelY float64 `json:"vel_y"`
	VelZ float64 `json:"vel_z"`

	Owner    uint32 `json:"owner,omitempty"` // zero when free
	Airborne bool   `json:"airborne"`
}

// SkaterState holds one skater's state.
type SkaterState struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
	Team int    `json:"team"`

	X       float64 `json:"x"`
	Z       float64 `json:"z"`
	VelX    float64 `json:"vel_x"`
	VelZ    float64 `json:"vel_z"`
	FacingX float64 `json:"facing_x"`
	FacingZ float64 `json:"facing_z"`

	ShotPower float64 `json:"shot_power"`
	Accuracy  float64 `json:"accuracy"`

	HasPuck  bool           `json:"has_puck"`
	Lifetime *LifetimeStats `json:"lifetime,omitempty"`
}

// Summary is the end-of-match report.
type Summary struct {
	MatchID    string          `yaml:"match_id"`
	Seed       int64           `yaml:"seed"`
	Ticks      int32           `yaml:"ticks"`
	SimTimeSec float64         `yaml:"sim_time_sec"`
	ScoreHome  int             `yaml:"score_home"`
	ScoreAway  int             `yaml:"score_away"`
	Bookmarks  []Bookmark      `yaml:"bookmarks,omitempty"`
	Skaters    []LifetimeStats `yaml:"skaters"`
}

// FileName is snapshot_<tick>[_<tag>].json, where the tag is the bookmark
// type when present and the reason otherwise.
func (s *Snapshot) FileName() string {
	tag := s.Reason
	if s.Bookmark != nil {
		tag = string(s.Bookmark.Type)
	}
	if tag == "" {
		return fmt.Sprintf("snapshot_%d.json", s.Tick)
	}
	return fmt.Sprintf("snapshot_%d_%s.json", s.Tick, strings.ReplaceAll(tag, " ", "_"))
}

// SaveSnapshot writes s as indented JSON under dir, creating dir if needed,
// and returns the file's path.
func SaveSnapshot(s *Snapshot, dir string) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot dir: %w", err)
	}
	path := filepath.Join(dir, s.FileName())
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot. Files from a newer
// format version are rejected.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	s := new(Snapshot)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if s.Version > SnapshotVersion {
		return nil, fmt.Errorf("%s: snapshot version %d is newer than %d", path, s.Version, SnapshotVersion)
	}
	return s, nil
}
