package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/faceoff/config"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// All writes on a nil manager are no-ops
	assert.NoError(t, om.WriteTelemetry(WindowStats{}))
	assert.NoError(t, om.WriteEvents([]EventRecord{{}}))
	assert.NoError(t, om.WriteSummary(Summary{}))
	assert.NoError(t, om.Close())
	assert.Empty(t, om.Dir())
}

func TestOutputManagerHeadersWrittenOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 1800, Shots: 4}))
	require.NoError(t, om.WriteTelemetry(WindowStats{WindowEndTick: 3600, Shots: 2}))
	require.NoError(t, om.WriteEvents(nil))
	require.NoError(t, om.WriteEvents([]EventRecord{{Tick: 1, Type: "shot"}, {Tick: 2, Type: "goal"}}))
	require.NoError(t, om.WriteEvents([]EventRecord{{Tick: 3, Type: "faceoff"}}))
	require.NoError(t, om.WriteBookmark(Bookmark{Type: BookmarkStalemate, Tick: 9000, Description: "quiet"}))
	require.NoError(t, om.Close())

	telemetry := readLines(t, filepath.Join(dir, "telemetry.csv"))
	require.Len(t, telemetry, 3)
	assert.True(t, strings.HasPrefix(telemetry[0], "window_end,"))
	assert.True(t, strings.HasPrefix(telemetry[2], "3600,"))

	events := readLines(t, filepath.Join(dir, "events.csv"))
	require.Len(t, events, 4)
	assert.True(t, strings.HasPrefix(events[0], "tick,type,"))
	assert.True(t, strings.HasPrefix(events[3], "3,faceoff,"))

	bookmarks := readLines(t, filepath.Join(dir, "bookmarks.csv"))
	assert.Equal(t, []string{"type,tick,description", "stalemate,9000,quiet"}, bookmarks)
}

func TestOutputManagerConfigAndSummary(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	require.NoError(t, err)
	defer om.Close()

	require.NoError(t, om.WriteConfig(config.Default()))
	loaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Pass, loaded.Pass)

	summary := Summary{
		MatchID:   "match-1",
		Seed:      7,
		Ticks:     3600,
		ScoreHome: 3,
		ScoreAway: 2,
		Skaters:   []LifetimeStats{{ID: 1, Name: "home-c", Goals: 2}},
	}
	require.NoError(t, om.WriteSummary(summary))

	data, err := os.ReadFile(filepath.Join(dir, "summary.yaml"))
	require.NoError(t, err)
	var got Summary
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, summary, got)
}
