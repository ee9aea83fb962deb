package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType names a kind of notable moment.
type BookmarkType string

const (
	BookmarkShotSurge       BookmarkType = "shot_surge"
	BookmarkGoalFlurry      BookmarkType = "goal_flurry"
	BookmarkPossessionSwing BookmarkType = "possession_swing"
	BookmarkComeback        BookmarkType = "comeback"
	BookmarkStalemate       BookmarkType = "stalemate"
)

// Detection thresholds.
const (
	surgeFactor      = 2.0 // shots over this multiple of the running mean
	surgeMinShots    = 5
	surgeMinHistory  = 3
	flurryGoals      = 3
	swingHigh        = 0.65 // a side holding this share...
	swingLow         = 0.35 // ...dropping to this one
	comebackLead     = 2
	stalemateWindows = 5
)

// Bookmark marks a notable moment at the end of a stats window.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogValue implements slog.LogValuer.
func (b Bookmark) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(b.Type)),
		slog.Int("tick", int(b.Tick)),
		slog.String("description", b.Description),
	)
}

// BookmarkDetector watches consecutive windows for notable moments. It keeps
// the last few windows plus the lead and drought state that spans them.
type BookmarkDetector struct {
	recent []WindowStats // oldest first
	keep   int

	maxLead   int // largest lead since the score was last level
	droughtAt int // goalless windows in a row
}

// NewBookmarkDetector remembers up to keep windows, at least three.
func NewBookmarkDetector(keep int) *BookmarkDetector {
	return &BookmarkDetector{keep: max(keep, surgeMinHistory)}
}

// Check compares w against the remembered windows, returns the moments it
// completes and then remembers w.
func (bd *BookmarkDetector) Check(w WindowStats) []Bookmark {
	var out []Bookmark
	for _, rule := range []func(WindowStats) (BookmarkType, string){
		bd.shotSurge,
		bd.goalFlurry,
		bd.possessionSwing,
		bd.comeback,
		bd.stalemate,
	} {
		if kind, desc := rule(w); kind != "" {
			out = append(out, Bookmark{Type: kind, Tick: w.WindowEndTick, Description: desc})
		}
	}

	bd.recent = append(bd.recent, w)
	if len(bd.recent) > bd.keep {
		bd.recent = bd.recent[len(bd.recent)-bd.keep:]
	}
	return out
}

func (bd *BookmarkDetector) shotSurge(w WindowStats) (BookmarkType, string) {
	if len(bd.recent) < surgeMinHistory || w.Shots < surgeMinShots {
		return "", ""
	}
	total := 0
	for _, r := range bd.recent {
		total += r.Shots
	}
	mean := float64(total) / float64(len(bd.recent))
	if mean == 0 || float64(w.Shots) <= surgeFactor*mean {
		return "", ""
	}
	return BookmarkShotSurge, fmt.Sprintf("%d shots is %.1fx average (%.1f)", w.Shots, float64(w.Shots)/mean, mean)
}

func (bd *BookmarkDetector) goalFlurry(w WindowStats) (BookmarkType, string) {
	goals := w.GoalsHome + w.GoalsAway
	if goals < flurryGoals {
		return "", ""
	}
	return BookmarkGoalFlurry, fmt.Sprintf("%d goals in one window (%d-%d)", goals, w.GoalsHome, w.GoalsAway)
}

// possessionSwing fires when a side that dominated the previous window has
// lost the puck to the other side in this one.
func (bd *BookmarkDetector) possessionSwing(w WindowStats) (BookmarkType, string) {
	if len(bd.recent) == 0 {
		return "", ""
	}
	prev := bd.recent[len(bd.recent)-1]
	sides := []struct {
		name              string
		before, now, them float64
	}{
		{"Home", prev.HomePossession, w.HomePossession, w.AwayPossession},
		{"Away", prev.AwayPossession, w.AwayPossession, w.HomePossession},
	}
	for _, s := range sides {
		if s.before >= swingHigh && s.now <= swingLow && s.them >= 0.5 {
			return BookmarkPossessionSwing, fmt.Sprintf("%s possession fell from %.0f%% to %.0f%%", s.name, s.before*100, s.now*100)
		}
	}
	return "", ""
}

func (bd *BookmarkDetector) comeback(w WindowStats) (BookmarkType, string) {
	lead := w.ScoreHome - w.ScoreAway
	if lead < 0 {
		lead = -lead
	}
	if lead > 0 {
		bd.maxLead = max(bd.maxLead, lead)
		return "", ""
	}
	blown := bd.maxLead
	bd.maxLead = 0
	if blown < comebackLead {
		return "", ""
	}
	return BookmarkComeback, fmt.Sprintf("Level at %d-%d after a %d-goal lead", w.ScoreHome, w.ScoreAway, blown)
}

// stalemate fires once per drought, on the window that reaches the limit.
func (bd *BookmarkDetector) stalemate(w WindowStats) (BookmarkType, string) {
	if w.GoalsHome+w.GoalsAway > 0 {
		bd.droughtAt = 0
		return "", ""
	}
	bd.droughtAt++
	if bd.droughtAt != stalemateWindows {
		return "", ""
	}
	return BookmarkStalemate, fmt.Sprintf("No goals for %d windows at %d-%d", stalemateWindows, w.ScoreHome, w.ScoreAway)
}
