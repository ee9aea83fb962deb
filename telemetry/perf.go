package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the fixed step.
const (
	PhaseSkaters    = "skaters"
	PhaseSticks     = "sticks"
	PhaseCharges    = "charges"
	PhasePuck       = "puck"
	PhaseRink       = "rink"
	PhaseEvaluators = "evaluators"
	PhaseTelemetry  = "telemetry"
)

// phases lists the fixed-step phases in execution order.
var phases = []string{
	PhaseSkaters, PhaseSticks, PhaseCharges, PhasePuck,
	PhaseRink, PhaseEvaluators, PhaseTelemetry,
}

// tickTiming is one fixed step's wall time, split by phase slot.
type tickTiming struct {
	total time.Duration
	slots []time.Duration
}

// PerfCollector keeps the wall-clock cost of the last N fixed steps and the
// shape of the most recent frame. Phase slots are assigned on first use, so
// phases outside the standard set are tracked too.
type PerfCollector struct {
	ring   []tickTiming
	next   int
	filled int

	// Window totals, kept in step with the ring.
	sumTotal time.Duration
	sumSlots []time.Duration

	slotOf map[string]int
	names  []string

	cur       tickTiming
	begun     time.Time
	mark      time.Time
	open      int
	lastFrame time.Time
	frameGap  time.Duration
	steps     int

	now func() time.Time
}

// NewPerfCollector returns a collector averaging over window fixed steps.
// A window below one falls back to a second of steps at 60 Hz.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	p := &PerfCollector{
		ring:   make([]tickTiming, window),
		slotOf: make(map[string]int, len(phases)),
		open:   -1,
		now:    time.Now,
	}
	for _, name := range phases {
		p.slot(name)
	}
	return p
}

func (p *PerfCollector) slot(name string) int {
	if i, ok := p.slotOf[name]; ok {
		return i
	}
	i := len(p.names)
	p.slotOf[name] = i
	p.names = append(p.names, name)
	p.sumSlots = append(p.sumSlots, 0)
	return i
}

// StartTick marks the beginning of a fixed step.
func (p *PerfCollector) StartTick() {
	p.begun = p.now()
	p.cur = tickTiming{slots: make([]time.Duration, len(p.names))}
	p.open = -1
}

// StartPhase closes the running phase, if any, and opens the named one.
func (p *PerfCollector) StartPhase(name string) {
	now := p.now()
	p.closePhase(now)
	p.open = p.slot(name)
	p.mark = now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.open < 0 {
		return
	}
	for len(p.cur.slots) <= p.open {
		p.cur.slots = append(p.cur.slots, 0)
	}
	p.cur.slots[p.open] += now.Sub(p.mark)
	p.open = -1
}

// EndTick closes the running phase and pushes the step into the window,
// evicting the oldest once the window is full.
func (p *PerfCollector) EndTick() {
	now := p.now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.begun)

	old := p.ring[p.next]
	if p.filled == len(p.ring) {
		p.sumTotal -= old.total
		for i, d := range old.slots {
			p.sumSlots[i] -= d
		}
	} else {
		p.filled++
	}
	p.sumTotal += p.cur.total
	for i, d := range p.cur.slots {
		p.sumSlots[i] += d
	}
	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
}

// RecordFrame notes the end of a variable-rate frame that ran steps fixed
// steps. The frame interval is measured between consecutive calls.
func (p *PerfCollector) RecordFrame(steps int) {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.frameGap = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
	p.steps = steps
}

// PerfStats summarizes the collector's window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// PhaseAvg is the mean per-step cost of each phase seen in the window,
	// PhasePct the same as a share of the mean step.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64
	StepsPerFrame int
}

// Stats reads the window. An empty window yields zero timings with non-nil
// phase maps.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameGap,
		StepsPerFrame: p.steps,
	}
	if p.frameGap > 0 {
		s.FPS = time.Second.Seconds() / p.frameGap.Seconds()
	}
	if p.filled == 0 {
		return s
	}

	n := time.Duration(p.filled)
	s.AvgTickDuration = p.sumTotal / n
	s.MinTickDuration = p.ring[0].total
	for _, t := range p.ring[:p.filled] {
		s.MinTickDuration = min(s.MinTickDuration, t.total)
		s.MaxTickDuration = max(s.MaxTickDuration, t.total)
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = time.Second.Seconds() / s.AvgTickDuration.Seconds()
	}

	for i, sum := range p.sumSlots {
		if sum <= 0 {
			continue
		}
		name := p.names[i]
		avg := sum / n
		s.PhaseAvg[name] = avg
		if s.AvgTickDuration > 0 {
			s.PhasePct[name] = 100 * avg.Seconds() / s.AvgTickDuration.Seconds()
		}
	}
	return s
}

// LogValue implements slog.LogValuer. Standard phases come first in step
// order; phases under a tenth of a percent are left out.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
	}
	if s.FPS > 0 {
		attrs = append(attrs,
			slog.Int("fps", int(s.FPS)),
			slog.Int("steps_per_frame", s.StepsPerFrame),
		)
	}
	for _, name := range phases {
		if pct := s.PhasePct[name]; pct >= 0.1 {
			attrs = append(attrs, slog.Float64(name+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd     int32   `csv:"window_end"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	FPS           float64 `csv:"fps"`
	StepsPerFrame int     `csv:"steps_per_frame"`
	SkatersPct    float64 `csv:"skaters_pct"`
	SticksPct     float64 `csv:"sticks_pct"`
	ChargesPct    float64 `csv:"charges_pct"`
	PuckPct       float64 `csv:"puck_pct"`
	RinkPct       float64 `csv:"rink_pct"`
	EvaluatorsPct float64 `csv:"evaluators_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the summary for the window ending at tick windowEnd.
// Phases outside the standard set have no column.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	pct := s.PhasePct
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgTickUS:     s.AvgTickDuration.Microseconds(),
		MinTickUS:     s.MinTickDuration.Microseconds(),
		MaxTickUS:     s.MaxTickDuration.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		FPS:           s.FPS,
		StepsPerFrame: s.StepsPerFrame,
		SkatersPct:    pct[PhaseSkaters],
		SticksPct:     pct[PhaseSticks],
		ChargesPct:    pct[PhaseCharges],
		PuckPct:       pct[PhasePuck],
		RinkPct:       pct[PhaseRink],
		EvaluatorsPct: pct[PhaseEvaluators],
		TelemetryPct:  pct[PhaseTelemetry],
	}
}
