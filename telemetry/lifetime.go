package telemetry

import "sort"

// LifetimeStats tracks one skater's statistics over a match.
type LifetimeStats struct {
	ID       uint32 `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Team     int    `json:"team" yaml:"team"`
	JoinTick int32  `json:"join_tick" yaml:"join_tick"`

	TimeOnIceSec    float64 `json:"time_on_ice_sec" yaml:"time_on_ice_sec"`
	PossessionTicks int     `json:"possession_ticks" yaml:"possession_ticks"`

	// Puck battles
	Pickups    int `json:"pickups" yaml:"pickups"`
	Steals     int `json:"steals" yaml:"steals"`
	PokeChecks int `json:"poke_checks" yaml:"poke_checks"` // successful pokes
	PucksLost  int `json:"pucks_lost" yaml:"pucks_lost"`   // stolen or knocked loose

	// Shooting
	Shots          int     `json:"shots" yaml:"shots"`
	OneTimers      int     `json:"one_timers" yaml:"one_timers"`
	Goals          int     `json:"goals" yaml:"goals"`
	PeakShotPower  float64 `json:"peak_shot_power" yaml:"peak_shot_power"`
	TotalShotPower float64 `json:"total_shot_power" yaml:"total_shot_power"`

	// Passing
	Passes          int `json:"passes" yaml:"passes"`
	CompletedPasses int `json:"completed_passes" yaml:"completed_passes"`
	Interceptions   int `json:"interceptions" yaml:"interceptions"` // opponents' passes picked off
}

// LifetimeTracker manages per-skater lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a skater joining at joinTick.
func (lt *LifetimeTracker) Register(id uint32, name string, team int, joinTick int32) {
	lt.stats[id] = &LifetimeStats{
		ID:       id,
		Name:     name,
		Team:     team,
		JoinTick: joinTick,
	}
}

// Get returns the lifetime stats for a skater, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// RecordPickup increments the pickup count.
func (lt *LifetimeTracker) RecordPickup(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Pickups++
	}
}

// RecordSteal credits thief and debits victim.
func (lt *LifetimeTracker) RecordSteal(thief, victim uint32) {
	if s := lt.stats[thief]; s != nil {
		s.Steals++
	}
	lt.RecordPuckLost(victim)
}

// RecordPokeCheck credits a successful poke check.
func (lt *LifetimeTracker) RecordPokeCheck(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.PokeChecks++
	}
}

// RecordPuckLost increments the count of pucks lost to opponents.
func (lt *LifetimeTracker) RecordPuckLost(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.PucksLost++
	}
}

// RecordShot records a shot and its power.
func (lt *LifetimeTracker) RecordShot(id uint32, power float64, oneTimer bool) {
	s := lt.stats[id]
	if s == nil {
		return
	}
	s.Shots++
	if oneTimer {
		s.OneTimers++
	}
	s.TotalShotPower += power
	if power > s.PeakShotPower {
		s.PeakShotPower = power
	}
}

// RecordGoal increments goal count.
func (lt *LifetimeTracker) RecordGoal(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Goals++
	}
}

// RecordPass increments pass count.
func (lt *LifetimeTracker) RecordPass(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Passes++
	}
}

// RecordPassOutcome credits the passer for a completion or the receiver
// for an interception.
func (lt *LifetimeTracker) RecordPassOutcome(outcome PassOutcome, passer, receiver uint32) {
	switch outcome {
	case PassCompleted:
		if s := lt.stats[passer]; s != nil {
			s.CompletedPasses++
		}
	case PassIntercepted:
		if s := lt.stats[receiver]; s != nil {
			s.Interceptions++
		}
	}
}

// RecordPossessionTick adds one tick of puck carrying.
func (lt *LifetimeTracker) RecordPossessionTick(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.PossessionTicks++
	}
}

// UpdateTimeOnIce updates time on ice based on current tick.
func (lt *LifetimeTracker) UpdateTimeOnIce(id uint32, currentTick int32, dt float64) {
	if s := lt.stats[id]; s != nil {
		s.TimeOnIceSec = float64(currentTick-s.JoinTick) * dt
	}
}

// All returns copies of all tracked stats ordered by skater id.
func (lt *LifetimeTracker) All() []LifetimeStats {
	out := make([]LifetimeStats, 0, len(lt.stats))
	for _, s := range lt.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of tracked skaters.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
