// Package match runs a game: skaters stored in an ECS world, one shared puck,
// the rink, and per-skater stick, pass and shot components driven by a
// fixed-step loop.
package match

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/components"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/pass"
	"github.com/pthm-cable/faceoff/puck"
	"github.com/pthm-cable/faceoff/rink"
	"github.com/pthm-cable/faceoff/shot"
	"github.com/pthm-cable/faceoff/stick"
	"github.com/pthm-cable/faceoff/telemetry"
)

var (
	// ErrNoName is returned when a skater is added without a name.
	ErrNoName = errors.New("match: skater name required")
	// ErrDuplicateName is returned when two skaters share a name.
	ErrDuplicateName = errors.New("match: duplicate skater name")
	// ErrUnknownTeam is returned when a skater's team is neither home nor away.
	ErrUnknownTeam = errors.New("match: unknown team")
)

// Options configures a match. The zero value runs without output.
type Options struct {
	Seed   int64
	Logger *slog.Logger

	// Telemetry
	Output        *telemetry.OutputManager
	SnapshotDir   string
	LogStats      bool
	StatsCallback func(telemetry.WindowStats)
}

// SkaterSpec describes a skater to add.
type SkaterSpec struct {
	Name       string
	Team       actor.TeamID
	Attributes actor.Attributes
	Home       r3.Vec // faceoff lineup position; facing is toward the attacked end
	Controller Controller
}

// player bundles one skater's per-skater components.
type player struct {
	skater     *skater
	stick      *stick.Resolver
	pass       *pass.Evaluator
	shot       *shot.Engine
	controller Controller
}

// Match holds the complete match state.
type Match struct {
	cfg  *config.Config
	id   string
	seed int64
	log  *slog.Logger
	root *slog.Logger // handed to per-skater components

	world *ecs.World

	// Entity mappers
	skaterMapper *ecs.Map3[components.Body, components.Control, components.Skater]
	skaterFilter *ecs.Filter3[components.Body, components.Control, components.Skater]

	// Individual component mappers for lookups
	bodyMap    *ecs.Map[components.Body]
	controlMap *ecs.Map[components.Control]

	bus      *event.Bus
	puckBody *puck.Body
	puck     *puck.Puck
	rink     *rink.Rink

	// Per-skater components in insertion order
	players []*player
	byID    map[uint32]*player
	names   map[string]bool
	nextID  uint32

	// State
	tick        int32
	accumulator float64
	score       map[actor.TeamID]int
	pause       float64     // seconds until the post-goal faceoff
	lastTouch   actor.Actor // last skater to shoot, pass or carry the puck

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	lifetimeTracker  *telemetry.LifetimeTracker
	bookmarkDetector *telemetry.BookmarkDetector
	bookmarks        []telemetry.Bookmark
	outputManager    *telemetry.OutputManager
	snapshotDir      string
	logStats         bool
	statsCallback    func(telemetry.WindowStats)

	subs []*event.Subscription
}

// New creates a match with the puck at center ice and no skaters.
func New(cfg *config.Config, opts Options) (*Match, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	world := ecs.NewWorld()
	m := &Match{
		cfg:   cfg,
		id:    uuid.NewString(),
		seed:  opts.Seed,
		world: world,

		skaterMapper: ecs.NewMap3[components.Body, components.Control, components.Skater](world),
		skaterFilter: ecs.NewFilter3[components.Body, components.Control, components.Skater](world),
		bodyMap:      ecs.NewMap[components.Body](world),
		controlMap:   ecs.NewMap[components.Control](world),

		byID:   make(map[uint32]*player),
		names:  make(map[string]bool),
		nextID: 1,
		score:  make(map[actor.TeamID]int),

		outputManager: opts.Output,
		snapshotDir:   opts.SnapshotDir,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}
	m.root = log.With("match_id", m.id)
	m.log = m.root.With("component", "match")

	m.bus = event.NewBus(m.root)
	m.puckBody = &puck.Body{}
	p, err := puck.New(cfg.Puck, cfg.Physics.Gravity, m.puckBody, m.bus, m.root)
	if err != nil {
		return nil, fmt.Errorf("creating puck: %w", err)
	}
	m.puck = p
	m.rink = rink.New(cfg.Rink, cfg.Puck.Radius)

	m.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT, m.HomeTeam(), m.AwayTeam())
	m.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	m.lifetimeTracker = telemetry.NewLifetimeTracker()
	m.bookmarkDetector = telemetry.NewBookmarkDetector(10)
	m.subscribe()

	m.puck.Reset(m.rink.CenterIce())
	return m, nil
}

// AddSkater creates a skater at its home spot with its own stick, pass
// evaluator and shot engine.
func (m *Match) AddSkater(spec SkaterSpec) (actor.Actor, error) {
	if spec.Name == "" {
		return nil, ErrNoName
	}
	if m.names[spec.Name] {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, spec.Name)
	}
	if spec.Team != m.HomeTeam() && spec.Team != m.AwayTeam() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownTeam, spec.Team)
	}

	id := m.nextID
	m.nextID++

	home := m.homeSpot(spec.Team, spec.Home)
	body := components.Body{
		Position: home.Position,
		Facing:   home.Facing,
		Radius:   m.cfg.Skater.BodyRadius,
	}
	control := components.Control{}
	sk := components.Skater{
		ID:         id,
		Name:       spec.Name,
		Team:       spec.Team,
		Attributes: spec.Attributes,
		Home:       home,
	}
	entity := m.skaterMapper.NewEntity(&body, &control, &sk)
	view := &skater{m: m, entity: entity, id: id, team: spec.Team}

	st, err := stick.New(m.puck, view, m.cfg.Stick, m.root)
	if err != nil {
		m.world.RemoveEntity(entity)
		return nil, fmt.Errorf("creating stick for %s: %w", spec.Name, err)
	}
	ev, err := pass.New(m.cfg.Pass, m.cfg.Physics.Gravity, st, m.puck, m, m.root)
	if err != nil {
		st.Close()
		m.world.RemoveEntity(entity)
		return nil, fmt.Errorf("creating pass evaluator for %s: %w", spec.Name, err)
	}
	eng, err := shot.New(m.cfg, st, spec.Attributes, m.skaterRNG(spec.Name), m.root)
	if err != nil {
		st.Close()
		m.world.RemoveEntity(entity)
		return nil, fmt.Errorf("creating shot engine for %s: %w", spec.Name, err)
	}
	eng.SetAssistTargets(m.rink.GoalCenter(m.rink.AttackedEnd(spec.Team)))

	pl := &player{skater: view, stick: st, pass: ev, shot: eng, controller: spec.Controller}
	m.players = append(m.players, pl)
	m.byID[id] = pl
	m.names[spec.Name] = true
	m.lifetimeTracker.Register(id, spec.Name, int(spec.Team), m.tick)

	m.log.Info("skater added", "actor", id, "name", spec.Name, "team", spec.Team.String())
	return view, nil
}

// homeSpot places a lineup position inside the rink, facing the attacked end.
func (m *Match) homeSpot(team actor.TeamID, pos r3.Vec) components.Spot {
	pos = m.rink.Clamp(geom.Flatten(pos), m.cfg.Skater.BodyRadius)
	return components.Spot{
		Position: pos,
		Facing:   r3.Vec{X: float64(m.rink.AttackedEnd(team))},
	}
}

// skaterRNG derives a skater's random source from the match seed and its name.
func (m *Match) skaterRNG(name string) *rand.Rand {
	h := xxhash.New()
	fmt.Fprintf(h, "%d/%s", m.seed, name)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// Close releases bus subscriptions and flushes pending telemetry.
func (m *Match) Close() {
	for _, pl := range m.players {
		pl.stick.Close()
	}
	for _, s := range m.subs {
		s.Cancel()
	}
	m.subs = nil
	m.writeEvents()
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// Seed returns the match seed.
func (m *Match) Seed() int64 { return m.seed }

// Config returns the match configuration.
func (m *Match) Config() *config.Config { return m.cfg }

// Tick returns the number of fixed steps run so far.
func (m *Match) Tick() int32 { return m.tick }

// Puck returns the match puck.
func (m *Match) Puck() *puck.Puck { return m.puck }

// Rink returns the rink.
func (m *Match) Rink() *rink.Rink { return m.rink }

// Bus returns the match event bus.
func (m *Match) Bus() *event.Bus { return m.bus }

// HomeTeam returns the team defending the -X end.
func (m *Match) HomeTeam() actor.TeamID { return actor.TeamID(m.cfg.Rink.HomeTeam) }

// AwayTeam returns the team defending the +X end.
func (m *Match) AwayTeam() actor.TeamID { return actor.TeamID(m.cfg.Rink.AwayTeam) }

// Score returns the goals credited to team.
func (m *Match) Score(team actor.TeamID) int { return m.score[team] }

// Paused reports whether play is stopped after a goal.
func (m *Match) Paused() bool { return m.pause > 0 }

// Actors returns every skater on the ice. Implements actor.Roster.
func (m *Match) Actors() []actor.Actor {
	out := make([]actor.Actor, len(m.players))
	for i, pl := range m.players {
		out[i] = pl.skater
	}
	return out
}

// Stick returns the stick of skater id, or nil.
func (m *Match) Stick(id uint32) *stick.Resolver {
	if pl := m.byID[id]; pl != nil {
		return pl.stick
	}
	return nil
}

// PassEvaluator returns the pass evaluator of skater id, or nil.
func (m *Match) PassEvaluator(id uint32) *pass.Evaluator {
	if pl := m.byID[id]; pl != nil {
		return pl.pass
	}
	return nil
}

// ShotEngine returns the shot engine of skater id, or nil.
func (m *Match) ShotEngine(id uint32) *shot.Engine {
	if pl := m.byID[id]; pl != nil {
		return pl.shot
	}
	return nil
}

// Lifetime returns the running stats of skater id, or nil.
func (m *Match) Lifetime(id uint32) *telemetry.LifetimeStats {
	return m.lifetimeTracker.Get(id)
}
