package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/terraprint/internal/config"
	"github.com/Faultbox/terraprint/internal/elevation"
	"github.com/Faultbox/terraprint/internal/estimate"
	"github.com/Faultbox/terraprint/internal/heightfield"
	"github.com/Faultbox/terraprint/internal/logger"
	"github.com/Faultbox/terraprint/internal/regions"
	"github.com/Faultbox/terraprint/internal/terrain"
	"github.com/Faultbox/terraprint/pkg/dem"
	"github.com/Faultbox/terraprint/pkg/stl"
)

// Session owns the pipeline state. Only one run is active at a time; starting
// a generate or export cancels whatever was in flight.
type Session struct {
	acquirers     map[string]*elevation.Acquirer
	defaultSource string
	catalog       *regions.Catalog
	model         config.ModelConfig
	terrains      *cache
	log           *zap.Logger
	now           func() time.Time

	mu      sync.Mutex
	current Snapshot
	cancel  context.CancelFunc
	subs    map[int]func(Snapshot)
	nextSub int
}

// Option customizes a Session.
type Option func(*Session)

// WithCatalog replaces the built-in region catalog.
func WithCatalog(c *regions.Catalog) Option {
	return func(s *Session) { s.catalog = c }
}

// WithClock replaces time.Now for terrain timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session over one or more elevation sources. The first source
// is the default.
func New(cfg *config.Config, sources []elevation.Source, opts ...Option) (*Session, error) {
	if len(sources) == 0 {
		return nil, errors.New("pipeline: at least one elevation source is required")
	}

	acqOpts := elevation.Options{
		MaxFetchResolution: cfg.Acquisition.MaxFetchResolution,
		BatchSize:          cfg.Acquisition.BatchSize,
		BatchInterval:      cfg.Acquisition.BatchInterval,
	}

	s := &Session{
		acquirers:     make(map[string]*elevation.Acquirer, len(sources)),
		defaultSource: sources[0].Name(),
		catalog:       regions.Default(),
		model:         cfg.Model,
		terrains:      newCache(cfg.Cache.MaxTerrains),
		log:           logger.Named("pipeline"),
		now:           time.Now,
		current:       Snapshot{State: Idle},
		subs:          make(map[int]func(Snapshot)),
	}
	for _, src := range sources {
		s.acquirers[src.Name()] = elevation.NewAcquirer(src, acqOpts)
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Subscribe registers fn for snapshots of the active run. Calls are made
// synchronously in publish order; fn must not call back into the Session.
// The returned func unsubscribes.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// State returns the current pipeline state.
func (s *Session) State() State {
	return s.Snapshot().State
}

// Terrain returns a cached terrain by id.
func (s *Session) Terrain(id string) (*Terrain, error) {
	t, ok := s.terrains.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoTerrain, id)
	}
	return t, nil
}

// Estimate answers a size and print time query without building anything.
func (s *Session) Estimate(resolution int, addBase bool, scale float64) (estimate.Result, error) {
	if resolution < 2 {
		return estimate.Result{}, invalid("resolution", "%d is below 2", resolution)
	}
	if !(scale > 0) {
		return estimate.Result{}, invalid("scale", "%g must be positive", scale)
	}
	return estimate.Estimate(resolution, addBase, scale), nil
}

// Generate acquires, normalizes and meshes a new terrain.
func (s *Session) Generate(ctx context.Context, req GenerateRequest) (*Terrain, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	box, region, err := s.resolve(req.Target)
	if err != nil {
		return nil, err
	}
	source := req.DataSource
	if source == "" {
		source = s.defaultSource
	}
	acq, ok := s.acquirers[source]
	if !ok {
		return nil, &ValidationError{Field: "data_source", Reason: fmt.Sprintf("%q not configured", source), Err: elevation.ErrUnknownSource}
	}

	run, runCtx := s.begin(ctx, Acquiring)
	defer s.end(run)

	log := s.log.With(zap.Uint64("run", run))
	log.Info("generate started",
		zap.String("region", region),
		zap.Stringer("bbox", box),
		zap.Int("resolution", req.Resolution),
		zap.Float64("exaggeration", req.Exaggeration),
		zap.String("source", source))

	grid, err := acq.Acquire(runCtx, box, req.Resolution, func(p elevation.Progress) {
		s.publish(run, Snapshot{State: Acquiring, Progress: p})
	})
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	if grid.Rows != req.Resolution || grid.Cols != req.Resolution {
		grid = dem.Resample(grid, req.Resolution, req.Resolution)
	}

	if err := s.advance(runCtx, run, Normalizing); err != nil {
		return nil, s.fail(ctx, run, err)
	}
	view, err := s.normalize(grid, req.Exaggeration)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	if err := s.advance(runCtx, run, MeshBuilding); err != nil {
		return nil, s.fail(ctx, run, err)
	}
	opts := terrain.DefaultOptions()
	opts.FootprintMM = s.model.FootprintMM
	preview, err := terrain.BuildPreview(view, opts)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	lo, hi := view.Range()
	lat, lon := box.Center()
	t := &Terrain{
		ID:     uuid.NewString(),
		Region: region,
		Grid:   grid,
		Metadata: Metadata{
			CenterLat:    lat,
			CenterLon:    lon,
			MinElevation: lo,
			MaxElevation: hi,
			DataSource:   source,
			Timestamp:    s.now().UTC(),
			Resolution:   req.Resolution,
		},
		Bounds:       box,
		Exaggeration: req.Exaggeration,
		Preview:      preview,
	}

	if !s.complete(run, Snapshot{State: Ready, TerrainID: t.ID}, func() { s.terrains.put(t) }) {
		return nil, ErrSuperseded
	}
	log.Info("generate finished",
		zap.String("terrain", t.ID),
		zap.Float64("min_elevation", lo),
		zap.Float64("max_elevation", hi),
		zap.Int("preview_triangles", preview.TriangleCount()))
	return t, nil
}

// Export builds the printable solid for a cached terrain and encodes it as
// binary STL.
func (s *Session) Export(ctx context.Context, req ExportRequest) (*Export, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.Terrain(req.TerrainID)
	if err != nil {
		return nil, err
	}

	run, runCtx := s.begin(ctx, Serializing)
	defer s.end(run)

	log := s.log.With(zap.Uint64("run", run), zap.String("terrain", t.ID))

	grid := t.Grid
	if grid.Rows != req.Resolution || grid.Cols != req.Resolution {
		grid = dem.Resample(grid, req.Resolution, req.Resolution)
	}
	view, err := s.normalize(grid, t.Exaggeration)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	if err := runCtx.Err(); err != nil {
		return nil, s.fail(ctx, run, err)
	}

	solid, err := terrain.BuildSolid(view, terrain.Options{
		FootprintMM:   s.model.FootprintMM,
		ScaleXY:       req.ScaleXY,
		ScaleZ:        req.ScaleZ,
		AddBase:       req.AddBase,
		BaseThickness: req.BaseThickness,
	})
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	if err := runCtx.Err(); err != nil {
		return nil, s.fail(ctx, run, err)
	}

	data, err := stl.Encode(solid)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	out := &Export{
		Filename: Filename(t.Region, req.Resolution),
		Data:     data,
		Counts:   solid.Counts,
		Bounds:   solid.Bounds,
	}
	if !s.complete(run, Snapshot{State: Ready, TerrainID: t.ID}, nil) {
		return nil, ErrSuperseded
	}
	log.Info("export finished",
		zap.String("file", out.Filename),
		zap.Int("triangles", solid.TriangleCount()),
		zap.Int("bytes", len(data)))
	return out, nil
}

// normalize projects grid for meshing. A grid that cannot be projected cannot
// be meshed either, so its error is reported as a MeshBuildError.
func (s *Session) normalize(grid *dem.Grid, exaggeration float64) (*heightfield.View, error) {
	view, err := heightfield.Normalize(grid, exaggeration, s.model.VerticalScale())
	if err != nil {
		return nil, &terrain.MeshBuildError{Reason: "normalizing elevation grid", Err: err}
	}
	return view, nil
}

func (s *Session) resolve(target Target) (dem.BoundingBox, string, error) {
	switch t := target.(type) {
	case ByRegion:
		r, err := s.catalog.Lookup(t.ID)
		if err != nil {
			return dem.BoundingBox{}, "", &ValidationError{Field: "region", Reason: err.Error(), Err: err}
		}
		return r.BBox, r.ID, nil
	case ByBoundingBox:
		return t.Box, "", nil
	default:
		return dem.BoundingBox{}, "", invalid("target", "unsupported target %T", target)
	}
}

// begin retires the active run and starts a new one in state.
func (s *Session) begin(ctx context.Context, state State) (uint64, context.Context) {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.log.Debug("run superseded", zap.Uint64("run", s.current.Run))
	}
	run := s.current.Run + 1
	s.cancel = cancel
	s.setLocked(Snapshot{Run: run, State: state})
	return run, runCtx
}

// end releases the run's context if it is still the active one.
func (s *Session) end(run uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Run == run && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// publish delivers snap if run is still active.
func (s *Session) publish(run uint64, snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Run != run {
		return false
	}
	s.setLocked(s.carry(run, snap))
	return true
}

// complete publishes the final snapshot and runs commit atomically with the
// run check, so a superseded run never leaves results behind.
func (s *Session) complete(run uint64, snap Snapshot, commit func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Run != run {
		return false
	}
	if commit != nil {
		commit()
	}
	s.setLocked(s.carry(run, snap))
	return true
}

func (s *Session) advance(ctx context.Context, run uint64, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.publish(run, Snapshot{State: state}) {
		return ErrSuperseded
	}
	s.log.Debug("state changed", zap.Uint64("run", run), zap.Stringer("state", state))
	return nil
}

// fail maps err to the caller-facing error and records the outcome. A run
// cancelled by its own caller returns to Idle; any other failure is published
// as Failed.
func (s *Session) fail(ctx context.Context, run uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Run != run {
		return ErrSuperseded
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		s.log.Info("run cancelled", zap.Uint64("run", run))
		s.setLocked(Snapshot{Run: run, State: Idle})
		return err
	}

	s.log.Warn("run failed", zap.Uint64("run", run), zap.Error(err))
	s.setLocked(Snapshot{Run: run, State: Failed, Err: err.Error()})
	return err
}

// carry stamps snap with run and keeps the last acquisition progress when
// snap has none of its own.
func (s *Session) carry(run uint64, snap Snapshot) Snapshot {
	snap.Run = run
	if snap.Progress == (elevation.Progress{}) {
		snap.Progress = s.current.Progress
	}
	return snap
}

func (s *Session) setLocked(snap Snapshot) {
	s.current = snap
	for _, fn := range s.subs {
		fn(snap)
	}
}
