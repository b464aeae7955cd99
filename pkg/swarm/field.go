package swarm

import (
	"sort"
	"sync"
)

// Field defaults. Cells keep the 50 most recent signatures and each
// deposit adds 0.1 pheromone, saturating at 1.0.
const (
	DefaultCellCapacity  = 50
	DefaultPheromoneStep = 0.1
	maxPheromoneLevel    = 1.0
)

// FieldConfig configures a stigmergic field.
type FieldConfig struct {
	// Dimensions pins the field's dimensionality. Zero means "pin on first
	// deposit": the first signature's dimensionality becomes the field's.
	Dimensions int

	// Resolution is the number of decimal places positions are rounded to
	// when computing cell keys. Coarser (lower) resolution trades recall
	// for memory. Default 0: unit cells.
	Resolution int

	// CellCapacity bounds the per-cell signature buffer (FIFO eviction).
	// Zero means DefaultCellCapacity.
	CellCapacity int

	// PheromoneStep is added to a cell's pheromone level per deposit,
	// capped at 1.0. Zero means DefaultPheromoneStep.
	PheromoneStep float64

	// Strategy decides which cells QueryNear inspects. Nil means CellQuery,
	// the single-cell historical behaviour.
	Strategy QueryStrategy
}

// Field is the in-memory stigmergic field: a spatial hash from rounded
// positions to bounded buffers of recent trail signatures plus a decayable
// pheromone scalar per cell.
//
// A Field must be constructed with NewField and injected into whatever
// owns it; there is deliberately no package-level instance. It is safe for
// concurrent use.
type Field struct {
	mu            sync.RWMutex
	dims          int
	resolution    int
	cellCapacity  int
	pheromoneStep float64
	strategy      QueryStrategy
	cells         map[string]*FieldPoint
}

// NewField creates an empty field. Zero-valued config fields take the
// documented defaults.
func NewField(cfg FieldConfig) *Field {
	if cfg.CellCapacity <= 0 {
		cfg.CellCapacity = DefaultCellCapacity
	}
	if cfg.PheromoneStep <= 0 {
		cfg.PheromoneStep = DefaultPheromoneStep
	}
	if cfg.Strategy == nil {
		cfg.Strategy = CellQuery{}
	}
	return &Field{
		dims:          cfg.Dimensions,
		resolution:    cfg.Resolution,
		cellCapacity:  cfg.CellCapacity,
		pheromoneStep: cfg.PheromoneStep,
		strategy:      cfg.Strategy,
		cells:         make(map[string]*FieldPoint),
	}
}

// Dimensions returns the field's pinned dimensionality, or zero if no
// deposit has pinned it yet.
func (f *Field) Dimensions() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dims
}

// Resolution returns the configured grid resolution (decimal places).
func (f *Field) Resolution() int {
	return f.resolution
}

// Deposit records a trail signature into the cell containing its emission
// position. The cell is created on first deposit; the signature buffer is
// FIFO-bounded at the configured capacity and the cell's pheromone level
// is incremented by the configured step, capped at 1.0.
//
// The only error condition is a malformed signature (missing node ID,
// empty or mismatched position); the spatial operation itself never fails.
func (f *Field) Deposit(sig TrailSignature) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := sig.Validate(f.dims); err != nil {
		return err
	}
	if f.dims == 0 {
		f.dims = len(sig.PositionAtEmission)
	}

	// Snapshot the position so the stored signature cannot alias the
	// emitter's live state.
	sig.PositionAtEmission = sig.PositionAtEmission.Copy()

	key := CellKeyFor(sig.PositionAtEmission, f.resolution)
	point, ok := f.cells[key]
	if !ok {
		point = &FieldPoint{
			Coordinates: CellCoordinates(sig.PositionAtEmission, f.resolution),
		}
		f.cells[key] = point
	}

	point.RecentTrails = append(point.RecentTrails, sig)
	if len(point.RecentTrails) > f.cellCapacity {
		// Evict oldest first.
		point.RecentTrails = point.RecentTrails[len(point.RecentTrails)-f.cellCapacity:]
	}

	point.PheromoneLevel += f.pheromoneStep
	if point.PheromoneLevel > maxPheromoneLevel {
		point.PheromoneLevel = maxPheromoneLevel
	}
	return nil
}

// QueryNear returns the signatures stored in the cells the configured
// strategy selects for a search centred on pos with the given radius.
// With the default CellQuery strategy only the exact rounded cell is
// inspected and the radius is ignored. A position with no prior deposits
// yields an empty slice; QueryNear never fails.
func (f *Field) QueryNear(pos Position, radius float64) []TrailSignature {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []TrailSignature
	for _, cell := range f.strategy.CellsWithin(pos, radius, f.resolution) {
		point, ok := f.cells[CellKeyFor(cell, f.resolution)]
		if !ok {
			continue
		}
		out = append(out, point.RecentTrails...)
	}
	return out
}

// PheromoneAt returns the pheromone level of the cell containing pos,
// zero for an unoccupied cell.
func (f *Field) PheromoneAt(pos Position) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if point, ok := f.cells[CellKeyFor(pos, f.resolution)]; ok {
		return point.PheromoneLevel
	}
	return 0
}

// Decay multiplies every cell's pheromone level by factor (clamped to
// [0, 1]). Cells are never removed, matching the additive-only historical
// behaviour when Decay is simply never called. Callers that want decay
// schedule it explicitly.
func (f *Field) Decay(factor float64) {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, point := range f.cells {
		point.PheromoneLevel *= factor
	}
}

// CellCount returns the number of occupied cells. The field never deletes
// cells, so this grows monotonically with the number of distinct visited
// regions.
func (f *Field) CellCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cells)
}

// Snapshot returns a deep copy of every occupied cell, ordered by cell
// key for stable output. Used by the CLI field inspector.
func (f *Field) Snapshot() []FieldPoint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.cells))
	for k := range f.cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]FieldPoint, 0, len(keys))
	for _, k := range keys {
		point := f.cells[k]
		cp := FieldPoint{
			Coordinates:    point.Coordinates.Copy(),
			PheromoneLevel: point.PheromoneLevel,
			RecentTrails:   make([]TrailSignature, len(point.RecentTrails)),
		}
		copy(cp.RecentTrails, point.RecentTrails)
		out = append(out, cp)
	}
	return out
}
