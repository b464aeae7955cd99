package swarm

import (
	"math"
	"strconv"
	"strings"
)

// Grid key helpers
//
// The stigmergic field is a spatial hash: positions are rounded to a
// configured number of decimal places and the rounded coordinates key the
// cell. The same key string doubles as the Redis key suffix in the Store,
// so the in-memory field and the persistent mirror always agree on cell
// identity.

// roundTo rounds v to the given number of decimal places, half away from
// zero. Negative resolutions round to powers of ten (resolution -1 buckets
// by tens).
func roundTo(v float64, resolution int) float64 {
	scale := math.Pow(10, float64(resolution))
	return math.Round(v*scale) / scale
}

// CellCoordinates returns the rounded coordinates identifying the cell
// containing pos at the given resolution.
func CellCoordinates(pos Position, resolution int) Position {
	out := make(Position, len(pos))
	for i, v := range pos {
		out[i] = roundTo(v, resolution)
	}
	return out
}

// CellKeyFor returns the canonical string key for the cell containing pos.
// The format is the rounded coordinates joined by commas, rendered with
// exactly `resolution` decimal places (minimum zero) so that -0.0 and 0.0
// collapse to the same cell.
func CellKeyFor(pos Position, resolution int) string {
	prec := resolution
	if prec < 0 {
		prec = 0
	}
	parts := make([]string, len(pos))
	for i, v := range pos {
		r := roundTo(v, resolution)
		if r == 0 {
			r = 0 // normalize -0
		}
		parts[i] = strconv.FormatFloat(r, 'f', prec, 64)
	}
	return strings.Join(parts, ",")
}

// QueryStrategy decides which cells a neighbourhood query inspects.
//
// The historical behaviour of the system this was ported from checked only
// the exact rounded cell and ignored the radius argument. That behaviour
// is preserved as the default (CellQuery) for parity; RadiusQuery is the
// explicit opt-in fix that actually honours the radius.
type QueryStrategy interface {
	// CellsWithin returns the coordinates of every cell the query should
	// inspect for a search centred on center with the given radius.
	CellsWithin(center Position, radius float64, resolution int) []Position
}

// CellQuery inspects only the cell containing the query position. The
// radius argument is accepted and ignored, reproducing the single-cell
// lookup of the original design.
type CellQuery struct{}

// CellsWithin implements QueryStrategy.
func (CellQuery) CellsWithin(center Position, _ float64, resolution int) []Position {
	return []Position{CellCoordinates(center, resolution)}
}

// defaultMaxCells bounds the neighbourhood enumeration: (2k+1)^N cells
// grows quickly with dimensionality, and a runaway query should degrade
// rather than hang.
const defaultMaxCells = 1 << 14

// RadiusQuery inspects every cell whose rounded coordinates lie within
// radius of the query position. This is the multi-cell search the
// single-cell default declines to do.
type RadiusQuery struct {
	// MaxCells caps the enumeration; zero means defaultMaxCells.
	// Enumeration stops once the cap is reached, so an oversized radius
	// returns a partial (inner) neighbourhood rather than blowing up.
	MaxCells int
}

// CellsWithin implements QueryStrategy.
func (q RadiusQuery) CellsWithin(center Position, radius float64, resolution int) []Position {
	if len(center) == 0 {
		return nil
	}
	if radius < 0 {
		radius = 0
	}
	maxCells := q.MaxCells
	if maxCells <= 0 {
		maxCells = defaultMaxCells
	}

	step := math.Pow(10, -float64(resolution))
	k := int(math.Ceil(radius / step))
	base := CellCoordinates(center, resolution)

	// The query position's own cell is always inspected, whatever the radius.
	cells := []Position{base}
	candidate := make(Position, len(base))
	offsets := make([]int, len(base))

	// Depth-first enumeration of offsets in [-k, k] per dimension, pruned
	// by the cap and filtered by actual distance to the query position.
	var walk func(dim int)
	walk = func(dim int) {
		if len(cells) >= maxCells {
			return
		}
		if dim == len(base) {
			allZero := true
			for _, off := range offsets {
				if off != 0 {
					allZero = false
					break
				}
			}
			if allZero {
				return // base cell already included
			}
			cell := CellCoordinates(candidate, resolution)
			if cell.Distance(center) <= radius {
				cells = append(cells, cell)
			}
			return
		}
		for off := -k; off <= k; off++ {
			offsets[dim] = off
			candidate[dim] = base[dim] + float64(off)*step
			walk(dim + 1)
			if len(cells) >= maxCells {
				return
			}
		}
	}
	walk(0)
	return cells
}
