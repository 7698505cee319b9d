package game

import "arena-server/internal/geom"

// foodGrid buckets food positions onto a fixed-size 2-unit cell grid, used
// once every FoodCoalesceEveryTicks ticks to merge nearby pellets into
// one. Only positions within FoodCoalesceHalfExtent of the origin on both
// axes are bucketed; anything further out is left alone, matching the
// original engine's fixed-size coalescing window.
type foodGrid struct {
	cellUnit   float32
	halfCells  int
	cells      map[[2]int][]int // bucket -> indices into the caller's food slice
}

func newFoodGrid(cellUnit, halfExtent float32) *foodGrid {
	return &foodGrid{
		cellUnit:  cellUnit,
		halfCells: int(halfExtent / cellUnit),
		cells:     make(map[[2]int][]int),
	}
}

func (g *foodGrid) bucket(p geom.Point) ([2]int, bool) {
	cx := int(p.X / g.cellUnit)
	cy := int(p.Y / g.cellUnit)
	if cx < -g.halfCells || cx > g.halfCells || cy < -g.halfCells || cy > g.halfCells {
		return [2]int{}, false
	}
	return [2]int{cx, cy}, true
}

// insert records food index i at position p. Foods outside the grid's
// range are silently dropped from coalescing (they keep existing as-is).
func (g *foodGrid) insert(p geom.Point, i int) {
	key, ok := g.bucket(p)
	if !ok {
		return
	}
	g.cells[key] = append(g.cells[key], i)
}

// coalesceFoods merges every bucket with more than one entry into its
// first entry, summing weight and zeroing the rest in place; the caller
// compacts out the zero-weight foods.
func coalesceFoods(foods []Food, cellUnit, halfExtent float32) {
	g := newFoodGrid(cellUnit, halfExtent)
	for i := range foods {
		g.insert(foods[i].P, i)
	}
	for _, idxs := range g.cells {
		if len(idxs) < 2 {
			continue
		}
		first := idxs[0]
		for _, j := range idxs[1:] {
			foods[first].W += foods[j].W
			foods[j].W = 0
		}
	}
}
