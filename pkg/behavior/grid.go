package behavior

import (
	"slices"

	"github.com/lao-tseu-is-alive/go-boids-unlimited/pkg/geometry"
)

// minCellSize avoids tiny grids or div by zero when the radius is very small.
const minCellSize = 10

// Grid is a spatial hash over agent indices used as a neighbour index.
// It is rebuilt once per frame from the frame-start snapshot, after that
// any number of goroutines may query it concurrently.
type Grid struct {
	cellSize   float32
	cols, rows int
	cells      [][]int
}

// NewGrid returns an empty grid, call Rebuild before querying it.
func NewGrid() *Grid {
	return &Grid{cellSize: minCellSize}
}

// Rebuild buckets every agent into a cell at least radius wide,
// so the 3x3 block around a point covers everything closer than radius.
func (g *Grid) Rebuild(agents Agents, width, height, radius float32) {
	g.cellSize = max(radius, minCellSize)
	cols := int(width/g.cellSize) + 1
	rows := int(height/g.cellSize) + 1
	if cols*rows != len(g.cells) {
		g.cells = make([][]int, cols*rows)
	} else {
		// Reset slices to length 0 but keep capacity, allocation stays near zero at runtime.
		for k := range g.cells {
			g.cells[k] = g.cells[k][:0]
		}
	}
	g.cols, g.rows = cols, rows

	for i, a := range agents {
		k := g.cellIndex(g.cellIndices(a.Position))
		g.cells[k] = append(g.cells[k], i)
	}
}

// Neighbors appends to dst the indices of agents in and around the cell of p (3x3 block),
// sorted in ascending order so the kernel sums them in the same order as a full scan.
func (g *Grid) Neighbors(dst []int, p geometry.Vector2D) []int {
	start := len(dst)
	if len(g.cells) == 0 {
		return dst
	}
	gx, gy := g.cellIndices(p)
	for i := gx - 1; i <= gx+1; i++ {
		if i < 0 || i >= g.cols {
			continue
		}
		for j := gy - 1; j <= gy+1; j++ {
			if j < 0 || j >= g.rows {
				continue
			}
			dst = append(dst, g.cells[g.cellIndex(i, j)]...)
		}
	}
	slices.Sort(dst[start:])
	return dst
}

func (g *Grid) cellIndices(p geometry.Vector2D) (int, int) {
	gx := int(p.X / g.cellSize)
	gy := int(p.Y / g.cellSize)
	return min(max(gx, 0), g.cols-1), min(max(gy, 0), g.rows-1)
}

func (g *Grid) cellIndex(gx, gy int) int {
	return gy*g.cols + gx
}
