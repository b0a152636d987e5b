// Package dispatch partitions agents and canvas pixels into work groups and
// runs them on a bounded worker pool.
package dispatch

import (
	"fmt"
	"image"
)

const (
	// DefaultGroupSize is the number of agents handled by one work group.
	DefaultGroupSize = 512
	// DefaultTileWidth and DefaultTileHeight size the canvas tiles of the clear and draw passes.
	DefaultTileWidth  = 32
	DefaultTileHeight = 32
)

// Range is the half-open agent index interval [Start, End) of one group.
type Range struct {
	Start, End int
}

// Len is the number of agents in the range.
func (r Range) Len() int { return r.End - r.Start }

// Groups returns ceil(total/size), the number of groups needed to cover total items.
// It is 0 when there is nothing to cover.
func Groups(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Grid describes how a pass is split into work groups.
type Grid struct {
	GroupSize  int
	TileWidth  int
	TileHeight int
}

// NewGrid checks the sizes and returns a Grid. Zero values fall back to the defaults.
func NewGrid(groupSize, tileWidth, tileHeight int) (Grid, error) {
	if groupSize < 0 || tileWidth < 0 || tileHeight < 0 {
		return Grid{}, fmt.Errorf("dispatch grid sizes must not be negative: group=%d tile=%dx%d", groupSize, tileWidth, tileHeight)
	}
	g := Grid{GroupSize: groupSize, TileWidth: tileWidth, TileHeight: tileHeight}
	if g.GroupSize == 0 {
		g.GroupSize = DefaultGroupSize
	}
	if g.TileWidth == 0 {
		g.TileWidth = DefaultTileWidth
	}
	if g.TileHeight == 0 {
		g.TileHeight = DefaultTileHeight
	}
	return g, nil
}

// AgentGroups splits [0,total) into consecutive ranges of at most GroupSize.
// The last range is trimmed, so every index belongs to exactly one range.
func (g Grid) AgentGroups(total int) []Range {
	n := Groups(total, g.GroupSize)
	groups := make([]Range, n)
	for i := range groups {
		start := i * g.GroupSize
		groups[i] = Range{Start: start, End: min(start+g.GroupSize, total)}
	}
	return groups
}

// TileCount returns the number of tile columns and rows covering a width x height canvas.
func (g Grid) TileCount(width, height int) (int, int) {
	return Groups(width, g.TileWidth), Groups(height, g.TileHeight)
}

// Tiles splits the canvas into rectangles, row by row. Edge tiles are clipped
// to the canvas so every pixel belongs to exactly one tile.
func (g Grid) Tiles(width, height int) []image.Rectangle {
	cols, rows := g.TileCount(width, height)
	tiles := make([]image.Rectangle, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			x0, y0 := tx*g.TileWidth, ty*g.TileHeight
			tiles = append(tiles, image.Rect(x0, y0, min(x0+g.TileWidth, width), min(y0+g.TileHeight, height)))
		}
	}
	return tiles
}

// TileIndex returns the index in Tiles of the tile containing pixel (x, y), or -1 when outside.
func (g Grid) TileIndex(width, height, x, y int) int {
	if x < 0 || y < 0 || x >= width || y >= height {
		return -1
	}
	cols, _ := g.TileCount(width, height)
	return (y/g.TileHeight)*cols + x/g.TileWidth
}
