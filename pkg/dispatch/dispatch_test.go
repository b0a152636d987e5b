package dispatch

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroups(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 512, 0},
		{1, 512, 1},
		{511, 512, 1},
		{512, 512, 1},
		{513, 512, 2},
		{16384, 512, 32},
		{16385, 512, 33},
		{10, 0, 0},
		{-3, 4, 0},
	}
	for _, tt := range tests {
		if got := Groups(tt.total, tt.size); got != tt.want {
			t.Errorf("Groups(%d, %d) = %d; want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestNewGrid(t *testing.T) {
	g, err := NewGrid(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Grid{GroupSize: DefaultGroupSize, TileWidth: DefaultTileWidth, TileHeight: DefaultTileHeight}, g)

	g, err = NewGrid(64, 8, 4)
	require.NoError(t, err)
	assert.Equal(t, Grid{GroupSize: 64, TileWidth: 8, TileHeight: 4}, g)

	_, err = NewGrid(-1, 8, 8)
	assert.Error(t, err)
}

func TestGrid_AgentGroupsCoverEveryIndexOnce(t *testing.T) {
	g := Grid{GroupSize: 512, TileWidth: 32, TileHeight: 32}
	for _, total := range []int{0, 1, 511, 512, 513, 1025, 16384} {
		seen := make([]int, total)
		groups := g.AgentGroups(total)
		assert.Len(t, groups, Groups(total, 512))
		for _, r := range groups {
			assert.LessOrEqual(t, r.Len(), 512)
			for i := r.Start; i < r.End; i++ {
				seen[i]++
			}
		}
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("total %d: index %d covered %d times", total, i, n)
			}
		}
	}
}

func TestGrid_TilesCoverEveryPixelOnce(t *testing.T) {
	g := Grid{GroupSize: 512, TileWidth: 32, TileHeight: 32}
	sizes := []image.Point{{0, 0}, {1, 1}, {32, 32}, {33, 31}, {100, 70}, {640, 480}}
	for _, sz := range sizes {
		cols, rows := g.TileCount(sz.X, sz.Y)
		tiles := g.Tiles(sz.X, sz.Y)
		require.Len(t, tiles, cols*rows)

		seen := make([]int, sz.X*sz.Y)
		for i, r := range tiles {
			assert.False(t, r.Empty(), "tile %d of %v is empty", i, sz)
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					seen[y*sz.X+x]++
					assert.Equal(t, i, g.TileIndex(sz.X, sz.Y, x, y))
				}
			}
		}
		for p, n := range seen {
			if n != 1 {
				t.Fatalf("canvas %v: pixel %d covered %d times", sz, p, n)
			}
		}
	}
	assert.Equal(t, -1, g.TileIndex(10, 10, 10, 0))
	assert.Equal(t, -1, g.TileIndex(10, 10, -1, 0))
}

func TestDispatcher_Agents(t *testing.T) {
	d := NewDispatcher(Grid{GroupSize: 7, TileWidth: 4, TileHeight: 4}, 3)
	assert.Equal(t, 3, d.Workers())

	const total = 100
	var hits [total]int32
	err := d.Agents(context.Background(), total, func(ctx context.Context, r Range) error {
		for i := r.Start; i < r.End; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
		return nil
	})
	require.NoError(t, err)
	for i, n := range hits {
		assert.EqualValues(t, 1, n, "index %d", i)
	}

	called := false
	err = d.Agents(context.Background(), 0, func(ctx context.Context, r Range) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called, "zero agents must not dispatch any group")
}

func TestDispatcher_WorkerLimit(t *testing.T) {
	d := NewDispatcher(Grid{GroupSize: 1, TileWidth: 1, TileHeight: 1}, 2)
	var running, peak int32
	var mu sync.Mutex
	err := d.Agents(context.Background(), 50, func(ctx context.Context, r Range) error {
		n := atomic.AddInt32(&running, 1)
		mu.Lock()
		peak = max(peak, n)
		mu.Unlock()
		atomic.AddInt32(&running, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestDispatcher_Tiles(t *testing.T) {
	d := NewDispatcher(Grid{GroupSize: 512, TileWidth: 16, TileHeight: 8}, 0)
	assert.Positive(t, d.Workers())

	var mu sync.Mutex
	area := 0
	seen := map[int]bool{}
	err := d.Tiles(context.Background(), 50, 20, func(ctx context.Context, tile int, r image.Rectangle) error {
		mu.Lock()
		defer mu.Unlock()
		area += r.Dx() * r.Dy()
		seen[tile] = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 50*20, area)
	assert.Len(t, seen, 4*3)

	err = d.Tiles(context.Background(), 0, 20, func(ctx context.Context, tile int, r image.Rectangle) error {
		t.Fatal("empty canvas must not dispatch")
		return nil
	})
	assert.NoError(t, err)
}

func TestDispatcher_Errors(t *testing.T) {
	d := NewDispatcher(Grid{GroupSize: 1, TileWidth: 1, TileHeight: 1}, 1)
	boom := errors.New("boom")

	err := d.Agents(context.Background(), 10, func(ctx context.Context, r Range) error {
		if r.Start == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.Tiles(ctx, 4, 4, func(ctx context.Context, tile int, r image.Rectangle) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
