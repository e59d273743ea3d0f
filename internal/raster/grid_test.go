package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencolorado/datamap/internal/config"
)

func unitGrid() Grid {
	return Grid{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000, Resolution: 100}
}

func TestGridDimensions(t *testing.T) {
	g := unitGrid()
	require.NoError(t, g.Validate())
	assert.Equal(t, 10, g.Width())
	assert.Equal(t, 10, g.Height())
	assert.InDelta(t, 1_000_000, g.Area(), 1e-9)
}

func TestGridDimensionsRoundUp(t *testing.T) {
	g := Grid{MinX: 0, MinY: 0, MaxX: 1050, MaxY: 950, Resolution: 100}
	assert.Equal(t, 11, g.Width())
	assert.Equal(t, 10, g.Height())
}

func TestGridValidate(t *testing.T) {
	g := unitGrid()
	g.Resolution = 0
	require.Error(t, g.Validate())

	g = unitGrid()
	g.Resolution = -5
	require.Error(t, g.Validate())

	g = unitGrid()
	g.MaxX = g.MinX
	require.Error(t, g.Validate())

	g = unitGrid()
	g.MaxY = -1
	require.Error(t, g.Validate())
}

func TestGridToPixel(t *testing.T) {
	g := unitGrid()

	// Top-left world corner is pixel origin.
	px, py := g.ToPixel(0, 1000)
	assert.InDelta(t, 0, px, 1e-9)
	assert.InDelta(t, 0, py, 1e-9)

	// Bottom-right world corner is the far pixel edge.
	px, py = g.ToPixel(1000, 0)
	assert.InDelta(t, 10, px, 1e-9)
	assert.InDelta(t, 10, py, 1e-9)

	// Center.
	px, py = g.ToPixel(500, 500)
	assert.InDelta(t, 5, px, 1e-9)
	assert.InDelta(t, 5, py, 1e-9)
}

func TestFromConfig(t *testing.T) {
	g := FromConfig(config.GridConfig{
		MinX: -12140532.1637, MaxX: -11359138.5791,
		MinY: 4438050.84302, MaxY: 5012849.66619,
		Resolution: 80,
	})
	require.NoError(t, g.Validate())
	assert.Equal(t, 9768, g.Width())
	assert.Equal(t, 7185, g.Height())
}
