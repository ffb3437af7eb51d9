package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/rules/grid"
)

func testGrid(t *testing.T) *combat.HexGridState {
	t.Helper()
	g := combat.NewHexGrid(10, 10)
	require.NoError(t, g.Place("mover", combat.Coord{Q: 2, R: 2}))
	return g
}

func step(q, r int) combat.Coord {
	return combat.Coord{Q: q, R: r}
}

func TestValidatePath_NormalGroundCostsOnePerHex(t *testing.T) {
	g := testGrid(t)

	res, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2), step(4, 2)}, 6)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Cost)
	assert.Equal(t, step(4, 2), res.Destination)
	assert.Empty(t, res.Hazards)
}

func TestValidatePath_DifficultTerrainCostsDouble(t *testing.T) {
	g := testGrid(t)
	g.Terrain[step(3, 2).Key()] = combat.TerrainDifficult

	res, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2), step(4, 2)}, 6)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Cost)
}

func TestValidatePath_HazardousHexesAreListed(t *testing.T) {
	g := testGrid(t)
	g.Terrain[step(3, 2).Key()] = combat.TerrainHazardous

	res, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2), step(4, 2)}, 6)

	require.NoError(t, err)
	assert.Equal(t, []combat.Coord{step(3, 2)}, res.Hazards)
}

func TestValidatePath_RejectsNonContiguousPath(t *testing.T) {
	g := testGrid(t)

	_, err := grid.ValidatePath(g, "mover", []combat.Coord{step(5, 5)}, 10)

	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestValidatePath_RejectsImpassableTerrain(t *testing.T) {
	g := testGrid(t)
	g.Terrain[step(3, 2).Key()] = combat.TerrainImpassable

	_, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2)}, 10)

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidTarget, errors.GetCode(err))
}

func TestValidatePath_RejectsOccupiedHex(t *testing.T) {
	g := testGrid(t)
	require.NoError(t, g.Place("blocker", step(3, 2)))

	_, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2)}, 10)

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidTarget, errors.GetCode(err))
}

func TestValidatePath_RejectsLeavingTheGrid(t *testing.T) {
	g := testGrid(t)
	require.NoError(t, g.Place("edge", step(0, 0)))

	_, err := grid.ValidatePath(g, "edge", []combat.Coord{step(-1, 0)}, 10)

	require.Error(t, err)
	assert.Equal(t, errors.CodeOutOfRange, errors.GetCode(err))
}

func TestValidatePath_RejectsOverBudget(t *testing.T) {
	g := testGrid(t)

	_, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2), step(4, 2), step(5, 2)}, 2)

	require.Error(t, err)
	assert.Equal(t, errors.CodeInsufficientAP, errors.GetCode(err))
}

func TestValidatePath_DoesNotMutateTheGrid(t *testing.T) {
	g := testGrid(t)

	_, err := grid.ValidatePath(g, "mover", []combat.Coord{step(3, 2)}, 6)

	require.NoError(t, err)
	coord, ok := g.CoordOf("mover")
	require.True(t, ok)
	assert.Equal(t, step(2, 2), coord, "validation never moves the entity")
}
