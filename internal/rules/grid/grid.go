// Package grid validates hex movement: occupancy, passability, terrain
// costs, and hazardous side effects. The grid is an abstract occupancy and
// cost map, not a renderer.
package grid

import (
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
)

// CostMultiplier returns the movement cost multiplier for a terrain kind.
// Impassable terrain is rejected before costing.
func CostMultiplier(t combat.Terrain) int {
	if t == combat.TerrainDifficult {
		return 2
	}
	return 1
}

// PathResult describes a validated movement path
type PathResult struct {
	// Cost is the summed per-hex movement cost
	Cost int
	// Hazards lists the hazardous hexes entered along the way
	Hazards []combat.Coord
	// Destination is the final hex
	Destination combat.Coord
}

// ValidatePath checks a movement path for one entity without mutating the
// grid. The path excludes the starting hex: every step must be adjacent to
// the previous hex, on the grid, passable, and empty (intermediate hexes
// may not be squeezed through). Budget is the maximum total cost.
func ValidatePath(g *combat.HexGridState, entityID string, path []combat.Coord, budget int) (*PathResult, error) {
	if len(path) == 0 {
		return nil, errors.InvalidArgument("movement path is empty")
	}
	prev, ok := g.CoordOf(entityID)
	if !ok {
		return nil, errors.InvalidTargetf("entity %s is not on the grid", entityID)
	}

	res := &PathResult{}
	for _, step := range path {
		if !g.InBounds(step) {
			return nil, errors.OutOfRange("path leaves the grid at " + step.Key())
		}
		if !prev.Adjacent(step) {
			return nil, errors.InvalidArgument("path is not contiguous at " + step.Key())
		}
		terrain := g.TerrainAt(step)
		if terrain == combat.TerrainImpassable {
			return nil, errors.InvalidTarget("path crosses impassable terrain at " + step.Key())
		}
		if occupant, occupied := g.EntityAt(step); occupied && occupant != entityID {
			return nil, errors.InvalidTarget("hex " + step.Key() + " is occupied")
		}
		res.Cost += CostMultiplier(terrain)
		if terrain == combat.TerrainHazardous {
			res.Hazards = append(res.Hazards, step)
		}
		prev = step
	}

	if res.Cost > budget {
		return nil, errors.InsufficientAPf("path costs %d movement but budget is %d", res.Cost, budget)
	}
	res.Destination = path[len(path)-1]
	return res, nil
}
