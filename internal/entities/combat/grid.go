package combat

import (
	"fmt"
	"strconv"
	"strings"
)

// Coord is an axial hex coordinate
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Key returns the sparse-map key for the coordinate
func (c Coord) Key() string {
	return fmt.Sprintf("%d,%d", c.Q, c.R)
}

// ParseCoordKey parses a key produced by Coord.Key
func ParseCoordKey(key string) (Coord, error) {
	parts := strings.SplitN(key, ",", 2)
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("invalid coord key %q", key)
	}
	q, err := strconv.Atoi(parts[0])
	if err != nil {
		return Coord{}, fmt.Errorf("invalid coord key %q", key)
	}
	r, err := strconv.Atoi(parts[1])
	if err != nil {
		return Coord{}, fmt.Errorf("invalid coord key %q", key)
	}
	return Coord{Q: q, R: r}, nil
}

// Distance returns the hex distance between two axial coordinates
func (c Coord) Distance(o Coord) int {
	dq := abs(c.Q - o.Q)
	dr := abs(c.R - o.R)
	ds := abs((c.Q + c.R) - (o.Q + o.R))
	return (dq + dr + ds) / 2
}

// Adjacent reports whether o is one hex step away
func (c Coord) Adjacent(o Coord) bool {
	return c.Distance(o) == 1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// HexGridState is the occupancy and terrain grid for one combat. Both maps
// are sparse; an absent terrain entry is normal ground, an absent position
// entry is an empty hex. Owned exclusively by CombatState.
type HexGridState struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Terrain is keyed by Coord.Key
	Terrain map[string]Terrain `json:"terrain,omitempty"`
	// Positions maps Coord.Key to the single entity occupying that hex
	Positions map[string]string `json:"positions,omitempty"`
}

// NewHexGrid creates an empty grid of the given dimensions
func NewHexGrid(width, height int) *HexGridState {
	return &HexGridState{
		Width:     width,
		Height:    height,
		Terrain:   make(map[string]Terrain),
		Positions: make(map[string]string),
	}
}

// InBounds reports whether the coordinate lies on the grid
func (g *HexGridState) InBounds(c Coord) bool {
	return c.Q >= 0 && c.Q < g.Width && c.R >= 0 && c.R < g.Height
}

// TerrainAt returns the terrain of a hex, defaulting to normal
func (g *HexGridState) TerrainAt(c Coord) Terrain {
	if t, ok := g.Terrain[c.Key()]; ok {
		return t
	}
	return TerrainNormal
}

// EntityAt returns the entity occupying a hex, if any
func (g *HexGridState) EntityAt(c Coord) (string, bool) {
	id, ok := g.Positions[c.Key()]
	return id, ok
}

// CoordOf returns the coordinate of an entity, if placed
func (g *HexGridState) CoordOf(entityID string) (Coord, bool) {
	for key, id := range g.Positions {
		if id != entityID {
			continue
		}
		c, err := ParseCoordKey(key)
		if err != nil {
			return Coord{}, false
		}
		return c, true
	}
	return Coord{}, false
}

// Place puts an entity on a hex. The hex must be empty; an entity already on
// the grid is moved, preserving the one-entity-per-hex invariant.
func (g *HexGridState) Place(entityID string, c Coord) error {
	if !g.InBounds(c) {
		return fmt.Errorf("coordinate %s is off the grid", c.Key())
	}
	if occupant, ok := g.Positions[c.Key()]; ok && occupant != entityID {
		return fmt.Errorf("hex %s is occupied by %s", c.Key(), occupant)
	}
	if prev, ok := g.CoordOf(entityID); ok {
		delete(g.Positions, prev.Key())
	}
	g.Positions[c.Key()] = entityID
	return nil
}

// Remove takes an entity off the grid
func (g *HexGridState) Remove(entityID string) {
	if c, ok := g.CoordOf(entityID); ok {
		delete(g.Positions, c.Key())
	}
}
