package testutils

import (
	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// Default fixture stats
const (
	TestMaxAP     = 3
	TestMaxEnergy = 50
)

// CreateTestEntity creates a combat-ready entity with sensible defaults
func CreateTestEntity(id string, faction combatent.Faction) *combatent.Entity {
	return &combatent.Entity{
		ID:                id,
		Name:              "Test " + id,
		Tier:              combatent.TierFull,
		Faction:           faction,
		Controller:        "player:" + id,
		AP:                TestMaxAP,
		MaxAP:             TestMaxAP,
		Energy:            TestMaxEnergy,
		MaxEnergy:         TestMaxEnergy,
		Alive:             true,
		ReactionAvailable: true,
		Skills:            map[string]int{},
	}
}

// CreateGMEntity creates an entity run by the GM
func CreateGMEntity(id string, faction combatent.Faction) *combatent.Entity {
	e := CreateTestEntity(id, faction)
	e.Controller = combatent.ControllerGM
	return e
}
