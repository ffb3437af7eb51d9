// Package channeling accumulates multi-turn spell resources, gates release
// on full progress, and computes interruption blowback. The more an entity
// has invested when interrupted, the harsher the blowback.
package channeling

import (
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
)

// investedPerWound is how much invested resource converts to one spiritual
// wound on blowback
const investedPerWound = 10

// Start creates a progress record with the spell's total cost fixed at
// creation time
func Start(entityID, spellID string, totalCost int) (*combat.ChannelingProgress, error) {
	if totalCost <= 0 {
		return nil, errors.InvalidArgumentf("spell %s has non-positive total cost %d", spellID, totalCost)
	}
	return &combat.ChannelingProgress{
		EntityID:  entityID,
		SpellID:   spellID,
		TotalCost: totalCost,
	}, nil
}

// Contribute adds this turn's AP and Energy contribution and recomputes
// progress as accumulated/total
func Contribute(p *combat.ChannelingProgress, ap, energy int) error {
	if ap < 0 || energy < 0 {
		return errors.InvalidArgument("channeling contribution cannot be negative")
	}
	if ap+energy == 0 {
		return errors.InvalidArgument("channeling contribution is zero")
	}
	p.AccumulatedAP += ap
	p.AccumulatedEnergy += energy
	p.Progress = float64(p.Invested()) / float64(p.TotalCost)
	return nil
}

// CanRelease reports whether the spell has reached its activation threshold
func CanRelease(p *combat.ChannelingProgress) bool {
	return p.Progress >= 1.0
}

// Blowback computes the backlash of a forced interruption: energy damage of
// half the invested total (rounded up) plus one spiritual wound per full
// ten points invested. Voluntary aborts take no blowback.
type Blowback struct {
	EnergyDamage    int
	SpiritualWounds int
}

// Interrupt computes the blowback for destroying the progress record
func Interrupt(p *combat.ChannelingProgress) Blowback {
	invested := p.Invested()
	return Blowback{
		EnergyDamage:    (invested + 1) / 2,
		SpiritualWounds: invested / investedPerWound,
	}
}
