// Package wounds applies damage-derived wounds and statuses and computes
// their penalties. Penalties are purely derived: they are computed on read
// from the wound counts and never stored on the entity.
package wounds

import (
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// SkillPenaltyPerWound is the flat penalty each wound in a domain applies
const SkillPenaltyPerWound = 3

// physicalWounds are the wound types that degrade physical skills
var physicalWounds = []combat.WoundType{
	combat.WoundBlunt, combat.WoundBurn, combat.WoundFreeze,
	combat.WoundLaceration, combat.WoundNecrosis,
}

// Penalties is the derived penalty set for one entity
type Penalties struct {
	// MoveEnergyMultiplier scales the energy cost of movement: 1 + blunt
	MoveEnergyMultiplier int
	// AP is subtracted from the per-turn AP allotment: 1 per freeze wound
	AP int
	// EnergyPerRound is subtracted from per-round regeneration: 3 per laceration
	EnergyPerRound int
	// MaxEnergy is subtracted from the energy cap: 3 per necrosis
	MaxEnergy int
}

// Derive computes the penalty set from an entity's current wounds
func Derive(e *combat.Entity) Penalties {
	return Penalties{
		MoveEnergyMultiplier: 1 + e.WoundCount(combat.WoundBlunt),
		AP:                   e.WoundCount(combat.WoundFreeze),
		EnergyPerRound:       3 * e.WoundCount(combat.WoundLaceration),
		MaxEnergy:            3 * e.WoundCount(combat.WoundNecrosis),
	}
}

// SkillPenalty returns the penalty for skills of the given domain. Mental
// and spiritual domains track their own wound type; every physically
// manifested wound degrades physical skills.
func SkillPenalty(e *combat.Entity, domain combat.SkillDomain) int {
	count := 0
	switch domain {
	case combat.DomainMental:
		count = e.WoundCount(combat.WoundMental)
	case combat.DomainSpiritual:
		count = e.WoundCount(combat.WoundSpiritual)
	default:
		for _, t := range physicalWounds {
			count += e.WoundCount(t)
		}
	}
	return -SkillPenaltyPerWound * count
}

// EffectiveMaxEnergy returns the energy cap after the necrosis penalty
func EffectiveMaxEnergy(e *combat.Entity) int {
	limit := e.MaxEnergy - Derive(e).MaxEnergy
	if limit < 0 {
		limit = 0
	}
	return limit
}

// TurnAP returns the per-turn AP allotment after the freeze penalty
func TurnAP(e *combat.Entity) int {
	ap := e.MaxAP - Derive(e).AP
	if ap < 0 {
		ap = 0
	}
	return ap
}

// TurnRegen returns per-round energy regeneration after the laceration
// penalty. Can go negative: heavily lacerated entities bleed out.
func TurnRegen(e *combat.Entity, baseRegen int) int {
	return baseRegen - Derive(e).EnergyPerRound
}

// Apply adds wounds of one type to an entity
func Apply(e *combat.Entity, t combat.WoundType, count int) {
	if count <= 0 {
		return
	}
	if e.Wounds == nil {
		e.Wounds = make(map[combat.WoundType]int)
	}
	e.Wounds[t] += count
}

// ApplyStatus merges a status onto an entity. Stacks are additive; the same
// key never produces two entries. Remaining duration takes the max of the
// old and new values, and indefinite is sticky: once a status has no
// expiry, re-applying a timed copy does not give it one.
func ApplyStatus(e *combat.Entity, spec combat.StatusSpec) *combat.Status {
	if e.Statuses == nil {
		e.Statuses = make(map[string]*combat.Status)
	}
	stacks := spec.Stacks
	if stacks <= 0 {
		stacks = 1
	}
	existing, ok := e.Statuses[spec.Key]
	if !ok {
		st := &combat.Status{
			Key:        spec.Key,
			Stacks:     stacks,
			Remaining:  spec.Duration,
			Indefinite: spec.Indefinite,
		}
		e.Statuses[spec.Key] = st
		return st
	}
	existing.Stacks += stacks
	if spec.Indefinite {
		existing.Indefinite = true
		existing.Remaining = 0
	} else if !existing.Indefinite && spec.Duration > existing.Remaining {
		existing.Remaining = spec.Duration
	}
	return existing
}

// TickResult reports what one status did during a tick
type TickResult struct {
	Key     string
	Wound   combat.WoundType
	Wounds  int
	Expired bool
}

// Tick advances every status on the entity by one round: statuses with a
// wound-tick rule accrue their wound (once per stack), timed statuses count
// down, and expired statuses are removed. Called exactly once per entity per
// round, at the start of that entity's turn.
func Tick(e *combat.Entity, tickRules map[string]combat.WoundType) []TickResult {
	if len(e.Statuses) == 0 {
		return nil
	}
	var results []TickResult
	for key, st := range e.Statuses {
		res := TickResult{Key: key}
		if woundType, ok := tickRules[key]; ok {
			Apply(e, woundType, st.Stacks)
			res.Wound = woundType
			res.Wounds = st.Stacks
		}
		if !st.Indefinite {
			st.Remaining--
			if st.Remaining <= 0 {
				delete(e.Statuses, key)
				res.Expired = true
			}
		}
		if res.Wounds > 0 || res.Expired {
			results = append(results, res)
		}
	}
	return results
}
