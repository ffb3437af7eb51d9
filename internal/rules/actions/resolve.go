package actions

import (
	"sort"

	"github.com/KirkDiggler/combat-api/internal/content"
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/rules/channeling"
	"github.com/KirkDiggler/combat-api/internal/rules/grid"
	"github.com/KirkDiggler/combat-api/internal/rules/wounds"
)

// DamageResult reports the consequences of applying damage to one entity
type DamageResult struct {
	TargetID     string
	EnergyLost   int
	WoundType    combat.WoundType
	WoundsAdded  int
	// EnergyDepleted is set when the hit took the target from positive
	// energy to zero: the target owes an endure roll
	EnergyDepleted bool
	// FurtherHarm is set when the target was already unconscious: the
	// target owes a death check
	FurtherHarm bool
	// Blowback is set when the hit broke an active channel
	Blowback *channeling.Blowback
}

// ApplyDamage applies a damage spec to a target: energy loss first, then
// wounds. Damage to a channeling entity breaks the channel and layers the
// blowback on top. Survival phase transitions from the returned flags are
// the caller's responsibility.
func ApplyDamage(s *combat.State, targetID string, dmg *combat.DamageSpec) *DamageResult {
	target, ok := s.Entity(targetID)
	if !ok || dmg == nil {
		return nil
	}
	res := &DamageResult{TargetID: targetID}
	res.FurtherHarm = target.Unconscious

	hadEnergy := target.Energy > 0
	if dmg.Energy > 0 {
		before := target.Energy
		target.SpendEnergy(dmg.Energy)
		res.EnergyLost = before - target.Energy
	}
	if dmg.WoundCount > 0 {
		wounds.Apply(target, dmg.WoundType, dmg.WoundCount)
		res.WoundType = dmg.WoundType
		res.WoundsAdded = dmg.WoundCount
	}

	if target.Channeling {
		if progress, chOK := s.PendingChanneling[targetID]; chOK {
			blowback := channeling.Interrupt(progress)
			delete(s.PendingChanneling, targetID)
			target.Channeling = false
			if blowback.EnergyDamage > 0 {
				target.SpendEnergy(blowback.EnergyDamage)
			}
			if blowback.SpiritualWounds > 0 {
				wounds.Apply(target, combat.WoundSpiritual, blowback.SpiritualWounds)
			}
			res.Blowback = &blowback
		}
	}

	if hadEnergy && target.Energy == 0 && !res.FurtherHarm {
		res.EnergyDepleted = true
	}
	return res
}

// ReactionResult records what one reaction did when the window closed
type ReactionResult struct {
	Reaction combat.PendingReaction
	// Skipped reactions arrived after an earlier reaction cancelled the
	// action; their costs were already spent at declaration
	Skipped bool
	Damage  *DamageResult
}

// ResolutionResult is the combined outcome of closing a reaction window and
// resolving the pending action
type ResolutionResult struct {
	Action    combat.PendingAction
	Cancelled bool
	Reactions []ReactionResult
	// ActionDamage is the damage the (possibly modified) action dealt
	ActionDamage *DamageResult
	// StatusApplied is the status key the action applied, if any
	StatusApplied string
	// Moved holds the destination for resolved movement
	Moved *combat.Coord
	// HazardResults records hazardous terrain entered during movement
	HazardResults []*DamageResult
}

// ResolveAll processes the pending reactions in initiative order and then
// resolves the pending action. Earlier-acting entities' reactions apply
// first: a cancel stops the action before later reactions see it, but the
// declared costs of every reaction stay spent. Clears pendingAction and
// pendingReactions; the caller transitions phase and logs the batch.
func ResolveAll(s *combat.State, tables *content.Content) (*ResolutionResult, error) {
	action := s.PendingAction
	if action == nil {
		return nil, errors.FailedPrecondition("no action is pending")
	}
	action.Status = combat.ActionResolving

	reactions := make([]combat.PendingReaction, len(s.PendingReactions))
	copy(reactions, s.PendingReactions)
	sort.SliceStable(reactions, func(i, j int) bool {
		return s.EntityRank(reactions[i].EntityID) < s.EntityRank(reactions[j].EntityID)
	})

	result := &ResolutionResult{}
	for _, reaction := range reactions {
		rr := ReactionResult{Reaction: reaction}
		if result.Cancelled {
			rr.Skipped = true
			result.Reactions = append(result.Reactions, rr)
			continue
		}
		switch reaction.Effect {
		case combat.EffectCancelAction:
			result.Cancelled = true
		case combat.EffectModifyAction, combat.EffectReduceDamage:
			if action.Damage != nil && reaction.Reduce > 0 {
				action.Damage.Energy -= reaction.Reduce
				if action.Damage.Energy < 0 {
					action.Damage.Energy = 0
				}
			}
		case combat.EffectApplyWounds:
			rr.Damage = ApplyDamage(s, action.EntityID, reaction.Wounds)
		case combat.EffectApplyStatus:
			if reaction.Status != nil {
				if actor, ok := s.Entity(action.EntityID); ok {
					wounds.ApplyStatus(actor, *reaction.Status)
				}
			}
		}
		result.Reactions = append(result.Reactions, rr)
	}

	if result.Cancelled {
		action.Status = combat.ActionCancelled
	} else {
		if err := resolveAction(s, tables, action, result); err != nil {
			return nil, err
		}
		action.Status = combat.ActionResolved
	}

	result.Action = *action
	s.PendingAction = nil
	s.PendingReactions = nil
	return result, nil
}

// resolveAction applies the action's effect. Costs were deducted at
// declaration; this is the effect half.
func resolveAction(s *combat.State, tables *content.Content, action *combat.PendingAction, result *ResolutionResult) error {
	switch action.Category {
	case combat.ActionMovement:
		budget := action.Cost.AP * tables.MovementRules.HexesPerAP
		// revalidate: reactions may have rearranged the board
		res, err := grid.ValidatePath(s.Grid, action.EntityID, action.Path, budget)
		if err != nil {
			return err
		}
		if err := s.Grid.Place(action.EntityID, res.Destination); err != nil {
			return errors.Wrap(err, "failed to move entity")
		}
		result.Moved = &res.Destination
		for range res.Hazards {
			hazard := &combat.DamageSpec{Energy: tables.HazardDamage}
			result.HazardResults = append(result.HazardResults, ApplyDamage(s, action.EntityID, hazard))
		}
	default:
		if action.TargetID != "" && action.Damage != nil {
			result.ActionDamage = ApplyDamage(s, action.TargetID, action.Damage)
		}
		if action.TargetID != "" && action.ApplyStatus != nil {
			if target, ok := s.Entity(action.TargetID); ok && target.Alive {
				wounds.ApplyStatus(target, *action.ApplyStatus)
				result.StatusApplied = action.ApplyStatus.Key
			}
		}
	}
	return nil
}
