// Package actions validates declared actions and reactions and resolves
// them against the combat state. All functions are called from the single
// serialized mutation path; validation helpers never mutate, resolution
// helpers return result records for the caller to log and broadcast.
package actions

import (
	"github.com/KirkDiggler/combat-api/internal/content"
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/rules/grid"
	"github.com/KirkDiggler/combat-api/internal/rules/wounds"
)

// DeclareInput carries a declaration before it becomes the pending action
type DeclareInput struct {
	EntityID  string
	AbilityID string
	TargetID  string
	Path      []combat.Coord
	// GMOverride bypasses the whose-turn check, never the economy checks
	GMOverride bool
}

// Build validates a declaration and constructs the pending action. Nothing
// is mutated: on any rejection the state is untouched.
func Build(s *combat.State, tables *content.Content, in *DeclareInput) (*combat.PendingAction, error) {
	if s.Phase != combat.PhaseActiveTurn {
		return nil, errors.WrongPhasef("cannot declare an action during %s", s.Phase)
	}
	if s.PendingAction != nil {
		return nil, errors.FailedPrecondition("another action is already pending")
	}
	actor, ok := s.Entity(in.EntityID)
	if !ok {
		return nil, errors.NotFoundf("entity %s not found", in.EntityID)
	}
	if !actor.CanAct() {
		return nil, errors.InvalidTargetf("entity %s cannot act", in.EntityID)
	}
	if s.ActiveEntityID != in.EntityID && !in.GMOverride {
		return nil, errors.WrongTurn("it is not this entity's turn")
	}

	ability, ok := tables.Ability(in.AbilityID)
	if !ok {
		return nil, errors.NotFoundf("unknown ability %s", in.AbilityID)
	}

	action := &combat.PendingAction{
		EntityID:      in.EntityID,
		Category:      ability.Category,
		AbilityID:     ability.ID,
		Interruptible: ability.Interruptible,
		Status:        combat.ActionPending,
		Cost:          combat.Cost{AP: ability.APCost, Energy: ability.EnergyCost},
	}

	if ability.Category == combat.ActionMovement {
		return nil, errors.InvalidArgument("movement is declared through the movement path, not an ability")
	}

	if ability.Damage != nil || ability.Range > 0 {
		target, ok := s.Entity(in.TargetID)
		if !ok {
			return nil, errors.InvalidTargetf("target %s not found", in.TargetID)
		}
		if !target.Alive {
			return nil, errors.InvalidTargetf("target %s is already defeated", in.TargetID)
		}
		from, onGrid := s.Grid.CoordOf(in.EntityID)
		to, targetOnGrid := s.Grid.CoordOf(in.TargetID)
		if onGrid && targetOnGrid && from.Distance(to) > ability.Range {
			return nil, errors.OutOfRange("target is beyond the ability's range")
		}
		action.TargetID = in.TargetID
	}

	if ability.Damage != nil {
		action.Damage = &combat.DamageSpec{
			Energy:     ability.Damage.Energy,
			WoundType:  ability.Damage.WoundType,
			WoundCount: ability.Damage.WoundCount,
		}
	}
	if ability.Status != nil {
		action.ApplyStatus = &combat.StatusSpec{
			Key:        ability.Status.Key,
			Stacks:     ability.Status.Stacks,
			Duration:   ability.Status.Duration,
			Indefinite: ability.Status.Indefinite,
		}
	}

	if err := affordable(actor, action.Cost); err != nil {
		return nil, err
	}
	return action, nil
}

// BuildMovement validates a movement declaration and constructs the pending
// action. AP buys movement budget (hexes per AP from content); the energy
// cost is the path cost times the blunt-wound movement multiplier.
func BuildMovement(s *combat.State, tables *content.Content, entityID string, ap int, path []combat.Coord, gmOverride bool) (*combat.PendingAction, *grid.PathResult, error) {
	if s.Phase != combat.PhaseActiveTurn {
		return nil, nil, errors.WrongPhasef("cannot move during %s", s.Phase)
	}
	if s.PendingAction != nil {
		return nil, nil, errors.FailedPrecondition("another action is already pending")
	}
	actor, ok := s.Entity(entityID)
	if !ok {
		return nil, nil, errors.NotFoundf("entity %s not found", entityID)
	}
	if !actor.CanAct() {
		return nil, nil, errors.InvalidTargetf("entity %s cannot act", entityID)
	}
	if s.ActiveEntityID != entityID && !gmOverride {
		return nil, nil, errors.WrongTurn("it is not this entity's turn")
	}
	if ap <= 0 {
		return nil, nil, errors.InvalidArgument("movement requires at least 1 AP")
	}

	budget := ap * tables.MovementRules.HexesPerAP
	res, err := grid.ValidatePath(s.Grid, entityID, path, budget)
	if err != nil {
		return nil, nil, err
	}

	energyCost := res.Cost * tables.MovementRules.EnergyPerHex * wounds.Derive(actor).MoveEnergyMultiplier
	cost := combat.Cost{AP: ap, Energy: energyCost}
	if err := affordable(actor, cost); err != nil {
		return nil, nil, err
	}

	action := &combat.PendingAction{
		EntityID: entityID,
		Category: combat.ActionMovement,
		Path:     path,
		Cost:     cost,
		Status:   combat.ActionPending,
		// movement cannot be interrupted mid-step
		Interruptible: false,
	}
	return action, res, nil
}

func affordable(e *combat.Entity, cost combat.Cost) error {
	if e.AP < cost.AP {
		return errors.InsufficientAPf("action costs %d AP but %d remain", cost.AP, e.AP)
	}
	if e.Energy < cost.Energy {
		return errors.InsufficientEnergyf("action costs %d energy but %d remain", cost.Energy, e.Energy)
	}
	return nil
}

// EligibleReactors lists entities able to react to the pending action: any
// other living, conscious combatant with its reaction still available.
func EligibleReactors(s *combat.State, action *combat.PendingAction) []string {
	var out []string
	for id, e := range s.Entities {
		if id == action.EntityID {
			continue
		}
		if e.CanAct() && e.ReactionAvailable {
			out = append(out, id)
		}
	}
	return out
}

// BuildReaction validates a reaction declaration against the pending action
func BuildReaction(s *combat.State, tables *content.Content, entityID, reactionID string) (*combat.PendingReaction, error) {
	action := s.PendingAction
	if s.Phase != combat.PhaseReactionWindow || action == nil {
		return nil, errors.WrongPhase("no reaction window is open")
	}
	if !action.Interruptible {
		return nil, errors.NotInterruptible("the pending action is not interruptible")
	}
	if entityID == action.EntityID {
		return nil, errors.InvalidTarget("an entity cannot react to its own action")
	}
	reactor, ok := s.Entity(entityID)
	if !ok {
		return nil, errors.NotFoundf("entity %s not found", entityID)
	}
	if !reactor.CanAct() {
		return nil, errors.InvalidTargetf("entity %s cannot react", entityID)
	}
	if !reactor.ReactionAvailable {
		return nil, errors.FailedPrecondition("entity has already reacted this window")
	}

	def, ok := tables.Reaction(reactionID)
	if !ok {
		return nil, errors.NotFoundf("unknown reaction %s", reactionID)
	}
	cost := combat.Cost{AP: def.APCost, Energy: def.EnergyCost}
	if err := affordable(reactor, cost); err != nil {
		return nil, err
	}

	reaction := &combat.PendingReaction{
		EntityID:       entityID,
		ReactionID:     def.ID,
		TargetActionID: action.ID,
		Cost:           cost,
		Effect:         def.Effect,
		Reduce:         def.Reduce,
	}
	if def.Wounds != nil {
		reaction.Wounds = &combat.DamageSpec{
			Energy:     def.Wounds.Energy,
			WoundType:  def.Wounds.WoundType,
			WoundCount: def.Wounds.WoundCount,
		}
	}
	if def.Status != nil {
		reaction.Status = &combat.StatusSpec{
			Key:        def.Status.Key,
			Stacks:     def.Status.Stacks,
			Duration:   def.Status.Duration,
			Indefinite: def.Status.Indefinite,
		}
	}
	return reaction, nil
}
