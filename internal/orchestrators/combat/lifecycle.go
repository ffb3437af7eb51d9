package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/rules/initiative"
)

// StartCombat moves the lobby into initiative rolling. GM only; every
// combatant must have readied up first.
func (o *Orchestrator) StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.startCombat(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*StartCombatOutput), nil
}

func (r *runner) startCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error) {
	if err := r.requirePhase(combatent.PhaseLobby); err != nil {
		return nil, err
	}
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can start combat")
	}
	if len(r.state.Entities) < 1 {
		return nil, errors.FailedPrecondition("combat needs at least one combatant")
	}
	for id, e := range r.state.Entities {
		if !e.Ready {
			return nil, errors.FailedPrecondition(fmt.Sprintf("entity %s is not ready", id))
		}
	}

	r.state.Phase = combatent.PhaseInitiativeRolling
	r.state.AppendLog(combatent.LogCombatStarted, "", "combat started", nil, r.orch.clock.Now())
	r.queue(events.TypeCombatStarted, map[string]any{"mode": r.state.InitiativeMode})

	if input.AutoRoll {
		if err := r.autoRollInitiative(); err != nil {
			return nil, err
		}
		r.finishInitiativeIfReady()
	}

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	snap, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return &StartCombatOutput{State: snap}, nil
}

// autoRollInitiative rolls server-side for every combatant still owing one
func (r *runner) autoRollInitiative() error {
	for _, id := range initiative.Required(r.state) {
		e, ok := r.state.Entity(id)
		if !ok {
			continue
		}
		roll, err := r.orch.roller.Roll(1, r.orch.tables.InitiativeDie)
		if err != nil {
			return errors.Wrap(err, "initiative roll failed")
		}
		r.recordInitiative(e, roll)
	}
	return nil
}

// EndCombat force-completes the combat. GM only.
func (o *Orchestrator) EndCombat(ctx context.Context, input *EndCombatInput) (*EndCombatOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.endCombat(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*EndCombatOutput), nil
}

func (r *runner) endCombat(ctx context.Context, input *EndCombatInput) (*EndCombatOutput, error) {
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can end combat")
	}
	if r.state.Completed() {
		return nil, errors.FailedPrecondition("combat is already complete")
	}

	reason := input.Reason
	if reason == "" {
		reason = combatent.EndGMEnded
	}
	r.complete(reason)
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	snap, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return &EndCombatOutput{State: snap}, nil
}

// RemoveEntity pulls a combatant out mid-fight. GM only; the initiative
// order closes around the gap.
func (o *Orchestrator) RemoveEntity(ctx context.Context, input *RemoveEntityInput) (*RemoveEntityOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.removeEntity(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*RemoveEntityOutput), nil
}

func (r *runner) removeEntity(ctx context.Context, input *RemoveEntityInput) (*RemoveEntityOutput, error) {
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can remove entities")
	}
	s := r.state
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}

	wasActive := s.ActiveEntityID == e.ID

	// Drop anything the entity is mid-way through
	if s.PendingAction != nil && s.PendingAction.EntityID == e.ID {
		s.PendingAction = nil
		s.PendingReactions = nil
		s.ReactionWindowReactors = nil
		if s.Phase == combatent.PhaseReactionWindow || s.Phase == combatent.PhaseResolution {
			s.Phase = combatent.PhaseActiveTurn
		}
	}
	var keptReactions []combatent.PendingReaction
	for _, reaction := range s.PendingReactions {
		if reaction.EntityID != e.ID {
			keptReactions = append(keptReactions, reaction)
		}
	}
	s.PendingReactions = keptReactions
	delete(s.PendingChanneling, e.ID)
	if s.PendingSurvival != nil && s.PendingSurvival.EntityID == e.ID {
		s.Phase = s.PendingSurvival.ReturnPhase
		s.PendingSurvival = nil
	}

	// Close the initiative order around the gap, keeping the active slot
	// pointed at the same entity
	removedRank := s.InitiativeRank(e.ID)
	var order []string
	for _, id := range s.InitiativeOrder {
		if id != e.ID {
			order = append(order, id)
		}
	}
	s.InitiativeOrder = order
	var entries []combatent.InitiativeEntry
	for _, entry := range s.InitiativeEntries {
		if entry.EntityID != e.ID {
			entries = append(entries, entry)
		}
	}
	s.InitiativeEntries = entries
	if removedRank < s.TurnIndex {
		s.TurnIndex--
	}

	s.Grid.Remove(e.ID)
	delete(s.Entities, e.ID)
	delete(s.TickedThisRound, e.ID)

	s.AppendLog(combatent.LogEntityRemoved, e.ID,
		fmt.Sprintf("%s was removed: %s", e.Name, input.Reason),
		map[string]any{"reason": input.Reason}, r.orch.clock.Now())
	r.queue(events.TypeEntityRemoved, map[string]any{"entityId": e.ID, "reason": input.Reason})

	if wasActive && s.Phase == combatent.PhaseActiveTurn {
		s.TurnIndex--
		r.advanceTurn()
	}
	r.checkFactionDefeat()

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	snap, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return &RemoveEntityOutput{State: snap}, nil
}

// GetState returns a detached snapshot of the combat
func (o *Orchestrator) GetState(ctx context.Context, input *GetStateInput) (*GetStateOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		snap, err := r.snapshot()
		if err != nil {
			return nil, err
		}
		return &GetStateOutput{State: snap, Version: snap.Version}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*GetStateOutput), nil
}
