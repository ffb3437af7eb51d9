package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/rules/actions"
)

// DeclareAction declares the active entity's action. Costs are spent at
// declaration and are never refunded, even if the action is later cancelled
// by a reaction. Interruptible actions with at least one eligible reactor
// open a reaction window; everything else resolves in the same request.
func (o *Orchestrator) DeclareAction(ctx context.Context, input *DeclareActionInput) (*DeclareActionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.declareAction(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*DeclareActionOutput), nil
}

func (r *runner) declareAction(ctx context.Context, input *DeclareActionInput) (*DeclareActionOutput, error) {
	s := r.state
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	gm := input.Meta.RequesterID == combatent.ControllerGM

	var action *combatent.PendingAction
	if len(input.Path) > 0 {
		action, _, err = actions.BuildMovement(s, r.orch.tables, input.EntityID, input.MovementAP, input.Path, gm)
	} else {
		action, err = actions.Build(s, r.orch.tables, &actions.DeclareInput{
			EntityID:   input.EntityID,
			AbilityID:  input.AbilityID,
			TargetID:   input.TargetID,
			GMOverride: gm,
		})
	}
	if err != nil {
		return nil, err
	}

	action.ID = r.orch.idGen.Generate()
	action.DeclaredAt = r.orch.clock.Now()
	e.SpendAP(action.Cost.AP)
	e.SpendEnergy(action.Cost.Energy)
	s.PendingAction = action

	s.AppendLog(combatent.LogActionDeclared, e.ID,
		fmt.Sprintf("%s declared %s", e.Name, declaredName(action)),
		map[string]any{"actionId": action.ID, "category": string(action.Category)},
		r.orch.clock.Now())
	r.queue(events.TypeActionDeclared, map[string]any{
		"action": action,
	})
	r.queueEntity(e.ID)

	out := &DeclareActionOutput{Action: action}
	if action.Interruptible {
		if eligible := actions.EligibleReactors(s, action); len(eligible) > 0 {
			s.Phase = combatent.PhaseReactionWindow
			s.ReactionWindowReactors = eligible
			out.WindowOpened = true
			if err := r.commit(ctx); err != nil {
				return nil, err
			}
			return out, nil
		}
	}

	summary, err := r.resolveNow()
	if err != nil {
		return nil, err
	}
	out.Resolution = summary
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func declaredName(a *combatent.PendingAction) string {
	if a.Category == combatent.ActionMovement {
		return "movement"
	}
	return a.AbilityID
}

// DeclareReaction declares a reaction while the window is open. The window
// closes on its own once every eligible reactor has declared.
func (o *Orchestrator) DeclareReaction(ctx context.Context, input *DeclareReactionInput) (*DeclareReactionOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.declareReaction(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*DeclareReactionOutput), nil
}

func (r *runner) declareReaction(ctx context.Context, input *DeclareReactionInput) (*DeclareReactionOutput, error) {
	s := r.state
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}

	reaction, err := actions.BuildReaction(s, r.orch.tables, input.EntityID, input.ReactionID)
	if err != nil {
		return nil, err
	}
	reaction.ID = r.orch.idGen.Generate()
	reaction.DeclaredAt = r.orch.clock.Now()

	e.SpendAP(reaction.Cost.AP)
	e.SpendEnergy(reaction.Cost.Energy)
	e.ReactionAvailable = false
	s.PendingReactions = append(s.PendingReactions, *reaction)

	s.AppendLog(combatent.LogReactionDeclared, e.ID,
		fmt.Sprintf("%s declared %s", e.Name, reaction.ReactionID),
		map[string]any{"reactionId": reaction.ID}, r.orch.clock.Now())
	r.queue(events.TypeReactionDeclared, map[string]any{"reaction": reaction})
	r.queueEntity(e.ID)

	out := &DeclareReactionOutput{Reaction: reaction}
	if r.allReactorsDeclared() {
		summary, err := r.resolveNow()
		if err != nil {
			return nil, err
		}
		out.Resolution = summary
	}
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// allReactorsDeclared reports whether every reactor eligible at window-open
// has declared
func (r *runner) allReactorsDeclared() bool {
	declared := make(map[string]bool, len(r.state.PendingReactions))
	for _, reaction := range r.state.PendingReactions {
		declared[reaction.EntityID] = true
	}
	for _, id := range r.state.ReactionWindowReactors {
		if !declared[id] {
			return false
		}
	}
	return true
}

// ResolveReactions force-closes the reaction window. GM only; the normal
// close is automatic when the last eligible reactor declares.
func (o *Orchestrator) ResolveReactions(ctx context.Context, input *ResolveReactionsInput) (*ResolveReactionsOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.resolveReactions(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ResolveReactionsOutput), nil
}

func (r *runner) resolveReactions(ctx context.Context, input *ResolveReactionsInput) (*ResolveReactionsOutput, error) {
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can force the reaction window closed")
	}
	if err := r.requirePhase(combatent.PhaseReactionWindow); err != nil {
		return nil, err
	}

	summary, err := r.resolveNow()
	if err != nil {
		return nil, err
	}
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &ResolveReactionsOutput{Resolution: summary}, nil
}

// resolveNow closes any open window and resolves the pending action:
// reactions in initiative order, then the surviving action's effect, then
// survival triggers and faction defeat. Leaves the combat in active_turn
// unless a survival roll or completion intervened.
func (r *runner) resolveNow() (*ResolutionSummary, error) {
	s := r.state
	s.Phase = combatent.PhaseResolution
	s.ReactionWindowReactors = nil

	result, err := actions.ResolveAll(s, r.orch.tables)
	if err != nil {
		// Resolution failures (a path invalidated by reactions) cancel
		// the action rather than wedging the combat
		if s.PendingAction != nil {
			s.PendingAction.Status = combatent.ActionCancelled
			s.AppendLog(combatent.LogActionCancelled, s.PendingAction.EntityID,
				"action failed to resolve and was cancelled",
				map[string]any{"error": err.Error()}, r.orch.clock.Now())
			s.PendingAction = nil
			s.PendingReactions = nil
		}
		s.Phase = combatent.PhaseActiveTurn
		return &ResolutionSummary{Cancelled: true, ActionStatus: combatent.ActionCancelled}, nil
	}

	summary := r.recordResolution(result)

	var damages []*ruleDamage
	for i := range result.Reactions {
		if d := result.Reactions[i].Damage; d != nil {
			damages = append(damages, &ruleDamage{
				TargetID:       d.TargetID,
				EnergyDepleted: d.EnergyDepleted,
				FurtherHarm:    d.FurtherHarm,
			})
		}
	}
	if d := result.ActionDamage; d != nil {
		damages = append(damages, &ruleDamage{
			TargetID:       d.TargetID,
			EnergyDepleted: d.EnergyDepleted,
			FurtherHarm:    d.FurtherHarm,
		})
	}
	for _, d := range result.HazardResults {
		if d != nil {
			damages = append(damages, &ruleDamage{
				TargetID:       d.TargetID,
				EnergyDepleted: d.EnergyDepleted,
				FurtherHarm:    d.FurtherHarm,
			})
		}
	}

	// Back to the active turn unless a survival roll or faction defeat
	// redirects the phase
	s.Phase = combatent.PhaseActiveTurn
	r.finishResolution(damages)
	return summary, nil
}

// recordResolution logs and broadcasts the resolution batch and builds the
// caller-facing summary
func (r *runner) recordResolution(result *actions.ResolutionResult) *ResolutionSummary {
	s := r.state
	now := r.orch.clock.Now()
	action := result.Action

	summary := &ResolutionSummary{
		Cancelled:    result.Cancelled,
		ActionStatus: action.Status,
		TargetID:     action.TargetID,
	}

	for i := range result.Reactions {
		rr := &result.Reactions[i]
		s.AppendLog(combatent.LogReactionResolved, rr.Reaction.EntityID,
			fmt.Sprintf("%s resolved", rr.Reaction.ReactionID),
			map[string]any{"skipped": rr.Skipped}, now)
		if rr.Damage != nil {
			r.recordDamage(rr.Damage)
		}
	}

	if result.Cancelled {
		s.AppendLog(combatent.LogActionCancelled, action.EntityID,
			fmt.Sprintf("%s was cancelled by reaction", declaredName(&action)),
			map[string]any{"actionId": action.ID}, now)
	} else {
		s.AppendLog(combatent.LogActionResolved, action.EntityID,
			fmt.Sprintf("%s resolved", declaredName(&action)),
			map[string]any{"actionId": action.ID}, now)
		if result.Moved != nil {
			summary.Moved = result.Moved
			s.AppendLog(combatent.LogMoved, action.EntityID,
				fmt.Sprintf("moved to %s", result.Moved.Key()), nil, now)
			for _, hz := range result.HazardResults {
				if hz == nil {
					continue
				}
				s.AppendLog(combatent.LogHazardSuffered, hz.TargetID,
					"crossed hazardous terrain",
					map[string]any{"energyLost": hz.EnergyLost}, now)
				r.recordDamage(hz)
			}
			r.queueEntity(action.EntityID)
		}
		if result.ActionDamage != nil {
			summary.EnergyLost = result.ActionDamage.EnergyLost
			summary.WoundsApplied = result.ActionDamage.WoundsAdded
			r.recordDamage(result.ActionDamage)
		}
		if result.StatusApplied != "" {
			summary.StatusApplied = result.StatusApplied
			s.AppendLog(combatent.LogStatusApplied, action.TargetID,
				fmt.Sprintf("%s gained %s", action.TargetID, result.StatusApplied),
				map[string]any{"status": result.StatusApplied}, now)
			r.queue(events.TypeStatusApplied, map[string]any{
				"entityId": action.TargetID,
				"status":   result.StatusApplied,
			})
		}
	}

	r.queue(events.TypeActionResolved, map[string]any{
		"actionId":  action.ID,
		"status":    action.Status,
		"cancelled": result.Cancelled,
	})
	return summary
}

// recordDamage logs one damage result and broadcasts the wound delta
func (r *runner) recordDamage(d *actions.DamageResult) {
	if d.EnergyLost == 0 && d.WoundsAdded == 0 && d.Blowback == nil {
		return
	}
	r.state.AppendLog(combatent.LogWoundsApplied, d.TargetID,
		fmt.Sprintf("%s took %d energy damage", d.TargetID, d.EnergyLost),
		map[string]any{
			"energyLost": d.EnergyLost,
			"woundType":  string(d.WoundType),
			"wounds":     d.WoundsAdded,
		}, r.orch.clock.Now())
	r.queue(events.TypeWoundsApplied, &events.WoundsApplied{
		EntityID:   d.TargetID,
		WoundType:  d.WoundType,
		Wounds:     d.WoundsAdded,
		EnergyLost: d.EnergyLost,
	})
	if d.Blowback != nil {
		r.state.AppendLog(combatent.LogChannelingBroken, d.TargetID,
			fmt.Sprintf("%s's channel was broken", d.TargetID),
			map[string]any{
				"energyDamage":    d.Blowback.EnergyDamage,
				"spiritualWounds": d.Blowback.SpiritualWounds,
			}, r.orch.clock.Now())
		r.queue(events.TypeChannelingEnded, map[string]any{
			"entityId":    d.TargetID,
			"interrupted": true,
		})
	}
}

// GMOverride force-resolves a stalled window. Every override is logged with
// the GM id and reason.
func (o *Orchestrator) GMOverride(ctx context.Context, input *GMOverrideInput) (*GMOverrideOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.gmOverride(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*GMOverrideOutput), nil
}

func (r *runner) gmOverride(ctx context.Context, input *GMOverrideInput) (*GMOverrideOutput, error) {
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can override")
	}
	s := r.state

	switch input.Kind {
	case OverrideCancelAction:
		if s.PendingAction == nil {
			return nil, errors.FailedPrecondition("no action is pending")
		}
		actor := s.PendingAction.EntityID
		s.PendingAction = nil
		s.PendingReactions = nil
		s.ReactionWindowReactors = nil
		if s.Phase == combatent.PhaseReactionWindow || s.Phase == combatent.PhaseResolution {
			s.Phase = combatent.PhaseActiveTurn
		}
		s.AppendLog(combatent.LogActionCancelled, actor,
			"GM cancelled the pending action", nil, r.orch.clock.Now())

	case OverrideForceEndTurn:
		if err := r.requirePhase(combatent.PhaseActiveTurn, combatent.PhaseReactionWindow); err != nil {
			return nil, err
		}
		s.PendingAction = nil
		s.PendingReactions = nil
		s.ReactionWindowReactors = nil
		s.Phase = combatent.PhaseActiveTurn
		r.advanceTurn()

	case OverrideClearSurvival:
		if s.PendingSurvival == nil {
			return nil, errors.FailedPrecondition("no survival roll is pending")
		}
		s.Phase = s.PendingSurvival.ReturnPhase
		s.PendingSurvival = nil

	case OverrideCancelChanneling:
		progress, ok := s.PendingChanneling[input.EntityID]
		if !ok {
			return nil, errors.FailedPrecondition("entity is not channeling")
		}
		delete(s.PendingChanneling, progress.EntityID)
		if e, exists := s.Entity(progress.EntityID); exists {
			e.Channeling = false
		}
		// GM cancellation is administrative: no blowback
		r.queue(events.TypeChannelingEnded, map[string]any{
			"entityId":    progress.EntityID,
			"interrupted": false,
		})

	default:
		return nil, errors.InvalidArgumentf("unknown override kind %s", input.Kind)
	}

	s.AppendLog(combatent.LogGMOverride, input.EntityID,
		fmt.Sprintf("GM override %s: %s", input.Kind, input.Reason),
		map[string]any{"kind": string(input.Kind), "reason": input.Reason}, r.orch.clock.Now())
	r.queue(events.TypeGMOverride, map[string]any{
		"kind":   input.Kind,
		"reason": input.Reason,
	})

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	snap, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return &GMOverrideOutput{State: snap}, nil
}
