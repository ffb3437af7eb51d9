package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
)

// EndTurn yields the active entity's turn
func (o *Orchestrator) EndTurn(ctx context.Context, input *EndTurnInput) (*EndTurnOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.endTurn(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*EndTurnOutput), nil
}

func (r *runner) endTurn(ctx context.Context, input *EndTurnInput) (*EndTurnOutput, error) {
	if err := r.requirePhase(combatent.PhaseActiveTurn); err != nil {
		return nil, err
	}
	s := r.state
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	if s.ActiveEntityID != e.ID {
		return nil, errors.WrongTurn("it is not this entity's turn")
	}
	if s.PendingAction != nil {
		return nil, errors.FailedPrecondition("an action is still unresolved")
	}

	s.AppendLog(combatent.LogTurnEnded, e.ID,
		fmt.Sprintf("%s ends their turn", e.Name), nil, r.orch.clock.Now())
	r.queue(events.TypeTurnEnded, map[string]any{"entityId": e.ID})

	r.advanceTurn()
	completed := r.checkFactionDefeat()

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &EndTurnOutput{
		NextEntityID: s.ActiveEntityID,
		Round:        s.Round,
		Completed:    completed || s.Completed(),
	}, nil
}

// SubmitSurvival submits the forced endure or death roll blocking the
// combat. Endure success claws the entity back to one energy; endure
// failure drops them unconscious. Death failure kills.
func (o *Orchestrator) SubmitSurvival(ctx context.Context, input *SubmitSurvivalInput) (*SubmitSurvivalOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.submitSurvival(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*SubmitSurvivalOutput), nil
}

func (r *runner) submitSurvival(ctx context.Context, input *SubmitSurvivalInput) (*SubmitSurvivalOutput, error) {
	if err := r.requirePhase(combatent.PhaseEndureRoll, combatent.PhaseDeathCheck); err != nil {
		return nil, err
	}
	s := r.state
	pending := s.PendingSurvival
	if pending == nil || pending.EntityID != input.EntityID {
		return nil, errors.FailedPrecondition("no survival roll is pending for this entity")
	}
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	if input.Roll < 1 || input.Roll > r.orch.tables.ContestDieSize {
		return nil, errors.InvalidArgumentf("roll must be 1-%d", r.orch.tables.ContestDieSize)
	}

	out := &SubmitSurvivalOutput{Kind: pending.Kind}
	switch pending.Kind {
	case combatent.SurvivalEndure:
		out.Success = input.Roll >= r.orch.tables.EndureTarget
		if out.Success {
			// Clinging on: back to a sliver of energy
			e.Energy = 1
		} else {
			e.Unconscious = true
		}
		s.AppendLog(combatent.LogEndureRolled, e.ID,
			fmt.Sprintf("%s rolled %d to endure", e.Name, input.Roll),
			map[string]any{"roll": input.Roll, "success": out.Success}, r.orch.clock.Now())
	case combatent.SurvivalDeath:
		out.Success = input.Roll >= r.orch.tables.DeathTarget
		if !out.Success {
			e.Alive = false
			e.Unconscious = true
			out.Defeated = true
			s.AppendLog(combatent.LogEntityDefeated, e.ID,
				fmt.Sprintf("%s has fallen", e.Name), nil, r.orch.clock.Now())
		}
		s.AppendLog(combatent.LogDeathRolled, e.ID,
			fmt.Sprintf("%s rolled %d against death", e.Name, input.Roll),
			map[string]any{"roll": input.Roll, "success": out.Success}, r.orch.clock.Now())
	}

	s.PendingSurvival = nil
	s.Phase = pending.ReturnPhase
	r.queue(events.TypeSurvivalResolved, map[string]any{
		"entityId": e.ID,
		"kind":     pending.Kind,
		"success":  out.Success,
	})
	r.queueEntity(e.ID)

	// The fallen entity may have been the active one
	if s.Phase == combatent.PhaseActiveTurn {
		if active, ok := s.ActiveEntity(); !ok || !active.CanAct() {
			r.advanceTurn()
		}
	}
	r.checkFactionDefeat()

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
