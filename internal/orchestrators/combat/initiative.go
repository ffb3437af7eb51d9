package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/rules/initiative"
)

// initiativeSkill is the skill key added to initiative rolls
const initiativeSkill = "initiative"

// SubmitInitiative records one combatant's initiative roll. Once the last
// required roll lands the order locks and the first turn begins in the same
// request.
func (o *Orchestrator) SubmitInitiative(ctx context.Context, input *SubmitInitiativeInput) (*SubmitInitiativeOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.submitInitiative(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*SubmitInitiativeOutput), nil
}

func (r *runner) submitInitiative(ctx context.Context, input *SubmitInitiativeInput) (*SubmitInitiativeOutput, error) {
	if err := r.requirePhase(combatent.PhaseInitiativeRolling); err != nil {
		return nil, err
	}
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	if input.Roll < 1 || input.Roll > r.orch.tables.InitiativeDie {
		return nil, errors.InvalidArgumentf("initiative roll must be 1-%d", r.orch.tables.InitiativeDie)
	}
	for _, id := range r.rolledEntities() {
		if id == e.ID {
			return nil, errors.FailedPrecondition("initiative is already recorded for this entity")
		}
	}

	r.recordInitiative(e, input.Roll)
	ready := r.finishInitiativeIfReady()

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &SubmitInitiativeOutput{Ready: ready, Order: append([]string(nil), r.state.InitiativeOrder...)}, nil
}

// rolledEntities lists ids already covered by a recorded entry, including
// groupmates in group mode
func (r *runner) rolledEntities() []string {
	var out []string
	for _, entry := range r.state.InitiativeEntries {
		out = append(out, entry.EntityID)
		if r.state.InitiativeMode == combatent.InitiativeGroup && entry.GroupID != "" {
			for id, e := range r.state.Entities {
				if id != entry.EntityID && e.GroupID == entry.GroupID {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// recordInitiative appends the entry with its skill modifier and the
// tie-break energy snapshot
func (r *runner) recordInitiative(e *combatent.Entity, roll int) {
	skill := e.Skills[initiativeSkill]
	entry := combatent.InitiativeEntry{
		EntityID:       e.ID,
		Roll:           roll + skill,
		Skill:          skill,
		EnergySnapshot: e.Energy,
		GroupID:        e.GroupID,
	}
	r.state.InitiativeEntries = append(r.state.InitiativeEntries, entry)
	r.state.AppendLog(combatent.LogInitiativeRolled, e.ID,
		fmt.Sprintf("%s rolled %d for initiative", e.Name, entry.Roll),
		map[string]any{"roll": entry.Roll}, r.orch.clock.Now())
	r.queue(events.TypeInitiativeRolled, map[string]any{
		"entityId": e.ID,
		"roll":     entry.Roll,
	})
}

// finishInitiativeIfReady locks the order and opens round one once every
// required roll is in. Returns whether it fired.
func (r *runner) finishInitiativeIfReady() bool {
	s := r.state
	if len(initiative.Required(s)) > 0 {
		return false
	}

	s.InitiativeOrder = initiative.Order(s.InitiativeEntries, s.InitiativeMode)
	s.Phase = combatent.PhaseInitiativeReady
	s.AppendLog(combatent.LogInitiativeReady, "", "initiative order locked",
		map[string]any{"order": s.InitiativeOrder}, r.orch.clock.Now())
	r.queue(events.TypeInitiativeReady, map[string]any{"order": s.InitiativeOrder})

	// Round one starts immediately; initiative_ready is observable in the
	// log and event stream but never waits on another request
	s.Phase = combatent.PhaseActiveTurn
	s.Round = 1
	s.TurnIndex = 0
	s.TickedThisRound = make(map[string]bool)
	s.AppendLog(combatent.LogRoundStarted, "", "round 1 begins", nil, r.orch.clock.Now())
	r.queue(events.TypeRoundStarted, &events.RoundStarted{Round: 1})
	if len(s.InitiativeOrder) > 0 {
		s.ActiveEntityID = s.InitiativeOrder[0]
		r.beginTurn()
	}
	return true
}

// ModifyInitiative replaces the order wholesale. GM only; the new order
// must be a permutation of the old one.
func (o *Orchestrator) ModifyInitiative(ctx context.Context, input *ModifyInitiativeInput) (*ModifyInitiativeOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.modifyInitiative(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ModifyInitiativeOutput), nil
}

func (r *runner) modifyInitiative(ctx context.Context, input *ModifyInitiativeInput) (*ModifyInitiativeOutput, error) {
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can modify initiative")
	}
	if err := r.requirePhase(combatent.PhaseActiveTurn, combatent.PhaseInitiativeReady); err != nil {
		return nil, err
	}

	s := r.state
	if len(input.Order) != len(s.InitiativeOrder) {
		return nil, errors.InvalidArgument("new order must contain exactly the current combatants")
	}
	current := make(map[string]bool, len(s.InitiativeOrder))
	for _, id := range s.InitiativeOrder {
		current[id] = true
	}
	seen := make(map[string]bool, len(input.Order))
	for _, id := range input.Order {
		if !current[id] || seen[id] {
			return nil, errors.InvalidArgumentf("new order is not a permutation: %s", id)
		}
		seen[id] = true
	}

	s.InitiativeOrder = append([]string(nil), input.Order...)
	// Keep the turn pointer on the same entity
	if s.ActiveEntityID != "" {
		s.TurnIndex = s.InitiativeRank(s.ActiveEntityID)
	}

	s.AppendLog(combatent.LogInitiativeModified, "",
		fmt.Sprintf("GM reordered initiative: %s", input.Reason),
		map[string]any{"order": s.InitiativeOrder, "reason": input.Reason}, r.orch.clock.Now())
	r.queue(events.TypeInitiativeModified, map[string]any{
		"order":  s.InitiativeOrder,
		"reason": input.Reason,
	})

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &ModifyInitiativeOutput{Order: append([]string(nil), s.InitiativeOrder...)}, nil
}
