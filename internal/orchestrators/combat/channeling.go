package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/rules/actions"
	"github.com/KirkDiggler/combat-api/internal/rules/channeling"
)

// StartChanneling opens a multi-turn channel with its first contribution
func (o *Orchestrator) StartChanneling(ctx context.Context, input *StartChannelingInput) (*StartChannelingOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.startChanneling(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*StartChannelingOutput), nil
}

func (r *runner) startChanneling(ctx context.Context, input *StartChannelingInput) (*StartChannelingOutput, error) {
	s := r.state
	e, err := r.channelingActor(input.EntityID, input.Meta.RequesterID)
	if err != nil {
		return nil, err
	}
	if e.Channeling {
		return nil, errors.FailedPrecondition("entity is already channeling")
	}

	spell, ok := r.orch.tables.Spell(input.SpellID)
	if !ok {
		return nil, errors.NotFoundf("unknown spell %s", input.SpellID)
	}

	progress, err := channeling.Start(e.ID, spell.ID, spell.TotalCost)
	if err != nil {
		return nil, err
	}
	if err := r.contribute(e, progress, input.AP, input.Energy); err != nil {
		return nil, err
	}

	e.Channeling = true
	s.PendingChanneling[e.ID] = progress

	s.AppendLog(combatent.LogChannelingStarted, e.ID,
		fmt.Sprintf("%s began channeling %s", e.Name, spell.ID),
		map[string]any{"spellId": spell.ID, "progress": progress.Progress}, r.orch.clock.Now())
	r.queue(events.TypeChannelingStarted, map[string]any{
		"entityId": e.ID,
		"spellId":  spell.ID,
		"progress": progress.Progress,
	})
	r.queueEntity(e.ID)

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &StartChannelingOutput{Progress: progress}, nil
}

// ContinueChanneling adds this turn's contribution to an open channel
func (o *Orchestrator) ContinueChanneling(ctx context.Context, input *ContinueChannelingInput) (*ContinueChannelingOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.continueChanneling(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ContinueChannelingOutput), nil
}

func (r *runner) continueChanneling(ctx context.Context, input *ContinueChannelingInput) (*ContinueChannelingOutput, error) {
	s := r.state
	e, err := r.channelingActor(input.EntityID, input.Meta.RequesterID)
	if err != nil {
		return nil, err
	}
	progress, ok := s.PendingChanneling[e.ID]
	if !ok {
		return nil, errors.FailedPrecondition("entity is not channeling")
	}
	if err := r.contribute(e, progress, input.AP, input.Energy); err != nil {
		return nil, err
	}

	s.AppendLog(combatent.LogChannelingProgress, e.ID,
		fmt.Sprintf("%s continued channeling %s", e.Name, progress.SpellID),
		map[string]any{"spellId": progress.SpellID, "progress": progress.Progress}, r.orch.clock.Now())
	r.queue(events.TypeChannelingProgress, map[string]any{
		"entityId": e.ID,
		"spellId":  progress.SpellID,
		"progress": progress.Progress,
	})
	r.queueEntity(e.ID)

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &ContinueChannelingOutput{Progress: progress}, nil
}

// ReleaseSpell releases a fully channeled spell at its target
func (o *Orchestrator) ReleaseSpell(ctx context.Context, input *ReleaseSpellInput) (*ReleaseSpellOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.releaseSpell(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ReleaseSpellOutput), nil
}

func (r *runner) releaseSpell(ctx context.Context, input *ReleaseSpellInput) (*ReleaseSpellOutput, error) {
	s := r.state
	e, err := r.channelingActor(input.EntityID, input.Meta.RequesterID)
	if err != nil {
		return nil, err
	}
	progress, ok := s.PendingChanneling[e.ID]
	if !ok {
		return nil, errors.FailedPrecondition("entity is not channeling")
	}
	if !channeling.CanRelease(progress) {
		return nil, errors.FailedPrecondition(
			fmt.Sprintf("spell %s is only %.0f%% channeled", progress.SpellID, progress.Progress*100))
	}

	spell, ok := r.orch.tables.Spell(progress.SpellID)
	if !ok {
		return nil, errors.NotFoundf("unknown spell %s", progress.SpellID)
	}

	// The channel is consumed whether or not the target is still standing
	delete(s.PendingChanneling, e.ID)
	e.Channeling = false

	s.AppendLog(combatent.LogSpellReleased, e.ID,
		fmt.Sprintf("%s released %s", e.Name, spell.ID),
		map[string]any{"spellId": spell.ID, "targetId": input.TargetID}, r.orch.clock.Now())
	r.queue(events.TypeSpellReleased, map[string]any{
		"entityId": e.ID,
		"spellId":  spell.ID,
		"targetId": input.TargetID,
	})
	r.queueEntity(e.ID)

	summary := &ResolutionSummary{ActionStatus: combatent.ActionResolved, TargetID: input.TargetID}
	if spell.Damage != nil && input.TargetID != "" {
		if _, ok := s.Entity(input.TargetID); !ok {
			return nil, errors.InvalidTargetf("target %s is not in this combat", input.TargetID)
		}
		dmg := actions.ApplyDamage(s, input.TargetID, &combatent.DamageSpec{
			Energy:     spell.Damage.Energy,
			WoundType:  spell.Damage.WoundType,
			WoundCount: spell.Damage.WoundCount,
		})
		if dmg != nil {
			r.recordDamage(dmg)
			summary.EnergyLost = dmg.EnergyLost
			summary.WoundsApplied = dmg.WoundsAdded
			r.queueEntity(input.TargetID)
			r.finishResolution([]*ruleDamage{{
				TargetID:       dmg.TargetID,
				EnergyDepleted: dmg.EnergyDepleted,
				FurtherHarm:    dmg.FurtherHarm,
			}})
		}
	}

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &ReleaseSpellOutput{SpellID: spell.ID, Resolution: summary}, nil
}

// AbortChanneling voluntarily abandons a channel. The investment is simply
// lost; only forced interruption triggers blowback.
func (o *Orchestrator) AbortChanneling(ctx context.Context, input *AbortChannelingInput) (*AbortChannelingOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.abortChanneling(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*AbortChannelingOutput), nil
}

func (r *runner) abortChanneling(ctx context.Context, input *AbortChannelingInput) (*AbortChannelingOutput, error) {
	s := r.state
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	progress, ok := s.PendingChanneling[e.ID]
	if !ok {
		return nil, errors.FailedPrecondition("entity is not channeling")
	}

	delete(s.PendingChanneling, e.ID)
	e.Channeling = false

	s.AppendLog(combatent.LogChannelingAborted, e.ID,
		fmt.Sprintf("%s abandoned channeling %s", e.Name, progress.SpellID),
		map[string]any{"spellId": progress.SpellID}, r.orch.clock.Now())
	r.queue(events.TypeChannelingEnded, map[string]any{
		"entityId":    e.ID,
		"interrupted": false,
	})
	r.queueEntity(e.ID)

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &AbortChannelingOutput{Aborted: true}, nil
}

// channelingActor validates the common channeling preconditions: active
// turn, actor exists and can act, requester controls them, it is their turn
func (r *runner) channelingActor(entityID, requester string) (*combatent.Entity, error) {
	if err := r.requirePhase(combatent.PhaseActiveTurn); err != nil {
		return nil, err
	}
	e, err := r.requireEntity(entityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, requester); err != nil {
		return nil, err
	}
	if !e.CanAct() {
		return nil, errors.InvalidTargetf("entity %s cannot act", entityID)
	}
	if r.state.ActiveEntityID != entityID && requester != combatent.ControllerGM {
		return nil, errors.WrongTurn("it is not this entity's turn")
	}
	return e, nil
}

// contribute validates affordability, spends, and applies a channeling
// contribution
func (r *runner) contribute(e *combatent.Entity, progress *combatent.ChannelingProgress, ap, energy int) error {
	if ap > e.AP {
		return errors.InsufficientAPf("contribution costs %d AP but %d remain", ap, e.AP)
	}
	if energy > e.Energy {
		return errors.InsufficientEnergyf("contribution costs %d energy but %d remain", energy, e.Energy)
	}
	if err := channeling.Contribute(progress, ap, energy); err != nil {
		return err
	}
	e.SpendAP(ap)
	e.SpendEnergy(energy)
	return nil
}
