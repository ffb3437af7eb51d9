package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
)

// CreateCombat creates a combat lobby and starts its runner
func (o *Orchestrator) CreateCombat(ctx context.Context, input *CreateCombatInput) (*CreateCombatOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("campaign_id", input.CampaignID, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	width, height := input.GridWidth, input.GridHeight
	if width <= 0 {
		width = defaultGridWidth
	}
	if height <= 0 {
		height = defaultGridHeight
	}

	state := combatent.New(o.idGen.Generate(), input.CampaignID, width, height, o.clock.Now())
	if input.Mode != "" {
		state.InitiativeMode = input.Mode
	}
	for key, terrain := range input.Terrain {
		coord, err := combatent.ParseCoordKey(key)
		if err != nil {
			return nil, errors.Wrap(err, "invalid terrain coordinate")
		}
		if !state.Grid.InBounds(coord) {
			return nil, errors.InvalidArgumentf("terrain coordinate %s is off the grid", key)
		}
		state.Grid.Terrain[key] = terrain
	}

	r := o.newRunner(state)
	if err := o.startRunner(r); err != nil {
		return nil, err
	}

	out, err := r.submit(ctx, func(r *runner) (any, error) {
		r.queue(events.TypeLobbyUpdated, map[string]any{"phase": r.state.Phase})
		if err := r.commit(ctx); err != nil {
			return nil, err
		}
		snap, err := r.snapshot()
		if err != nil {
			return nil, err
		}
		return &CreateCombatOutput{State: snap}, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*CreateCombatOutput), nil
}

// Grid defaults when the creator does not size it
const (
	defaultGridWidth  = 20
	defaultGridHeight = 20
)

// JoinLobby adds a combatant to a lobby-phase combat
func (o *Orchestrator) JoinLobby(ctx context.Context, input *JoinLobbyInput) (*JoinLobbyOutput, error) {
	if input == nil || input.Entity == nil {
		return nil, errors.InvalidArgument("input and entity are required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.joinLobby(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*JoinLobbyOutput), nil
}

func (r *runner) joinLobby(ctx context.Context, input *JoinLobbyInput) (*JoinLobbyOutput, error) {
	if err := r.requirePhase(combatent.PhaseLobby); err != nil {
		return nil, err
	}

	e := input.Entity
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("name", e.Name, vb)
	errors.ValidateRequired("controller", e.Controller, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}
	if e.MaxAP <= 0 || e.MaxEnergy <= 0 {
		return nil, errors.InvalidArgument("entity needs positive max AP and max energy")
	}
	if e.ID == "" {
		e.ID = r.orch.idGen.Generate()
	}
	if _, exists := r.state.Entity(e.ID); exists {
		return nil, errors.AlreadyExists(fmt.Sprintf("entity %s is already in this combat", e.ID))
	}
	if e.Faction == "" {
		e.Faction = combatent.FactionNeutral
	}
	if e.Tier == "" {
		e.Tier = combatent.TierFull
	}

	e.Alive = true
	e.Unconscious = false
	e.Ready = false
	e.Channeling = false
	e.AP = e.MaxAP
	if e.Energy <= 0 || e.Energy > e.MaxEnergy {
		e.Energy = e.MaxEnergy
	}

	r.state.Entities[e.ID] = e
	if input.Position != nil {
		if err := r.state.Grid.Place(e.ID, *input.Position); err != nil {
			delete(r.state.Entities, e.ID)
			return nil, err
		}
	}

	r.state.AppendLog(combatent.LogEntityJoined, e.ID,
		fmt.Sprintf("%s joined the lobby", e.Name), nil, r.orch.clock.Now())
	r.queue(events.TypeLobbyUpdated, map[string]any{"joined": e.ID})
	r.queueEntity(e.ID)
	if err := r.commit(ctx); err != nil {
		return nil, err
	}

	snap, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return &JoinLobbyOutput{State: snap}, nil
}

// LeaveLobby removes a combatant before the fight starts
func (o *Orchestrator) LeaveLobby(ctx context.Context, input *LeaveLobbyInput) (*LeaveLobbyOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.leaveLobby(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*LeaveLobbyOutput), nil
}

func (r *runner) leaveLobby(ctx context.Context, input *LeaveLobbyInput) (*LeaveLobbyOutput, error) {
	if err := r.requirePhase(combatent.PhaseLobby); err != nil {
		return nil, err
	}
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}

	r.state.Grid.Remove(e.ID)
	delete(r.state.Entities, e.ID)

	r.state.AppendLog(combatent.LogEntityLeft, e.ID,
		fmt.Sprintf("%s left the lobby", e.Name), nil, r.orch.clock.Now())
	r.queue(events.TypeLobbyUpdated, map[string]any{"left": e.ID})
	if err := r.commit(ctx); err != nil {
		return nil, err
	}

	snap, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return &LeaveLobbyOutput{State: snap}, nil
}

// ToggleReady flips a combatant's lobby ready flag
func (o *Orchestrator) ToggleReady(ctx context.Context, input *ToggleReadyInput) (*ToggleReadyOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.toggleReady(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*ToggleReadyOutput), nil
}

func (r *runner) toggleReady(ctx context.Context, input *ToggleReadyInput) (*ToggleReadyOutput, error) {
	if err := r.requirePhase(combatent.PhaseLobby); err != nil {
		return nil, err
	}
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}

	e.Ready = !e.Ready
	r.queue(events.TypeLobbyUpdated, map[string]any{"entityId": e.ID, "ready": e.Ready})
	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &ToggleReadyOutput{Ready: e.Ready}, nil
}
