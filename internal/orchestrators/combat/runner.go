package combat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/rules/wounds"
	combatrepo "github.com/KirkDiggler/combat-api/internal/repositories/combat"
)

// task is one unit of work for a runner: the handler closure plus the
// channel its caller is blocked on
type task struct {
	ctx   context.Context
	fn    func(r *runner) (any, error)
	reply chan taskResult
}

type taskResult struct {
	out any
	err error
}

// runner owns one combat's State. Only the run loop touches state or the
// pending event slice, so handlers need no locks.
type runner struct {
	orch  *Orchestrator
	state *combatent.State
	inbox chan task

	// pending holds events queued by the current handler, flushed on commit
	pending []*events.Event
}

func (o *Orchestrator) newRunner(state *combatent.State) *runner {
	return &runner{
		orch:  o,
		state: state,
		inbox: make(chan task, 16),
	}
}

// run processes tasks until the inbox closes
func (r *runner) run() {
	for t := range r.inbox {
		if err := t.ctx.Err(); err != nil {
			t.reply <- taskResult{err: errors.Wrap(err, "request abandoned")}
			continue
		}
		out, err := t.fn(r)
		r.pending = nil
		t.reply <- taskResult{out: out, err: err}
	}
}

// submit enqueues fn and waits for its result
func (r *runner) submit(ctx context.Context, fn func(r *runner) (any, error)) (any, error) {
	t := task{ctx: ctx, fn: fn, reply: make(chan taskResult, 1)}
	select {
	case r.inbox <- t:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "combat busy")
	}
	select {
	case res := <-t.reply:
		return res.out, res.err
	case <-ctx.Done():
		// The task still runs; the caller just stops waiting
		return nil, errors.Wrap(ctx.Err(), "request timed out")
	}
}

// queue stages an event for the commit that ends this handler. Events for a
// rejected request are discarded with it.
func (r *runner) queue(eventType events.Type, payload any) {
	r.pending = append(r.pending, &events.Event{
		Type:     eventType,
		CombatID: r.state.CombatID,
		Payload:  payload,
	})
}

// queueEntity stages an ENTITY_UPDATED delta for one combatant
func (r *runner) queueEntity(entityID string) {
	if e, ok := r.state.Entity(entityID); ok {
		r.queue(events.TypeEntityUpdated, &events.EntityUpdated{Entity: e})
	}
}

// commit is the single exit for accepted mutations: exactly one version
// bump, one save, then the staged events in order, each stamped with the
// next sequence number. A save failure rejects the request; the in-memory
// state is already mutated, so the runner reloads from the last snapshot.
func (r *runner) commit(ctx context.Context) error {
	now := r.orch.clock.Now()
	r.state.Version++
	r.state.UpdatedAt = now

	for _, ev := range r.pending {
		r.state.EventSeq++
		ev.Sequence = r.state.EventSeq
		ev.At = now
	}

	if _, err := r.orch.repo.Save(ctx, &combatrepo.SaveInput{State: r.state}); err != nil {
		r.reload(ctx)
		return errors.Wrap(err, "failed to persist combat state")
	}

	for _, ev := range r.pending {
		if err := r.orch.pub.Publish(ctx, ev); err != nil {
			// Persisted state is the truth; a lost delta only costs
			// subscribers a re-sync
			slog.Warn("failed to publish combat event",
				"combat_id", r.state.CombatID,
				"event_type", ev.Type,
				"error", err)
		}
	}
	r.pending = nil
	return nil
}

// reload restores state from the last saved snapshot after a failed save
func (r *runner) reload(ctx context.Context) {
	out, err := r.orch.repo.Get(ctx, &combatrepo.GetInput{CombatID: r.state.CombatID})
	if err != nil {
		slog.Error("failed to reload combat after save failure",
			"combat_id", r.state.CombatID, "error", err)
		return
	}
	r.state = out.State
}

// snapshot deep-copies the state through its JSON form, so callers outside
// the runner goroutine can never alias live maps
func (r *runner) snapshot() (*combatent.State, error) {
	data, err := json.Marshal(r.state)
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot combat state")
	}
	var cp combatent.State
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, "failed to snapshot combat state")
	}
	return &cp, nil
}

// requireEntity fetches a combatant or rejects with INVALID_TARGET
func (r *runner) requireEntity(id string) (*combatent.Entity, error) {
	e, ok := r.state.Entity(id)
	if !ok {
		return nil, errors.InvalidTargetf("entity %s is not in this combat", id)
	}
	return e, nil
}

// requireController rejects requesters who do not control the entity
func (r *runner) requireController(e *combatent.Entity, requester string) error {
	if !e.Controllable(requester) {
		return errors.PermissionDenied(
			fmt.Sprintf("%s does not control %s", requester, e.ID))
	}
	return nil
}

// requirePhase rejects requests arriving in the wrong phase
func (r *runner) requirePhase(want ...combatent.Phase) error {
	for _, p := range want {
		if r.state.Phase == p {
			return nil
		}
	}
	return errors.WrongPhase(string(r.state.Phase))
}

// beginTurn starts the active entity's turn: restore AP under freeze
// penalties, regenerate energy under laceration and necrosis penalties, and
// tick statuses exactly once per round per entity.
func (r *runner) beginTurn() {
	s := r.state
	e, ok := s.ActiveEntity()
	if !ok {
		return
	}

	e.RestoreAP(wounds.TurnAP(e))
	regen := wounds.TurnRegen(e, r.orch.tables.EnergyRegen)
	e.GainEnergy(regen, wounds.EffectiveMaxEnergy(e))

	if !s.TickedThisRound[e.ID] {
		s.TickedThisRound[e.ID] = true
		ticks := wounds.Tick(e, r.orch.tables.StatusTicks)
		for _, tick := range ticks {
			if tick.Wounds > 0 {
				s.AppendLog(combatent.LogStatusTicked, e.ID,
					fmt.Sprintf("%s suffers %s", e.ID, tick.Key),
					map[string]any{
						"status": tick.Key,
						"wound":  string(tick.Wound),
						"wounds": tick.Wounds,
					}, r.orch.clock.Now())
				r.queue(events.TypeWoundsApplied, &events.WoundsApplied{
					EntityID:  e.ID,
					WoundType: tick.Wound,
					Wounds:    tick.Wounds,
				})
			}
			if tick.Expired {
				s.AppendLog(combatent.LogStatusExpired, e.ID,
					fmt.Sprintf("%s is no longer %s", e.ID, tick.Key),
					map[string]any{"status": tick.Key}, r.orch.clock.Now())
			}
		}
	}

	e.ReactionAvailable = true

	s.AppendLog(combatent.LogTurnStarted, e.ID, fmt.Sprintf("%s begins their turn", e.ID),
		nil, r.orch.clock.Now())
	r.queue(events.TypeTurnStarted, &events.TurnStarted{
		EntityID:  e.ID,
		Round:     s.Round,
		TurnIndex: s.TurnIndex,
		AP:        e.AP,
		Energy:    e.Energy,
	})
	r.queueEntity(e.ID)
}

// advanceTurn moves to the next entity in initiative that can act, wrapping
// the round when the order is exhausted. Entities that cannot act are
// skipped; if nobody can act the combat stalls in the GM's hands rather
// than spinning.
func (r *runner) advanceTurn() {
	s := r.state

	for range s.InitiativeOrder {
		s.TurnIndex++
		if s.TurnIndex >= len(s.InitiativeOrder) {
			s.TurnIndex = 0
			s.Round++
			s.TickedThisRound = make(map[string]bool)
			s.AppendLog(combatent.LogRoundStarted, "",
				fmt.Sprintf("round %d begins", s.Round), nil, r.orch.clock.Now())
			r.queue(events.TypeRoundStarted, &events.RoundStarted{Round: s.Round})
		}
		next, ok := s.Entity(s.InitiativeOrder[s.TurnIndex])
		if ok && next.CanAct() {
			s.ActiveEntityID = next.ID
			r.beginTurn()
			return
		}
	}

	// No entity in the order can act
	s.ActiveEntityID = ""
}

// finishResolution handles everything that follows applied damage: survival
// rolls for depleted or wounded-out targets, channeling interruption side
// effects already applied by the rules layer, and faction defeat.
// It returns true when the combat ended.
func (r *runner) finishResolution(results []*ruleDamage) bool {
	s := r.state

	for _, dr := range results {
		target, ok := s.Entity(dr.TargetID)
		if !ok {
			continue
		}
		r.queueEntity(dr.TargetID)

		switch {
		case dr.FurtherHarm:
			// Wounds landed while already at zero energy
			r.requestSurvival(target.ID, combatent.SurvivalDeath)
		case dr.EnergyDepleted:
			r.requestSurvival(target.ID, combatent.SurvivalEndure)
		}
	}

	return r.checkFactionDefeat()
}

// ruleDamage mirrors the rules layer's damage outcome in runner terms
type ruleDamage struct {
	TargetID       string
	EnergyDepleted bool
	FurtherHarm    bool
}

// requestSurvival parks the combat in a survival phase until the blocked
// entity rolls. Only the first trigger in a resolution takes effect; a
// pending roll is never overwritten.
func (r *runner) requestSurvival(entityID string, kind combatent.SurvivalKind) {
	s := r.state
	if s.PendingSurvival != nil {
		return
	}

	returnPhase := s.Phase
	if returnPhase == combatent.PhaseResolution ||
		returnPhase == combatent.PhaseReactionWindow {
		returnPhase = combatent.PhaseActiveTurn
	}

	s.PendingSurvival = &combatent.SurvivalRoll{
		EntityID:    entityID,
		Kind:        kind,
		ReturnPhase: returnPhase,
	}
	switch kind {
	case combatent.SurvivalEndure:
		s.Phase = combatent.PhaseEndureRoll
	case combatent.SurvivalDeath:
		s.Phase = combatent.PhaseDeathCheck
	}

	s.AppendLog(combatent.LogSurvivalRequired, entityID,
		fmt.Sprintf("%s must make a %s roll", entityID, kind),
		map[string]any{"kind": string(kind)}, r.orch.clock.Now())
	r.queue(events.TypeSurvivalRequired, map[string]any{
		"entityId": entityID,
		"kind":     kind,
	})
}

// checkFactionDefeat completes the combat when a whole faction is down.
// Returns true when the combat ended.
func (r *runner) checkFactionDefeat() bool {
	s := r.state
	if s.Completed() || s.PendingSurvival != nil {
		return false
	}

	hasAllies, hasEnemies := false, false
	for _, e := range s.Entities {
		switch e.Faction {
		case combatent.FactionAlly:
			hasAllies = true
		case combatent.FactionEnemy:
			hasEnemies = true
		}
	}
	if !hasAllies || !hasEnemies {
		return false
	}
	if s.AliveCount(combatent.FactionEnemy) == 0 {
		r.complete(combatent.EndVictory)
		return true
	}
	if s.AliveCount(combatent.FactionAlly) == 0 {
		r.complete(combatent.EndDefeat)
		return true
	}
	return false
}

// complete moves the combat to its terminal phase
func (r *runner) complete(reason combatent.EndReason) {
	s := r.state
	s.Phase = combatent.PhaseCompleted
	s.EndReason = reason
	s.ActiveEntityID = ""
	s.PendingAction = nil
	s.PendingReactions = nil
	s.ReactionWindowReactors = nil

	s.AppendLog(combatent.LogCombatEnded, "",
		fmt.Sprintf("combat ended: %s", reason),
		map[string]any{"reason": string(reason)}, r.orch.clock.Now())
	r.queue(events.TypeCombatEnded, map[string]any{"reason": reason})
}
