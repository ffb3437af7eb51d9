package combat

import (
	"context"
	"fmt"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/rules/contest"
	"github.com/KirkDiggler/combat-api/internal/rules/wounds"
)

// InitiateContest opens an opposed skill contest against another entity.
// Contests run independently of the turn order; any live phase accepts them.
func (o *Orchestrator) InitiateContest(ctx context.Context, input *InitiateContestInput) (*InitiateContestOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.initiateContest(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*InitiateContestOutput), nil
}

func (r *runner) initiateContest(ctx context.Context, input *InitiateContestInput) (*InitiateContestOutput, error) {
	s := r.state
	if s.Completed() || s.Phase == combatent.PhaseLobby {
		return nil, errors.WrongPhase(string(s.Phase))
	}
	initiator, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(initiator, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	target, err := r.requireEntity(input.TargetID)
	if err != nil {
		return nil, err
	}
	if input.Skill == "" {
		return nil, errors.InvalidArgument("skill is required")
	}
	if input.Roll < 1 || input.Roll > r.orch.tables.ContestDieSize {
		return nil, errors.InvalidArgumentf("roll must be 1-%d", r.orch.tables.ContestDieSize)
	}

	c := &combatent.SkillContest{
		ID:             r.orch.idGen.Generate(),
		InitiatorID:    initiator.ID,
		TargetID:       target.ID,
		Skill:          input.Skill,
		Status:         combatent.ContestAwaitingDefense,
		InitiatorTotal: r.skillTotal(initiator, input.Skill, input.Domain, input.Roll),
		CreatedAt:      r.orch.clock.Now(),
	}
	s.PendingContests[c.ID] = c

	s.AppendLog(combatent.LogContestInitiated, initiator.ID,
		fmt.Sprintf("%s contests %s against %s", initiator.Name, input.Skill, target.Name),
		map[string]any{"contestId": c.ID, "skill": input.Skill}, r.orch.clock.Now())
	r.queue(events.TypeContestInitiated, map[string]any{
		"contestId":   c.ID,
		"initiatorId": c.InitiatorID,
		"targetId":    c.TargetID,
		"skill":       c.Skill,
	})

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &InitiateContestOutput{Contest: c}, nil
}

// RespondContest submits the defender's roll and resolves the contest
func (o *Orchestrator) RespondContest(ctx context.Context, input *RespondContestInput) (*RespondContestOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.respondContest(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*RespondContestOutput), nil
}

func (r *runner) respondContest(ctx context.Context, input *RespondContestInput) (*RespondContestOutput, error) {
	s := r.state
	c, ok := s.PendingContests[input.ContestID]
	if !ok {
		return nil, errors.NotFoundf("contest %s not found", input.ContestID)
	}
	if c.Status != combatent.ContestAwaitingDefense {
		return nil, errors.FailedPrecondition("contest is not awaiting a defense")
	}
	defender, err := r.requireEntity(c.TargetID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(defender, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	if input.Roll < 1 || input.Roll > r.orch.tables.ContestDieSize {
		return nil, errors.InvalidArgumentf("roll must be 1-%d", r.orch.tables.ContestDieSize)
	}

	c.TargetTotal = r.skillTotal(defender, c.Skill, input.Domain, input.Roll)
	outcome := contest.Resolve(c, r.orch.tables.ContestTiers)
	c.Status = combatent.ContestResolved
	c.WinnerID = outcome.WinnerID
	c.Margin = outcome.Margin
	c.Tier = outcome.Tier
	delete(s.PendingContests, c.ID)

	s.AppendLog(combatent.LogContestResolved, c.InitiatorID,
		contestSummary(c, outcome),
		map[string]any{
			"contestId": c.ID,
			"winnerId":  c.WinnerID,
			"margin":    c.Margin,
			"tier":      string(c.Tier),
		}, r.orch.clock.Now())
	r.queue(events.TypeContestResolved, map[string]any{"contest": c})

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &RespondContestOutput{Contest: c}, nil
}

func contestSummary(c *combatent.SkillContest, out contest.Outcome) string {
	if out.Draw {
		return fmt.Sprintf("%s contest is a draw (%d to %d)", c.Skill, c.InitiatorTotal, c.TargetTotal)
	}
	return fmt.Sprintf("%s wins the %s contest by %d (%s)", out.WinnerID, c.Skill, out.Margin, out.Tier)
}

// RequestCheck asks one entity for a skill check. GM only. The target
// number is stored but withheld from outbound payloads until resolution.
func (o *Orchestrator) RequestCheck(ctx context.Context, input *RequestCheckInput) (*RequestCheckOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.requestCheck(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*RequestCheckOutput), nil
}

func (r *runner) requestCheck(ctx context.Context, input *RequestCheckInput) (*RequestCheckOutput, error) {
	if input.Meta.RequesterID != combatent.ControllerGM {
		return nil, errors.PermissionDenied("only the GM can request checks")
	}
	s := r.state
	if s.Completed() {
		return nil, errors.WrongPhase(string(s.Phase))
	}
	e, err := r.requireEntity(input.EntityID)
	if err != nil {
		return nil, err
	}
	if input.Skill == "" {
		return nil, errors.InvalidArgument("skill is required")
	}
	domain := input.Domain
	if domain == "" {
		domain = skillDomainOf(input.Skill)
	}

	check := &combatent.SkillCheck{
		ID:           r.orch.idGen.Generate(),
		EntityID:     e.ID,
		Skill:        input.Skill,
		Domain:       domain,
		Status:       combatent.ContestPending,
		TargetNumber: input.TargetNumber,
		RequestedBy:  input.Meta.RequesterID,
		CreatedAt:    r.orch.clock.Now(),
	}
	s.PendingChecks[check.ID] = check

	s.AppendLog(combatent.LogCheckRequested, e.ID,
		fmt.Sprintf("%s must make a %s check", e.Name, input.Skill),
		map[string]any{"checkId": check.ID, "skill": input.Skill}, r.orch.clock.Now())
	r.queue(events.TypeCheckRequested, &events.CheckRequested{
		CheckID:  check.ID,
		EntityID: check.EntityID,
		Skill:    check.Skill,
	})

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &RequestCheckOutput{CheckID: check.ID}, nil
}

// SubmitCheck submits the rolling player's roll and resolves the check,
// revealing the target number
func (o *Orchestrator) SubmitCheck(ctx context.Context, input *SubmitCheckInput) (*SubmitCheckOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	out, err := o.submit(ctx, input.CombatID, func(r *runner) (any, error) {
		return r.submitCheck(ctx, input)
	})
	if err != nil {
		return nil, err
	}
	return out.(*SubmitCheckOutput), nil
}

func (r *runner) submitCheck(ctx context.Context, input *SubmitCheckInput) (*SubmitCheckOutput, error) {
	s := r.state
	check, ok := s.PendingChecks[input.CheckID]
	if !ok {
		return nil, errors.NotFoundf("check %s not found", input.CheckID)
	}
	e, err := r.requireEntity(check.EntityID)
	if err != nil {
		return nil, err
	}
	if err := r.requireController(e, input.Meta.RequesterID); err != nil {
		return nil, err
	}
	if input.Roll < 1 || input.Roll > r.orch.tables.ContestDieSize {
		return nil, errors.InvalidArgumentf("roll must be 1-%d", r.orch.tables.ContestDieSize)
	}

	check.Total = r.skillTotal(e, check.Skill, check.Domain, input.Roll)
	success := contest.CheckSuccess(check.Total, check.TargetNumber)
	check.Success = &success
	check.Status = combatent.ContestResolved
	delete(s.PendingChecks, check.ID)

	s.AppendLog(combatent.LogCheckResolved, e.ID,
		fmt.Sprintf("%s rolled %d on the %s check", e.Name, check.Total, check.Skill),
		map[string]any{"checkId": check.ID, "total": check.Total, "success": success},
		r.orch.clock.Now())
	r.queue(events.TypeCheckResolved, &events.CheckResolved{Check: check})

	if err := r.commit(ctx); err != nil {
		return nil, err
	}
	return &SubmitCheckOutput{Check: check}, nil
}

// skillTotal is roll + skill value + wound penalties for the skill's domain
func (r *runner) skillTotal(e *combatent.Entity, skill string, domain combatent.SkillDomain, roll int) int {
	return roll + e.Skills[skill] + wounds.SkillPenalty(e, domain)
}

// skillDomainOf maps a skill name onto its wound penalty domain. Unknown
// skills default to physical, the broadest penalty set.
func skillDomainOf(skill string) combatent.SkillDomain {
	switch skill {
	case "willpower", "focus", "perception", "lore":
		return combatent.DomainMental
	case "faith", "attunement":
		return combatent.DomainSpiritual
	default:
		return combatent.DomainPhysical
	}
}
