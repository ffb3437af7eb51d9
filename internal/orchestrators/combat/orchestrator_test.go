package combat_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/combat-api/internal/content"
	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	eventsmock "github.com/KirkDiggler/combat-api/internal/events/mock"
	combat "github.com/KirkDiggler/combat-api/internal/orchestrators/combat"
	"github.com/KirkDiggler/combat-api/internal/pkg/clock"
	"github.com/KirkDiggler/combat-api/internal/pkg/idgen"
	"github.com/KirkDiggler/combat-api/internal/pkg/roller"
	combatrepo "github.com/KirkDiggler/combat-api/internal/repositories/combat"
	combatrepomock "github.com/KirkDiggler/combat-api/internal/repositories/combat/mock"
	"github.com/KirkDiggler/combat-api/internal/testutils"
)

const (
	gm         = combatent.ControllerGM
	heroPlayer = "player:hero"
	gobPlayer  = "player:goblin"
)

type OrchestratorTestSuite struct {
	suite.Suite
	orch  *combat.Orchestrator
	repo  combatrepo.Repository
	clock *clock.Fixed
	ctx   context.Context
}

func (s *OrchestratorTestSuite) SetupTest() {
	tables, err := content.Default()
	s.Require().NoError(err)

	s.repo = combatrepo.NewInMemory()
	s.clock = clock.NewFixed(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()

	orch, err := combat.NewOrchestrator(&combat.Config{
		Repository:  s.repo,
		Publisher:   events.NewBus(),
		Content:     tables,
		IDGenerator: idgen.NewSequential("id"),
		// every server-side roll comes up 10
		Roller: roller.NewSequence(10),
		Clock:  s.clock,
	})
	s.Require().NoError(err)
	s.orch = orch
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.orch.Close()
}

func meta(requester string) combat.RequestMeta {
	return combat.RequestMeta{RequesterID: requester, RequestID: "req-1"}
}

// startedCombat builds a two-sided fight and rolls it into round one. The
// hero carries an initiative bonus, so with every roll scripted at 10 the
// hero always acts first.
func (s *OrchestratorTestSuite) startedCombat(goblinEnergy int) string {
	created, err := s.orch.CreateCombat(s.ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	s.Require().NoError(err)
	combatID := created.State.CombatID

	hero := testutils.CreateTestEntity("hero", combatent.FactionAlly)
	hero.Skills["initiative"] = 5
	_, err = s.orch.JoinLobby(s.ctx, &combat.JoinLobbyInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		Entity:   hero,
		Position: &combatent.Coord{Q: 2, R: 2},
	})
	s.Require().NoError(err)

	goblin := testutils.CreateTestEntity("goblin", combatent.FactionEnemy)
	if goblinEnergy > 0 {
		goblin.Energy = goblinEnergy
	}
	_, err = s.orch.JoinLobby(s.ctx, &combat.JoinLobbyInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		Entity:   goblin,
		Position: &combatent.Coord{Q: 2, R: 3},
	})
	s.Require().NoError(err)

	for id, requester := range map[string]string{"hero": heroPlayer, "goblin": gobPlayer} {
		_, err = s.orch.ToggleReady(s.ctx, &combat.ToggleReadyInput{
			Meta:     meta(requester),
			CombatID: combatID,
			EntityID: id,
		})
		s.Require().NoError(err)
	}

	_, err = s.orch.StartCombat(s.ctx, &combat.StartCombatInput{
		Meta:     meta(gm),
		CombatID: combatID,
		AutoRoll: true,
	})
	s.Require().NoError(err)
	return combatID
}

func (s *OrchestratorTestSuite) getState(combatID string) *combatent.State {
	out, err := s.orch.GetState(s.ctx, &combat.GetStateInput{CombatID: combatID})
	s.Require().NoError(err)
	return out.State
}

func (s *OrchestratorTestSuite) TestLobbyToFirstTurn() {
	combatID := s.startedCombat(0)
	state := s.getState(combatID)

	s.Equal(combatent.PhaseActiveTurn, state.Phase)
	s.Equal(1, state.Round)
	s.Equal([]string{"hero", "goblin"}, state.InitiativeOrder)
	s.Equal("hero", state.ActiveEntityID)
	s.Equal(testutils.TestMaxAP, state.Entities["hero"].AP)
	s.True(state.Entities["hero"].ReactionAvailable)
}

func (s *OrchestratorTestSuite) TestStartCombat_RequiresReadyLobby() {
	created, err := s.orch.CreateCombat(s.ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	s.Require().NoError(err)

	_, err = s.orch.StartCombat(s.ctx, &combat.StartCombatInput{
		Meta:     meta(gm),
		CombatID: created.State.CombatID,
	})
	s.Require().Error(err)
	s.Equal(errors.CodeFailedPrecondition, errors.GetCode(err))
}

func (s *OrchestratorTestSuite) TestStartCombat_SingleCombatantLobby() {
	created, err := s.orch.CreateCombat(s.ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	s.Require().NoError(err)
	combatID := created.State.CombatID

	hero := testutils.CreateTestEntity("hero", combatent.FactionAlly)
	_, err = s.orch.JoinLobby(s.ctx, &combat.JoinLobbyInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		Entity:   hero,
	})
	s.Require().NoError(err)
	_, err = s.orch.ToggleReady(s.ctx, &combat.ToggleReadyInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)

	// one ready combatant is enough
	_, err = s.orch.StartCombat(s.ctx, &combat.StartCombatInput{
		Meta:     meta(gm),
		CombatID: combatID,
		AutoRoll: true,
	})
	s.Require().NoError(err)

	state := s.getState(combatID)
	s.Equal(combatent.PhaseActiveTurn, state.Phase)
	s.Equal([]string{"hero"}, state.InitiativeOrder)
	s.Equal("hero", state.ActiveEntityID)
}

func (s *OrchestratorTestSuite) TestManualInitiative() {
	created, err := s.orch.CreateCombat(s.ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	s.Require().NoError(err)
	combatID := created.State.CombatID

	for id, requester := range map[string]string{"hero": heroPlayer, "goblin": gobPlayer} {
		entity := testutils.CreateTestEntity(id, combatent.FactionAlly)
		_, err = s.orch.JoinLobby(s.ctx, &combat.JoinLobbyInput{
			Meta:     meta(requester),
			CombatID: combatID,
			Entity:   entity,
		})
		s.Require().NoError(err)
		_, err = s.orch.ToggleReady(s.ctx, &combat.ToggleReadyInput{
			Meta:     meta(requester),
			CombatID: combatID,
			EntityID: id,
		})
		s.Require().NoError(err)
	}

	_, err = s.orch.StartCombat(s.ctx, &combat.StartCombatInput{
		Meta:     meta(gm),
		CombatID: combatID,
	})
	s.Require().NoError(err)
	s.Equal(combatent.PhaseInitiativeRolling, s.getState(combatID).Phase)

	out, err := s.orch.SubmitInitiative(s.ctx, &combat.SubmitInitiativeInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
		Roll:     15,
	})
	s.Require().NoError(err)
	s.False(out.Ready, "one roll is still outstanding")

	_, err = s.orch.SubmitInitiative(s.ctx, &combat.SubmitInitiativeInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
		Roll:     18,
	})
	s.Require().Error(err, "an entity rolls initiative once")

	out, err = s.orch.SubmitInitiative(s.ctx, &combat.SubmitInitiativeInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
		Roll:     3,
	})
	s.Require().NoError(err)
	s.True(out.Ready)
	s.Equal([]string{"hero", "goblin"}, out.Order)

	// the last roll carried the combat straight into round one
	state := s.getState(combatID)
	s.Equal(combatent.PhaseActiveTurn, state.Phase)
	s.Equal("hero", state.ActiveEntityID)
}

func (s *OrchestratorTestSuite) TestModifyInitiative_GMReorder() {
	combatID := s.startedCombat(0)

	_, err := s.orch.ModifyInitiative(s.ctx, &combat.ModifyInitiativeInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		Order:    []string{"goblin", "hero"},
	})
	s.Require().Error(err, "reordering is GM only")

	_, err = s.orch.ModifyInitiative(s.ctx, &combat.ModifyInitiativeInput{
		Meta:     meta(gm),
		CombatID: combatID,
		Order:    []string{"goblin"},
	})
	s.Require().Error(err, "the new order must be an exact permutation")

	out, err := s.orch.ModifyInitiative(s.ctx, &combat.ModifyInitiativeInput{
		Meta:     meta(gm),
		CombatID: combatID,
		Order:    []string{"goblin", "hero"},
		Reason:   "surprise round",
	})
	s.Require().NoError(err)
	s.Equal([]string{"goblin", "hero"}, out.Order)

	state := s.getState(combatID)
	s.Equal("hero", state.ActiveEntityID, "the active entity keeps its turn")
	s.Equal(1, state.TurnIndex, "the turn pointer follows the active entity")
}

func (s *OrchestratorTestSuite) TestDeclareAction_OpensWindowAndAutoCloses() {
	combatID := s.startedCombat(0)

	declared, err := s.orch.DeclareAction(s.ctx, &combat.DeclareActionInput{
		Meta:      meta(heroPlayer),
		CombatID:  combatID,
		EntityID:  "hero",
		AbilityID: "strike",
		TargetID:  "goblin",
	})
	s.Require().NoError(err)
	s.True(declared.WindowOpened)
	s.Nil(declared.Resolution)

	state := s.getState(combatID)
	s.Equal(combatent.PhaseReactionWindow, state.Phase)
	s.Equal(testutils.TestMaxAP-2, state.Entities["hero"].AP, "costs are spent at declaration")
	s.Equal(testutils.TestMaxEnergy-1, state.Entities["hero"].Energy)

	// the goblin is the only eligible reactor; its parry closes the window
	reacted, err := s.orch.DeclareReaction(s.ctx, &combat.DeclareReactionInput{
		Meta:       meta(gobPlayer),
		CombatID:   combatID,
		EntityID:   "goblin",
		ReactionID: "parry",
	})
	s.Require().NoError(err)
	s.Require().NotNil(reacted.Resolution)
	s.False(reacted.Resolution.Cancelled)
	s.Equal(3, reacted.Resolution.EnergyLost, "8 strike damage parried down by 5")
	s.Equal(1, reacted.Resolution.WoundsApplied)

	state = s.getState(combatID)
	s.Equal(combatent.PhaseActiveTurn, state.Phase)
	goblin := state.Entities["goblin"]
	s.Equal(testutils.TestMaxEnergy-2-3, goblin.Energy, "parry cost plus reduced damage")
	s.Equal(1, goblin.Wounds[combatent.WoundBlunt])
	s.False(goblin.ReactionAvailable)
}

func (s *OrchestratorTestSuite) TestCancelledActionKeepsAllCosts() {
	combatID := s.startedCombat(0)

	_, err := s.orch.DeclareAction(s.ctx, &combat.DeclareActionInput{
		Meta:      meta(heroPlayer),
		CombatID:  combatID,
		EntityID:  "hero",
		AbilityID: "strike",
		TargetID:  "goblin",
	})
	s.Require().NoError(err)

	reacted, err := s.orch.DeclareReaction(s.ctx, &combat.DeclareReactionInput{
		Meta:       meta(gobPlayer),
		CombatID:   combatID,
		EntityID:   "goblin",
		ReactionID: "disrupt",
	})
	s.Require().NoError(err)
	s.Require().NotNil(reacted.Resolution)
	s.True(reacted.Resolution.Cancelled)

	state := s.getState(combatID)
	s.Equal(testutils.TestMaxAP-2, state.Entities["hero"].AP,
		"the cancelled strike's costs are never refunded")
	s.Equal(testutils.TestMaxEnergy-1, state.Entities["hero"].Energy)
	s.Equal(testutils.TestMaxAP-1, state.Entities["goblin"].AP)
	s.Equal(testutils.TestMaxEnergy-5, state.Entities["goblin"].Energy)
	s.Equal(testutils.TestMaxEnergy, state.Entities["goblin"].Energy+5,
		"the goblin took no strike damage")
}

func (s *OrchestratorTestSuite) TestEndTurn_AdvancesInitiative() {
	combatID := s.startedCombat(0)

	_, err := s.orch.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
	})
	s.Require().Error(err, "only the active entity may end the turn")
	s.Equal(errors.CodeWrongTurn, errors.GetCode(err))

	out, err := s.orch.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)
	s.Equal("goblin", out.NextEntityID)
	s.Equal(1, out.Round)

	out, err = s.orch.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
	})
	s.Require().NoError(err)
	s.Equal("hero", out.NextEntityID)
	s.Equal(2, out.Round, "the order wrapped into a new round")
}

func (s *OrchestratorTestSuite) TestVersionBumpsOncePerAcceptedMutation() {
	combatID := s.startedCombat(0)
	before := s.getState(combatID).Version

	_, err := s.orch.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
	})
	s.Require().Error(err)
	s.Equal(before, s.getState(combatID).Version, "rejections never bump the version")

	_, err = s.orch.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)
	s.Equal(before+1, s.getState(combatID).Version)
}

func (s *OrchestratorTestSuite) TestSurvivalFlow_EndureThenDeath() {
	// the goblin enters with five energy: one strike empties it
	combatID := s.startedCombat(5)

	_, err := s.orch.DeclareAction(s.ctx, &combat.DeclareActionInput{
		Meta:      meta(heroPlayer),
		CombatID:  combatID,
		EntityID:  "hero",
		AbilityID: "strike",
		TargetID:  "goblin",
	})
	s.Require().NoError(err)

	// nobody reacts; the GM forces the window closed
	_, err = s.orch.ResolveReactions(s.ctx, &combat.ResolveReactionsInput{
		Meta:     meta(gm),
		CombatID: combatID,
	})
	s.Require().NoError(err)

	state := s.getState(combatID)
	s.Equal(combatent.PhaseEndureRoll, state.Phase)
	s.Require().NotNil(state.PendingSurvival)
	s.Equal("goblin", state.PendingSurvival.EntityID)
	s.Equal(0, state.Entities["goblin"].Energy)

	// a failed endure roll drops the goblin unconscious
	endure, err := s.orch.SubmitSurvival(s.ctx, &combat.SubmitSurvivalInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
		Roll:     11,
	})
	s.Require().NoError(err)
	s.Equal(combatent.SurvivalEndure, endure.Kind)
	s.False(endure.Success)

	state = s.getState(combatID)
	s.Equal(combatent.PhaseActiveTurn, state.Phase)
	s.True(state.Entities["goblin"].Unconscious)
	s.True(state.Entities["goblin"].Alive)

	// next round: the unconscious goblin is skipped
	_, err = s.orch.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)
	state = s.getState(combatID)
	s.Equal("hero", state.ActiveEntityID)
	s.Equal(2, state.Round)

	// wounding the unconscious goblin forces a death check; there are no
	// eligible reactors left, so the strike resolves immediately
	declared, err := s.orch.DeclareAction(s.ctx, &combat.DeclareActionInput{
		Meta:      meta(heroPlayer),
		CombatID:  combatID,
		EntityID:  "hero",
		AbilityID: "strike",
		TargetID:  "goblin",
	})
	s.Require().NoError(err)
	s.False(declared.WindowOpened)

	state = s.getState(combatID)
	s.Equal(combatent.PhaseDeathCheck, state.Phase)

	death, err := s.orch.SubmitSurvival(s.ctx, &combat.SubmitSurvivalInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
		Roll:     9,
	})
	s.Require().NoError(err)
	s.Equal(combatent.SurvivalDeath, death.Kind)
	s.False(death.Success)
	s.True(death.Defeated)

	// the last enemy fell: the combat completes in victory
	state = s.getState(combatID)
	s.Equal(combatent.PhaseCompleted, state.Phase)
	s.Equal(combatent.EndVictory, state.EndReason)
	s.False(state.Entities["goblin"].Alive)
}

func (s *OrchestratorTestSuite) TestSurvival_EndureSuccessRestoresOneEnergy() {
	combatID := s.startedCombat(5)

	_, err := s.orch.DeclareAction(s.ctx, &combat.DeclareActionInput{
		Meta:      meta(heroPlayer),
		CombatID:  combatID,
		EntityID:  "hero",
		AbilityID: "strike",
		TargetID:  "goblin",
	})
	s.Require().NoError(err)
	_, err = s.orch.ResolveReactions(s.ctx, &combat.ResolveReactionsInput{
		Meta:     meta(gm),
		CombatID: combatID,
	})
	s.Require().NoError(err)

	out, err := s.orch.SubmitSurvival(s.ctx, &combat.SubmitSurvivalInput{
		Meta:     meta(gobPlayer),
		CombatID: combatID,
		EntityID: "goblin",
		Roll:     12,
	})
	s.Require().NoError(err)
	s.True(out.Success)

	state := s.getState(combatID)
	s.Equal(1, state.Entities["goblin"].Energy)
	s.False(state.Entities["goblin"].Unconscious)
}

func (s *OrchestratorTestSuite) TestChanneling_StartAndAbortKeepsCosts() {
	combatID := s.startedCombat(0)

	started, err := s.orch.StartChanneling(s.ctx, &combat.StartChannelingInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
		SpellID:  "firestorm",
		AP:       2,
		Energy:   8,
	})
	s.Require().NoError(err)
	s.Equal(10, started.Progress.Invested())
	s.InDelta(float64(10)/30, started.Progress.Progress, 0.001)

	state := s.getState(combatID)
	s.True(state.Entities["hero"].Channeling)
	s.Equal(testutils.TestMaxAP-2, state.Entities["hero"].AP)
	s.Equal(testutils.TestMaxEnergy-8, state.Entities["hero"].Energy)

	aborted, err := s.orch.AbortChanneling(s.ctx, &combat.AbortChannelingInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)
	s.True(aborted.Aborted)

	state = s.getState(combatID)
	hero := state.Entities["hero"]
	s.False(hero.Channeling)
	s.Empty(state.PendingChanneling)
	s.Equal(testutils.TestMaxEnergy-8, hero.Energy, "a voluntary abort takes no blowback")
	s.Empty(hero.Wounds)
}

func (s *OrchestratorTestSuite) TestContest_FullExchange() {
	combatID := s.startedCombat(0)

	initiated, err := s.orch.InitiateContest(s.ctx, &combat.InitiateContestInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
		TargetID: "goblin",
		Skill:    "grapple",
		Domain:   combatent.DomainPhysical,
		Roll:     14,
	})
	s.Require().NoError(err)
	s.Equal(combatent.ContestAwaitingDefense, initiated.Contest.Status)
	s.Equal(14, initiated.Contest.InitiatorTotal)

	responded, err := s.orch.RespondContest(s.ctx, &combat.RespondContestInput{
		Meta:      meta(gobPlayer),
		CombatID:  combatID,
		ContestID: initiated.Contest.ID,
		Roll:      4,
		Domain:    combatent.DomainPhysical,
	})
	s.Require().NoError(err)
	s.Equal(combatent.ContestResolved, responded.Contest.Status)
	s.Equal("hero", responded.Contest.WinnerID)
	s.Equal(10, responded.Contest.Margin)
	s.Equal(combatent.TierVicious, responded.Contest.Tier)
	s.Empty(s.getState(combatID).PendingContests)
}

func (s *OrchestratorTestSuite) TestCheck_TargetNumberWithheldUntilResolved() {
	combatID := s.startedCombat(0)
	target := 12

	requested, err := s.orch.RequestCheck(s.ctx, &combat.RequestCheckInput{
		Meta:         meta(gm),
		CombatID:     combatID,
		EntityID:     "hero",
		Skill:        "perception",
		Domain:       combatent.DomainMental,
		TargetNumber: &target,
	})
	s.Require().NoError(err)

	submitted, err := s.orch.SubmitCheck(s.ctx, &combat.SubmitCheckInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		CheckID:  requested.CheckID,
		Roll:     12,
	})
	s.Require().NoError(err)
	s.Require().NotNil(submitted.Check.Success)
	s.True(*submitted.Check.Success)
	s.Equal(12, submitted.Check.Total)
}

func (s *OrchestratorTestSuite) TestCheck_RequestedDomainDrivesWoundPenalty() {
	created, err := s.orch.CreateCombat(s.ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	s.Require().NoError(err)
	combatID := created.State.CombatID

	hero := testutils.CreateTestEntity("hero", combatent.FactionAlly)
	hero.Wounds = map[combatent.WoundType]int{combatent.WoundMental: 1}
	_, err = s.orch.JoinLobby(s.ctx, &combat.JoinLobbyInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		Entity:   hero,
	})
	s.Require().NoError(err)

	// the GM files an unlisted skill under the mental domain
	requested, err := s.orch.RequestCheck(s.ctx, &combat.RequestCheckInput{
		Meta:     meta(gm),
		CombatID: combatID,
		EntityID: "hero",
		Skill:    "athletics",
		Domain:   combatent.DomainMental,
	})
	s.Require().NoError(err)
	s.Equal(combatent.DomainMental, s.getState(combatID).PendingChecks[requested.CheckID].Domain)

	submitted, err := s.orch.SubmitCheck(s.ctx, &combat.SubmitCheckInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		CheckID:  requested.CheckID,
		Roll:     10,
	})
	s.Require().NoError(err)
	s.Equal(combatent.DomainMental, submitted.Check.Domain)
	s.Equal(7, submitted.Check.Total, "the mental wound penalty applies")

	// with no domain given, the skill's own domain is used
	requested, err = s.orch.RequestCheck(s.ctx, &combat.RequestCheckInput{
		Meta:     meta(gm),
		CombatID: combatID,
		EntityID: "hero",
		Skill:    "faith",
	})
	s.Require().NoError(err)
	s.Equal(combatent.DomainSpiritual, s.getState(combatID).PendingChecks[requested.CheckID].Domain)
}

func (s *OrchestratorTestSuite) TestContestRollsBoundedByDieSize() {
	combatID := s.startedCombat(0)

	_, err := s.orch.InitiateContest(s.ctx, &combat.InitiateContestInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
		TargetID: "goblin",
		Skill:    "grapple",
		Roll:     21,
	})
	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))

	requested, err := s.orch.RequestCheck(s.ctx, &combat.RequestCheckInput{
		Meta:     meta(gm),
		CombatID: combatID,
		EntityID: "hero",
		Skill:    "perception",
	})
	s.Require().NoError(err)

	for _, roll := range []int{0, 21} {
		_, err = s.orch.SubmitCheck(s.ctx, &combat.SubmitCheckInput{
			Meta:     meta(heroPlayer),
			CombatID: combatID,
			CheckID:  requested.CheckID,
			Roll:     roll,
		})
		s.Require().Error(err)
		s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
	}
}

func (s *OrchestratorTestSuite) TestStatusExpiryIsLogged() {
	created, err := s.orch.CreateCombat(s.ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	s.Require().NoError(err)
	combatID := created.State.CombatID

	hero := testutils.CreateTestEntity("hero", combatent.FactionAlly)
	hero.Statuses = map[string]*combatent.Status{
		"STUNNED": {Key: "STUNNED", Stacks: 1, Remaining: 1},
	}
	_, err = s.orch.JoinLobby(s.ctx, &combat.JoinLobbyInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		Entity:   hero,
	})
	s.Require().NoError(err)
	_, err = s.orch.ToggleReady(s.ctx, &combat.ToggleReadyInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)
	_, err = s.orch.StartCombat(s.ctx, &combat.StartCombatInput{
		Meta:     meta(gm),
		CombatID: combatID,
		AutoRoll: true,
	})
	s.Require().NoError(err)

	// the status ran out at the start of the hero's first turn
	state := s.getState(combatID)
	s.Empty(state.Entities["hero"].Statuses)

	var expired *combatent.LogEntry
	for i := range state.Log {
		if state.Log[i].Type == combatent.LogStatusExpired {
			expired = &state.Log[i]
		}
	}
	s.Require().NotNil(expired)
	s.Equal("hero", expired.EntityID)
	s.Equal("STUNNED", expired.Data["status"])
}

func (s *OrchestratorTestSuite) TestGMOverride_ForceEndTurn() {
	combatID := s.startedCombat(0)

	_, err := s.orch.GMOverride(s.ctx, &combat.GMOverrideInput{
		Meta:     meta(gm),
		CombatID: combatID,
		Kind:     combat.OverrideForceEndTurn,
		Reason:   "player went afk",
	})
	s.Require().NoError(err)
	s.Equal("goblin", s.getState(combatID).ActiveEntityID)

	_, err = s.orch.GMOverride(s.ctx, &combat.GMOverrideInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		Kind:     combat.OverrideForceEndTurn,
	})
	s.Require().Error(err, "overrides are GM only")
	s.Equal(errors.CodePermissionDenied, errors.GetCode(err))
}

func (s *OrchestratorTestSuite) TestRunnerRevivesFromSnapshot() {
	combatID := s.startedCombat(0)

	// a fresh orchestrator over the same repository lazily revives the
	// combat from its snapshot
	tables, err := content.Default()
	s.Require().NoError(err)
	revived, err := combat.NewOrchestrator(&combat.Config{
		Repository:  s.repo,
		Publisher:   events.NewBus(),
		Content:     tables,
		IDGenerator: idgen.NewSequential("id2"),
		Roller:      roller.NewSequence(10),
		Clock:       s.clock,
	})
	s.Require().NoError(err)
	defer revived.Close()

	out, err := revived.EndTurn(s.ctx, &combat.EndTurnInput{
		Meta:     meta(heroPlayer),
		CombatID: combatID,
		EntityID: "hero",
	})
	s.Require().NoError(err)
	s.Equal("goblin", out.NextEntityID)
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

// TestSaveFailureRejectsAndReloads drives the orchestrator against a mocked
// repository: a failed save must reject the request and roll the runner
// back to the last persisted snapshot.
func TestSaveFailureRejectsAndReloads(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := combatrepomock.NewMockRepository(ctrl)
	pub := eventsmock.NewMockPublisher(ctrl)
	tables, err := content.Default()
	if err != nil {
		t.Fatalf("loading default content: %v", err)
	}

	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var snapshot []byte
	gomock.InOrder(
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *combatrepo.SaveInput) (*combatrepo.SaveOutput, error) {
				data, err := json.Marshal(in.State)
				if err != nil {
					return nil, err
				}
				snapshot = data
				return &combatrepo.SaveOutput{Version: in.State.Version}, nil
			}),
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).
			Return(nil, errors.Unavailable("redis is down")),
		repo.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ *combatrepo.GetInput) (*combatrepo.GetOutput, error) {
				var state combatent.State
				if err := json.Unmarshal(snapshot, &state); err != nil {
					return nil, err
				}
				return &combatrepo.GetOutput{State: &state}, nil
			}),
	)

	orch, err := combat.NewOrchestrator(&combat.Config{
		Repository:  repo,
		Publisher:   pub,
		Content:     tables,
		IDGenerator: idgen.NewSequential("id"),
		Roller:      roller.NewSequence(10),
		Clock:       clock.NewFixed(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("creating orchestrator: %v", err)
	}
	defer orch.Close()

	ctx := context.Background()
	created, err := orch.CreateCombat(ctx, &combat.CreateCombatInput{
		Meta:       meta(gm),
		CampaignID: "campaign-1",
	})
	if err != nil {
		t.Fatalf("creating combat: %v", err)
	}

	_, err = orch.JoinLobby(ctx, &combat.JoinLobbyInput{
		Meta:     meta(heroPlayer),
		CombatID: created.State.CombatID,
		Entity:   testutils.CreateTestEntity("hero", combatent.FactionAlly),
	})
	if err == nil {
		t.Fatal("expected the join to be rejected when the save fails")
	}

	out, err := orch.GetState(ctx, &combat.GetStateInput{CombatID: created.State.CombatID})
	if err != nil {
		t.Fatalf("getting state: %v", err)
	}
	if len(out.State.Entities) != 0 {
		t.Fatalf("rolled-back state still holds %d entities", len(out.State.Entities))
	}
	if out.State.Version != created.State.Version {
		t.Fatalf("version moved from %d to %d on a rejected request",
			created.State.Version, out.State.Version)
	}
}
