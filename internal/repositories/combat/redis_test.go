package combatrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	combatrepo "github.com/KirkDiggler/combat-api/internal/repositories/combat"
	"github.com/KirkDiggler/combat-api/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	repo    combatrepo.Repository
	cleanup func()
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.ctx = context.Background()

	repo, err := combatrepo.NewRedis(&combatrepo.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *RedisRepositoryTestSuite) newState(combatID, campaignID string) *combat.State {
	state := combat.New(combatID, campaignID, 10, 10, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	state.Entities["hero"] = testutils.CreateTestEntity("hero", combat.FactionAlly)
	return state
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetRoundTrip() {
	state := s.newState("combat-1", "campaign-1")
	state.Version = 3
	state.Phase = combat.PhaseActiveTurn
	state.Entities["hero"].Wounds = map[combat.WoundType]int{combat.WoundBurn: 2}

	saved, err := s.repo.Save(s.ctx, &combatrepo.SaveInput{State: state})
	s.Require().NoError(err)
	s.Equal(int64(3), saved.Version)

	got, err := s.repo.Get(s.ctx, &combatrepo.GetInput{CombatID: "combat-1"})
	s.Require().NoError(err)
	s.Equal("combat-1", got.State.CombatID)
	s.Equal("campaign-1", got.State.CampaignID)
	s.Equal(combat.PhaseActiveTurn, got.State.Phase)
	s.Equal(int64(3), got.State.Version)
	s.Require().Contains(got.State.Entities, "hero")
	s.Equal(2, got.State.Entities["hero"].Wounds[combat.WoundBurn])
}

func (s *RedisRepositoryTestSuite) TestSaveReplacesPreviousSnapshot() {
	state := s.newState("combat-1", "campaign-1")
	_, err := s.repo.Save(s.ctx, &combatrepo.SaveInput{State: state})
	s.Require().NoError(err)

	state.Version = 7
	state.Round = 4
	_, err = s.repo.Save(s.ctx, &combatrepo.SaveInput{State: state})
	s.Require().NoError(err)

	got, err := s.repo.Get(s.ctx, &combatrepo.GetInput{CombatID: "combat-1"})
	s.Require().NoError(err)
	s.Equal(int64(7), got.State.Version)
	s.Equal(4, got.State.Round)
}

func (s *RedisRepositoryTestSuite) TestGetNotFound() {
	_, err := s.repo.Get(s.ctx, &combatrepo.GetInput{CombatID: "missing"})
	s.Require().Error(err)
	s.Equal(errors.CodeNotFound, errors.GetCode(err))
}

func (s *RedisRepositoryTestSuite) TestListByCampaign() {
	for _, id := range []string{"combat-1", "combat-2"} {
		_, err := s.repo.Save(s.ctx, &combatrepo.SaveInput{State: s.newState(id, "campaign-1")})
		s.Require().NoError(err)
	}
	_, err := s.repo.Save(s.ctx, &combatrepo.SaveInput{State: s.newState("combat-3", "campaign-2")})
	s.Require().NoError(err)

	out, err := s.repo.ListByCampaign(s.ctx, &combatrepo.ListByCampaignInput{CampaignID: "campaign-1"})
	s.Require().NoError(err)
	s.ElementsMatch([]string{"combat-1", "combat-2"}, out.CombatIDs)
}

func (s *RedisRepositoryTestSuite) TestDeleteRemovesSnapshotAndIndexEntry() {
	_, err := s.repo.Save(s.ctx, &combatrepo.SaveInput{State: s.newState("combat-1", "campaign-1")})
	s.Require().NoError(err)

	out, err := s.repo.Delete(s.ctx, &combatrepo.DeleteInput{CombatID: "combat-1"})
	s.Require().NoError(err)
	s.True(out.Success)

	_, err = s.repo.Get(s.ctx, &combatrepo.GetInput{CombatID: "combat-1"})
	s.Equal(errors.CodeNotFound, errors.GetCode(err))

	list, err := s.repo.ListByCampaign(s.ctx, &combatrepo.ListByCampaignInput{CampaignID: "campaign-1"})
	s.Require().NoError(err)
	s.Empty(list.CombatIDs)
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	_, err := s.repo.Save(s.ctx, &combatrepo.SaveInput{})
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))

	_, err = s.repo.Save(s.ctx, &combatrepo.SaveInput{State: &combat.State{}})
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))

	_, err = s.repo.Get(s.ctx, &combatrepo.GetInput{})
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))

	_, err = s.repo.Delete(s.ctx, &combatrepo.DeleteInput{})
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
