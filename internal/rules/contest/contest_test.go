package contest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KirkDiggler/combat-api/internal/content"
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/rules/contest"
)

var tiers = content.Tiers{Wicked: 5, Vicious: 10, Brutal: 15}

func TestClassify_MarginBreakpoints(t *testing.T) {
	cases := []struct {
		margin int
		want   combat.CriticalTier
	}{
		{1, combat.TierNormal},
		{4, combat.TierNormal},
		{5, combat.TierWicked},
		{9, combat.TierWicked},
		{10, combat.TierVicious},
		{14, combat.TierVicious},
		{15, combat.TierBrutal},
		{30, combat.TierBrutal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, contest.Classify(tc.margin, tiers), "margin %d", tc.margin)
	}
}

func TestResolve_HigherTotalWins(t *testing.T) {
	c := &combat.SkillContest{
		InitiatorID:    "rogue-1",
		TargetID:       "guard-1",
		InitiatorTotal: 18,
		TargetTotal:    12,
	}

	out := contest.Resolve(c, tiers)

	assert.False(t, out.Draw)
	assert.Equal(t, "rogue-1", out.WinnerID)
	assert.Equal(t, "guard-1", out.LoserID)
	assert.Equal(t, 6, out.Margin)
	assert.Equal(t, combat.TierWicked, out.Tier)
}

func TestResolve_TargetCanWin(t *testing.T) {
	c := &combat.SkillContest{
		InitiatorID:    "rogue-1",
		TargetID:       "guard-1",
		InitiatorTotal: 7,
		TargetTotal:    23,
	}

	out := contest.Resolve(c, tiers)

	assert.Equal(t, "guard-1", out.WinnerID)
	assert.Equal(t, "rogue-1", out.LoserID)
	assert.Equal(t, 16, out.Margin)
	assert.Equal(t, combat.TierBrutal, out.Tier)
}

func TestResolve_ExactTieIsADraw(t *testing.T) {
	c := &combat.SkillContest{
		InitiatorID:    "rogue-1",
		TargetID:       "guard-1",
		InitiatorTotal: 14,
		TargetTotal:    14,
	}

	out := contest.Resolve(c, tiers)

	assert.True(t, out.Draw)
	assert.Empty(t, out.WinnerID)
	assert.Empty(t, out.LoserID)
	assert.Equal(t, combat.TierNormal, out.Tier)
}

func TestCheckSuccess(t *testing.T) {
	target := 12

	assert.True(t, contest.CheckSuccess(12, &target), "meeting the target succeeds")
	assert.False(t, contest.CheckSuccess(11, &target))
	assert.True(t, contest.CheckSuccess(1, nil), "informational checks always succeed")
}
