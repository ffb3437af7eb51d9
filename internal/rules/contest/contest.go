// Package contest arbitrates opposed skill contests and GM-requested skill
// checks. The engine only compares totals and classifies margins against
// content-defined breakpoints; the breakpoints themselves are data.
package contest

import (
	"github.com/KirkDiggler/combat-api/internal/content"
	"github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// Outcome is the resolution of an opposed contest
type Outcome struct {
	WinnerID string
	LoserID  string
	Margin   int
	Tier     combat.CriticalTier
	Draw     bool
}

// Classify maps a margin onto a critical tier using the content breakpoints
func Classify(margin int, tiers content.Tiers) combat.CriticalTier {
	switch {
	case margin >= tiers.Brutal:
		return combat.TierBrutal
	case margin >= tiers.Vicious:
		return combat.TierVicious
	case margin >= tiers.Wicked:
		return combat.TierWicked
	default:
		return combat.TierNormal
	}
}

// Resolve decides an opposed contest. Winner is the higher total; an exact
// tie is a draw with no winner and tier normal.
func Resolve(c *combat.SkillContest, tiers content.Tiers) Outcome {
	if c.InitiatorTotal == c.TargetTotal {
		return Outcome{Draw: true, Tier: combat.TierNormal}
	}
	out := Outcome{}
	if c.InitiatorTotal > c.TargetTotal {
		out.WinnerID = c.InitiatorID
		out.LoserID = c.TargetID
		out.Margin = c.InitiatorTotal - c.TargetTotal
	} else {
		out.WinnerID = c.TargetID
		out.LoserID = c.InitiatorID
		out.Margin = c.TargetTotal - c.InitiatorTotal
	}
	out.Tier = Classify(out.Margin, tiers)
	return out
}

// CheckSuccess evaluates a skill check against its optional target number.
// With no target number the check is informational and always "succeeds".
func CheckSuccess(total int, targetNumber *int) bool {
	if targetNumber == nil {
		return true
	}
	return total >= *targetNumber
}
