package combat

import "time"

// LogEntry is one record in the append-only combat log
type LogEntry struct {
	Seq      int            `json:"seq"`
	Type     string         `json:"type"`
	Round    int            `json:"round"`
	EntityID string         `json:"entityId,omitempty"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

// Log entry types
const (
	LogCombatStarted      = "combat_started"
	LogCombatEnded        = "combat_ended"
	LogRoundStarted       = "round_started"
	LogTurnStarted        = "turn_started"
	LogTurnEnded          = "turn_ended"
	LogActionDeclared     = "action_declared"
	LogActionResolved     = "action_resolved"
	LogActionCancelled    = "action_cancelled"
	LogReactionDeclared   = "reaction_declared"
	LogReactionResolved   = "reaction_resolved"
	LogWoundsApplied      = "wounds_applied"
	LogStatusApplied      = "status_applied"
	LogStatusExpired      = "status_expired"
	LogStatusTicked       = "status_ticked"
	LogInitiativeRolled   = "initiative_rolled"
	LogInitiativeReady    = "initiative_ready"
	LogInitiativeModified = "initiative_modified"
	LogChannelingStarted  = "channeling_started"
	LogChannelingProgress = "channeling_progress"
	LogSpellReleased      = "spell_released"
	LogChannelingAborted  = "channeling_aborted"
	LogChannelingBroken   = "channeling_broken"
	LogContestInitiated   = "contest_initiated"
	LogContestResolved    = "contest_resolved"
	LogCheckRequested     = "check_requested"
	LogCheckResolved      = "check_resolved"
	LogEndureRolled       = "endure_rolled"
	LogDeathRolled        = "death_rolled"
	LogEntityJoined       = "entity_joined"
	LogEntityLeft         = "entity_left"
	LogEntityRemoved      = "entity_removed"
	LogEntityDefeated     = "entity_defeated"
	LogGMOverride         = "gm_override"
	LogMoved              = "moved"
	LogHazardSuffered     = "hazard_suffered"
	LogSurvivalRequired   = "survival_required"
)
