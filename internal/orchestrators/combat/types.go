package combat

import (
	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// RequestMeta identifies a mutating request: who sent it and a correlation
// id. RequesterID is the controller id mapped upstream ("gm" or
// "player:<id>").
type RequestMeta struct {
	RequesterID string
	RequestID   string
}

// CreateCombatInput defines the input for creating a combat lobby
type CreateCombatInput struct {
	Meta       RequestMeta
	CampaignID string
	GridWidth  int
	GridHeight int
	// Terrain seeds the sparse terrain map, keyed by Coord.Key
	Terrain map[string]combatent.Terrain
	Mode    combatent.InitiativeMode
}

// CreateCombatOutput defines the output for creating a combat lobby
type CreateCombatOutput struct {
	State *combatent.State
}

// JoinLobbyInput adds a combatant to the lobby
type JoinLobbyInput struct {
	Meta     RequestMeta
	CombatID string
	Entity   *combatent.Entity
	Position *combatent.Coord
}

// JoinLobbyOutput defines the output for joining the lobby
type JoinLobbyOutput struct {
	State *combatent.State
}

// LeaveLobbyInput removes a combatant from the lobby
type LeaveLobbyInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
}

// LeaveLobbyOutput defines the output for leaving the lobby
type LeaveLobbyOutput struct {
	State *combatent.State
}

// ToggleReadyInput flips a combatant's ready flag in the lobby
type ToggleReadyInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
}

// ToggleReadyOutput defines the output for toggling ready
type ToggleReadyOutput struct {
	Ready bool
}

// StartCombatInput starts the combat. GM only.
type StartCombatInput struct {
	Meta     RequestMeta
	CombatID string
	// AutoRoll rolls initiative server-side for every combatant
	AutoRoll bool
}

// StartCombatOutput defines the output for starting combat
type StartCombatOutput struct {
	State *combatent.State
}

// SubmitInitiativeInput records one entity's initiative roll
type SubmitInitiativeInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	Roll     int
}

// SubmitInitiativeOutput defines the output for submitting initiative
type SubmitInitiativeOutput struct {
	// Ready is set once every required roll is in
	Ready bool
	Order []string
}

// ModifyInitiativeInput replaces the initiative order wholesale. GM only;
// logged with the reason.
type ModifyInitiativeInput struct {
	Meta     RequestMeta
	CombatID string
	Order    []string
	Reason   string
}

// ModifyInitiativeOutput defines the output for modifying initiative
type ModifyInitiativeOutput struct {
	Order []string
}

// DeclareActionInput declares the active entity's action. Ability actions
// carry AbilityID and TargetID; movement carries MovementAP and Path.
type DeclareActionInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string

	AbilityID string
	TargetID  string

	MovementAP int
	Path       []combatent.Coord
}

// DeclareActionOutput defines the output for declaring an action
type DeclareActionOutput struct {
	Action *combatent.PendingAction
	// WindowOpened is set when the declaration opened a reaction window
	// instead of resolving immediately
	WindowOpened bool
	Resolution   *ResolutionSummary
}

// DeclareReactionInput declares a reaction against the pending action
type DeclareReactionInput struct {
	Meta       RequestMeta
	CombatID   string
	EntityID   string
	ReactionID string
}

// DeclareReactionOutput defines the output for declaring a reaction
type DeclareReactionOutput struct {
	Reaction *combatent.PendingReaction
	// Resolution is set when this was the last eligible reactor and the
	// window closed immediately
	Resolution *ResolutionSummary
}

// ResolveReactionsInput force-closes the reaction window. GM only.
type ResolveReactionsInput struct {
	Meta     RequestMeta
	CombatID string
}

// ResolveReactionsOutput defines the output for resolving reactions
type ResolveReactionsOutput struct {
	Resolution *ResolutionSummary
}

// ResolutionSummary reports the outcome of resolving the pending action
type ResolutionSummary struct {
	Cancelled     bool
	ActionStatus  combatent.ActionStatus
	TargetID      string
	EnergyLost    int
	WoundsApplied int
	StatusApplied string
	Moved         *combatent.Coord
}

// EndTurnInput ends the active entity's turn
type EndTurnInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
}

// EndTurnOutput defines the output for ending a turn
type EndTurnOutput struct {
	NextEntityID string
	Round        int
	// Completed is set when ending the turn ended the combat
	Completed bool
}

// StartChannelingInput begins channeling a spell with an opening
// contribution
type StartChannelingInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	SpellID  string
	AP       int
	Energy   int
}

// StartChannelingOutput defines the output for starting channeling
type StartChannelingOutput struct {
	Progress *combatent.ChannelingProgress
}

// ContinueChannelingInput adds this turn's contribution
type ContinueChannelingInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	AP       int
	Energy   int
}

// ContinueChannelingOutput defines the output for continuing channeling
type ContinueChannelingOutput struct {
	Progress *combatent.ChannelingProgress
}

// ReleaseSpellInput releases a fully channeled spell
type ReleaseSpellInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	TargetID string
}

// ReleaseSpellOutput defines the output for releasing a spell
type ReleaseSpellOutput struct {
	SpellID    string
	Resolution *ResolutionSummary
}

// AbortChannelingInput voluntarily abandons a channel. No blowback.
type AbortChannelingInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
}

// AbortChannelingOutput defines the output for aborting a channel
type AbortChannelingOutput struct {
	Aborted bool
}

// InitiateContestInput starts an opposed skill contest
type InitiateContestInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	TargetID string
	Skill    string
	Domain   combatent.SkillDomain
	Roll     int
}

// InitiateContestOutput defines the output for initiating a contest
type InitiateContestOutput struct {
	Contest *combatent.SkillContest
}

// RespondContestInput submits the defender's roll
type RespondContestInput struct {
	Meta      RequestMeta
	CombatID  string
	ContestID string
	Roll      int
	Domain    combatent.SkillDomain
}

// RespondContestOutput defines the output for responding to a contest
type RespondContestOutput struct {
	Contest *combatent.SkillContest
}

// RequestCheckInput asks one entity for a skill check. GM only. The target
// number is recorded but withheld from outbound payloads until resolution.
type RequestCheckInput struct {
	Meta         RequestMeta
	CombatID     string
	EntityID     string
	Skill        string
	Domain       combatent.SkillDomain
	TargetNumber *int
}

// RequestCheckOutput defines the output for requesting a check
type RequestCheckOutput struct {
	CheckID string
}

// SubmitCheckInput submits the rolling player's roll
type SubmitCheckInput struct {
	Meta     RequestMeta
	CombatID string
	CheckID  string
	Roll     int
}

// SubmitCheckOutput defines the output for submitting a check
type SubmitCheckOutput struct {
	Check *combatent.SkillCheck
}

// SubmitSurvivalInput submits a forced endure or death roll
type SubmitSurvivalInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	Roll     int
}

// SubmitSurvivalOutput defines the output for a survival roll
type SubmitSurvivalOutput struct {
	Kind    combatent.SurvivalKind
	Success bool
	// Defeated is set when a failed death check killed the entity
	Defeated bool
}

// RemoveEntityInput removes a combatant mid-fight. GM only.
type RemoveEntityInput struct {
	Meta     RequestMeta
	CombatID string
	EntityID string
	Reason   string
}

// RemoveEntityOutput defines the output for removing an entity
type RemoveEntityOutput struct {
	State *combatent.State
}

// EndCombatInput ends the combat. GM only.
type EndCombatInput struct {
	Meta     RequestMeta
	CombatID string
	Reason   combatent.EndReason
}

// EndCombatOutput defines the output for ending combat
type EndCombatOutput struct {
	State *combatent.State
}

// GMOverrideKind selects what a GM override forces
type GMOverrideKind string

// GM override kinds
const (
	OverrideCancelAction     GMOverrideKind = "cancel_action"
	OverrideForceEndTurn     GMOverrideKind = "force_end_turn"
	OverrideClearSurvival    GMOverrideKind = "clear_survival"
	OverrideCancelChanneling GMOverrideKind = "cancel_channeling"
)

// GMOverrideInput force-resolves a stalled pending window. GM only; every
// override is logged with the GM id and optional reason for audit.
type GMOverrideInput struct {
	Meta     RequestMeta
	CombatID string
	Kind     GMOverrideKind
	EntityID string
	Reason   string
}

// GMOverrideOutput defines the output for a GM override
type GMOverrideOutput struct {
	State *combatent.State
}

// GetStateInput requests the current snapshot. Pure read.
type GetStateInput struct {
	CombatID string
}

// GetStateOutput carries the full snapshot plus version
type GetStateOutput struct {
	State   *combatent.State
	Version int64
}
