package combat

// Phase is the top-level combat state machine phase
type Phase string

// Combat phases
const (
	PhaseLobby             Phase = "lobby"
	PhaseInitiativeRolling Phase = "initiative_rolling"
	PhaseInitiativeReady   Phase = "initiative_ready"
	PhaseActiveTurn        Phase = "active_turn"
	PhaseReactionWindow    Phase = "reaction_window"
	PhaseResolution        Phase = "resolution"
	PhaseEndureRoll        Phase = "endure_roll"
	PhaseDeathCheck        Phase = "death_check"
	PhaseCompleted         Phase = "completed"
)

// Tier drives resource scale for a combatant
type Tier string

// Entity tiers
const (
	TierMinion     Tier = "minion"
	TierFull       Tier = "full"
	TierLieutenant Tier = "lieutenant"
	TierHero       Tier = "hero"
)

// Faction determines which side an entity fights for
type Faction string

// Factions
const (
	FactionAlly    Faction = "ally"
	FactionEnemy   Faction = "enemy"
	FactionNeutral Faction = "neutral"
)

// ControllerGM is the controller id for the game master. Player controllers
// use the form "player:<id>".
const ControllerGM = "gm"

// WoundType is a typed, persistent damage accumulator
type WoundType string

// Wound types
const (
	WoundBlunt      WoundType = "blunt"
	WoundBurn       WoundType = "burn"
	WoundFreeze     WoundType = "freeze"
	WoundLaceration WoundType = "laceration"
	WoundMental     WoundType = "mental"
	WoundNecrosis   WoundType = "necrosis"
	WoundSpiritual  WoundType = "spiritual"
)

// WoundTypes lists every wound type in a stable order
var WoundTypes = []WoundType{
	WoundBlunt, WoundBurn, WoundFreeze, WoundLaceration,
	WoundMental, WoundNecrosis, WoundSpiritual,
}

// SkillDomain groups skills for wound penalty purposes
type SkillDomain string

// Skill domains
const (
	DomainPhysical  SkillDomain = "physical"
	DomainMental    SkillDomain = "mental"
	DomainSpiritual SkillDomain = "spiritual"
)

// ActionCategory discriminates the action union
type ActionCategory string

// Action categories
const (
	ActionMovement ActionCategory = "movement"
	ActionMartial  ActionCategory = "martial"
	ActionPsionic  ActionCategory = "psionic"
	ActionDivine   ActionCategory = "divine"
	ActionIldakar  ActionCategory = "ildakar"
	ActionItem     ActionCategory = "item"
	ActionReaction ActionCategory = "reaction"
)

// ActionStatus is the lifecycle state of a pending action
type ActionStatus string

// Action statuses
const (
	ActionPending   ActionStatus = "pending"
	ActionResolving ActionStatus = "resolving"
	ActionResolved  ActionStatus = "resolved"
	ActionCancelled ActionStatus = "cancelled"
)

// ReactionEffect is the closed set of effects a reaction may apply
type ReactionEffect string

// Reaction effects
const (
	EffectCancelAction ReactionEffect = "cancel_action"
	EffectModifyAction ReactionEffect = "modify_action"
	EffectApplyWounds  ReactionEffect = "apply_wounds"
	EffectApplyStatus  ReactionEffect = "apply_status"
	EffectReduceDamage ReactionEffect = "reduce_damage"
)

// ContestStatus tracks a skill contest or check lifecycle
type ContestStatus string

// Contest/check statuses
const (
	ContestPending         ContestStatus = "pending"
	ContestAwaitingDefense ContestStatus = "awaiting_defense"
	ContestRolled          ContestStatus = "rolled"
	ContestResolved        ContestStatus = "resolved"
	ContestAcknowledged    ContestStatus = "acknowledged"
)

// CriticalTier classifies a contest outcome by margin
type CriticalTier string

// Critical tiers
const (
	TierNormal  CriticalTier = "normal"
	TierWicked  CriticalTier = "wicked"
	TierVicious CriticalTier = "vicious"
	TierBrutal  CriticalTier = "brutal"
)

// Terrain classifies a hex for movement purposes
type Terrain string

// Terrain kinds. Absent entries in the terrain map default to normal.
const (
	TerrainNormal     Terrain = "normal"
	TerrainDifficult  Terrain = "difficult"
	TerrainHazardous  Terrain = "hazardous"
	TerrainImpassable Terrain = "impassable"
)

// EndReason records why a combat completed
type EndReason string

// End reasons
const (
	EndVictory EndReason = "victory"
	EndDefeat  EndReason = "defeat"
	EndGMEnded EndReason = "gm_ended"
)

// InitiativeMode selects individual or group initiative
type InitiativeMode string

// Initiative modes
const (
	InitiativeIndividual InitiativeMode = "individual"
	InitiativeGroup      InitiativeMode = "group"
)

// SurvivalKind distinguishes the forced sub-phase rolls
type SurvivalKind string

// Survival roll kinds
const (
	SurvivalEndure SurvivalKind = "endure"
	SurvivalDeath  SurvivalKind = "death"
)
