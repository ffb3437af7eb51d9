// Package ws is the JSON-over-WebSocket gateway. One connection serves one
// controller; a HELLO handshake binds the controller id, then each inbound
// command is routed to the orchestrator and answered with a RESULT or
// REJECTED frame carrying the command's request id. Subscribing to a combat
// streams its event feed, opened with a full STATE_SYNC snapshot.
package ws

import (
	"encoding/json"

	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// Protocol version, checked at handshake
const protocolVersion = 1

// Inbound message types
const (
	MsgHello              = "HELLO"
	MsgSubscribe          = "SUBSCRIBE"
	MsgGetState           = "GET_STATE"
	MsgCreateCombat       = "CREATE_COMBAT"
	MsgJoinLobby          = "JOIN_LOBBY"
	MsgLeaveLobby         = "LEAVE_LOBBY"
	MsgToggleReady        = "TOGGLE_READY"
	MsgStartCombat        = "START_COMBAT"
	MsgEndCombat          = "END_COMBAT"
	MsgRemoveEntity       = "REMOVE_ENTITY"
	MsgSubmitInitiative   = "SUBMIT_INITIATIVE"
	MsgModifyInitiative   = "MODIFY_INITIATIVE"
	MsgDeclareAction      = "DECLARE_ACTION"
	MsgDeclareReaction    = "DECLARE_REACTION"
	MsgResolveReactions   = "RESOLVE_REACTIONS"
	MsgEndTurn            = "END_TURN"
	MsgSubmitSurvival     = "SUBMIT_SURVIVAL"
	MsgStartChanneling    = "START_CHANNELING"
	MsgContinueChanneling = "CONTINUE_CHANNELING"
	MsgReleaseSpell       = "RELEASE_SPELL"
	MsgAbortChanneling    = "ABORT_CHANNELING"
	MsgInitiateContest    = "INITIATE_CONTEST"
	MsgRespondContest     = "RESPOND_CONTEST"
	MsgRequestCheck       = "REQUEST_CHECK"
	MsgSubmitCheck        = "SUBMIT_CHECK"
	MsgGMOverride         = "GM_OVERRIDE"
)

// Outbound frame types beyond the event stream
const (
	FrameWelcome  = "WELCOME"
	FrameResult   = "RESULT"
	FrameRejected = "REJECTED"
)

// Inbound is the envelope every client command arrives in
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	CombatID  string          `json:"combatId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hello is the handshake payload binding the connection to a controller
type Hello struct {
	ProtocolVersion int    `json:"protocolVersion"`
	ControllerID    string `json:"controllerId"`
}

// Welcome acknowledges the handshake
type Welcome struct {
	Type            string `json:"type"`
	ProtocolVersion int    `json:"protocolVersion"`
	ControllerID    string `json:"controllerId"`
}

// Result is a successful command reply
type Result struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	MsgType   string `json:"msgType"`
	Data      any    `json:"data,omitempty"`
}

// Rejected is an explicit command rejection. Every malformed or invalid
// command gets one of these; nothing is silently dropped.
type Rejected struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Command payloads

// CreateCombatPayload seeds a new combat lobby
type CreateCombatPayload struct {
	CampaignID string                       `json:"campaignId"`
	GridWidth  int                          `json:"gridWidth,omitempty"`
	GridHeight int                          `json:"gridHeight,omitempty"`
	Terrain    map[string]combatent.Terrain `json:"terrain,omitempty"`
	Mode       combatent.InitiativeMode     `json:"mode,omitempty"`
}

// JoinLobbyPayload adds an entity to the lobby
type JoinLobbyPayload struct {
	Entity   *combatent.Entity `json:"entity"`
	Position *combatent.Coord  `json:"position,omitempty"`
}

// EntityPayload covers the single-entity commands
type EntityPayload struct {
	EntityID string `json:"entityId"`
	Reason   string `json:"reason,omitempty"`
}

// StartCombatPayload starts the combat
type StartCombatPayload struct {
	AutoRoll bool `json:"autoRoll,omitempty"`
}

// EndCombatPayload force-ends the combat
type EndCombatPayload struct {
	Reason combatent.EndReason `json:"reason,omitempty"`
}

// RollPayload covers the submit-a-roll commands
type RollPayload struct {
	EntityID  string `json:"entityId,omitempty"`
	ContestID string `json:"contestId,omitempty"`
	CheckID   string `json:"checkId,omitempty"`
	Roll      int    `json:"roll"`
	Domain    combatent.SkillDomain `json:"domain,omitempty"`
}

// ModifyInitiativePayload replaces the initiative order
type ModifyInitiativePayload struct {
	Order  []string `json:"order"`
	Reason string   `json:"reason,omitempty"`
}

// DeclareActionPayload declares an ability use or movement
type DeclareActionPayload struct {
	EntityID   string            `json:"entityId"`
	AbilityID  string            `json:"abilityId,omitempty"`
	TargetID   string            `json:"targetId,omitempty"`
	MovementAP int               `json:"movementAp,omitempty"`
	Path       []combatent.Coord `json:"path,omitempty"`
}

// DeclareReactionPayload declares a reaction in an open window
type DeclareReactionPayload struct {
	EntityID   string `json:"entityId"`
	ReactionID string `json:"reactionId"`
}

// ChannelingPayload covers start/continue/release/abort channeling
type ChannelingPayload struct {
	EntityID string `json:"entityId"`
	SpellID  string `json:"spellId,omitempty"`
	TargetID string `json:"targetId,omitempty"`
	AP       int    `json:"ap,omitempty"`
	Energy   int    `json:"energy,omitempty"`
}

// InitiateContestPayload opens an opposed contest
type InitiateContestPayload struct {
	EntityID string                `json:"entityId"`
	TargetID string                `json:"targetId"`
	Skill    string                `json:"skill"`
	Domain   combatent.SkillDomain `json:"domain,omitempty"`
	Roll     int                   `json:"roll"`
}

// RequestCheckPayload asks an entity for a skill check
type RequestCheckPayload struct {
	EntityID     string                `json:"entityId"`
	Skill        string                `json:"skill"`
	Domain       combatent.SkillDomain `json:"domain,omitempty"`
	TargetNumber *int                  `json:"targetNumber,omitempty"`
}

// GMOverridePayload force-resolves a stalled window
type GMOverridePayload struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entityId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
