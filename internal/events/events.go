// Package events defines the outbound replication protocol: either a full
// STATE_SYNC snapshot or narrow deltas carrying just what changed. Every
// event belongs to one combat and carries that combat's monotonically
// increasing sequence number; clients treat deltas as authoritative only
// while contiguous, and re-sync on a gap.
package events

import (
	"encoding/json"
	"time"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// Type discriminates outbound events
type Type string

// Outbound event types
const (
	TypeStateSync          Type = "STATE_SYNC"
	TypeCombatStarted      Type = "COMBAT_STARTED"
	TypeCombatEnded        Type = "COMBAT_ENDED"
	TypeRoundStarted       Type = "ROUND_STARTED"
	TypeTurnStarted        Type = "TURN_STARTED"
	TypeTurnEnded          Type = "TURN_ENDED"
	TypeActionDeclared     Type = "ACTION_DECLARED"
	TypeReactionDeclared   Type = "REACTION_DECLARED"
	TypeActionResolved     Type = "ACTION_RESOLVED"
	TypeWoundsApplied      Type = "WOUNDS_APPLIED"
	TypeStatusApplied      Type = "STATUS_APPLIED"
	TypeEntityUpdated      Type = "ENTITY_UPDATED"
	TypeEntityRemoved      Type = "ENTITY_REMOVED"
	TypeInitiativeRolled   Type = "INITIATIVE_ROLLED"
	TypeInitiativeReady    Type = "INITIATIVE_READY"
	TypeInitiativeModified Type = "INITIATIVE_MODIFIED"
	TypeChannelingStarted  Type = "CHANNELING_STARTED"
	TypeChannelingProgress Type = "CHANNELING_PROGRESS"
	TypeSpellReleased      Type = "SPELL_RELEASED"
	TypeChannelingEnded    Type = "CHANNELING_ENDED"
	TypeContestInitiated   Type = "CONTEST_INITIATED"
	TypeContestResolved    Type = "CONTEST_RESOLVED"
	TypeCheckRequested     Type = "CHECK_REQUESTED"
	TypeCheckResolved      Type = "CHECK_RESOLVED"
	TypeSurvivalRequired   Type = "SURVIVAL_REQUIRED"
	TypeSurvivalResolved   Type = "SURVIVAL_RESOLVED"
	TypeLobbyUpdated       Type = "LOBBY_UPDATED"
	TypeGMOverride         Type = "GM_OVERRIDE"
)

// Event is one outbound message for one combat
type Event struct {
	Type     Type   `json:"type"`
	CombatID string `json:"combatId"`
	Sequence int64  `json:"sequence"`
	At       time.Time `json:"at"`
	Payload  any    `json:"payload,omitempty"`
}

// Envelope is the wire form of an Event with the payload still raw, used by
// subscribers that route without decoding payloads.
type Envelope struct {
	Type     Type            `json:"type"`
	CombatID string          `json:"combatId"`
	Sequence int64           `json:"sequence"`
	At       time.Time       `json:"at"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// StateSync carries the complete snapshot plus its version
type StateSync struct {
	State   *combat.State `json:"state"`
	Version int64         `json:"version"`
}

// TurnStarted announces the active entity's turn
type TurnStarted struct {
	EntityID  string `json:"entityId"`
	Round     int    `json:"round"`
	TurnIndex int    `json:"turnIndex"`
	AP        int    `json:"ap"`
	Energy    int    `json:"energy"`
}

// RoundStarted announces a new round
type RoundStarted struct {
	Round int `json:"round"`
}

// EntityUpdated carries one entity's changed record
type EntityUpdated struct {
	Entity *combat.Entity `json:"entity"`
}

// WoundsApplied reports wounds and energy loss on one entity
type WoundsApplied struct {
	EntityID   string           `json:"entityId"`
	WoundType  combat.WoundType `json:"woundType,omitempty"`
	Wounds     int              `json:"wounds,omitempty"`
	EnergyLost int              `json:"energyLost,omitempty"`
}

// CheckRequested announces a pending skill check. The target number is
// deliberately absent: it is withheld from the rolling player until the
// check resolves.
type CheckRequested struct {
	CheckID  string `json:"checkId"`
	EntityID string `json:"entityId"`
	Skill    string `json:"skill"`
}

// CheckResolved reveals the full check outcome
type CheckResolved struct {
	Check *combat.SkillCheck `json:"check"`
}
