package combat

import (
	"github.com/KirkDiggler/rpg-toolkit/core"
)

// Status is an active condition on an entity. Stacks for the same key merge
// into one record; Remaining is in rounds, with Indefinite set when the
// status never expires on its own.
type Status struct {
	Key        string `json:"key"`
	Stacks     int    `json:"stacks"`
	Remaining  int    `json:"remaining,omitempty"`
	Indefinite bool   `json:"indefinite,omitempty"`
}

// Entity is a combatant record. Data only: derived values (wound penalties,
// effective resource caps) are computed by the rules packages, never stored.
type Entity struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Tier       Tier    `json:"tier"`
	Faction    Faction `json:"faction"`
	Controller string  `json:"controller"`

	AP        int `json:"ap"`
	MaxAP     int `json:"maxAp"`
	Energy    int `json:"energy"`
	MaxEnergy int `json:"maxEnergy"`

	Wounds   map[WoundType]int  `json:"wounds,omitempty"`
	Statuses map[string]*Status `json:"statuses,omitempty"`

	Skills map[string]int `json:"skills,omitempty"`

	Alive             bool `json:"alive"`
	Unconscious       bool `json:"unconscious"`
	Ready             bool `json:"ready"`
	ReactionAvailable bool `json:"reactionAvailable"`
	Channeling        bool `json:"channeling"`

	// GroupID shares an initiative slot in group mode
	GroupID string `json:"groupId,omitempty"`
}

// Ensure Entity satisfies the toolkit entity contract
var _ core.Entity = (*Entity)(nil)

// GetID implements core.Entity
func (e *Entity) GetID() string {
	return e.ID
}

// GetType implements core.Entity
func (e *Entity) GetType() string {
	return "combatant"
}

// WoundCount returns the count for one wound type
func (e *Entity) WoundCount(t WoundType) int {
	return e.Wounds[t]
}

// Controllable reports whether the controller may act for this entity. The
// GM controls everything.
func (e *Entity) Controllable(controller string) bool {
	return controller == ControllerGM || controller == e.Controller
}

// CanAct reports whether the entity is in a state to take actions
func (e *Entity) CanAct() bool {
	return e.Alive && !e.Unconscious
}

// SpendAP deducts AP, never below zero. Callers validate affordability first.
func (e *Entity) SpendAP(n int) {
	e.AP -= n
	if e.AP < 0 {
		e.AP = 0
	}
}

// SpendEnergy deducts Energy, never below zero
func (e *Entity) SpendEnergy(n int) {
	e.Energy -= n
	if e.Energy < 0 {
		e.Energy = 0
	}
}

// RestoreAP sets AP to the given per-turn allotment, clamped to [0, MaxAP]
func (e *Entity) RestoreAP(n int) {
	if n < 0 {
		n = 0
	}
	if n > e.MaxAP {
		n = e.MaxAP
	}
	e.AP = n
}

// GainEnergy adds Energy up to the given limit, which is itself clamped to
// MaxEnergy. Negative n drains energy, never below zero.
func (e *Entity) GainEnergy(n, limit int) {
	if limit > e.MaxEnergy {
		limit = e.MaxEnergy
	}
	e.Energy += n
	if e.Energy > limit {
		e.Energy = limit
	}
	if e.Energy < 0 {
		e.Energy = 0
	}
}
