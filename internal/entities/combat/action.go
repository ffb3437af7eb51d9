package combat

import "time"

// Cost is the resource price of an action or reaction
type Cost struct {
	AP     int `json:"ap"`
	Energy int `json:"energy"`
}

// DamageSpec describes the harm an action inflicts on its target
type DamageSpec struct {
	Energy     int       `json:"energy,omitempty"`
	WoundType  WoundType `json:"woundType,omitempty"`
	WoundCount int       `json:"woundCount,omitempty"`
}

// StatusSpec describes a status an action or reaction applies
type StatusSpec struct {
	Key        string `json:"key"`
	Stacks     int    `json:"stacks"`
	Duration   int    `json:"duration,omitempty"`
	Indefinite bool   `json:"indefinite,omitempty"`
}

// PendingAction is the one action being resolved combat-wide. The Category
// tag discriminates which payload fields are meaningful: movement carries
// Path, the attack categories carry TargetID plus Damage/Status from the
// ability definition.
type PendingAction struct {
	ID       string         `json:"id"`
	EntityID string         `json:"entityId"`
	Category ActionCategory `json:"category"`
	// AbilityID keys the content table the action was declared from
	AbilityID string `json:"abilityId,omitempty"`
	TargetID  string `json:"targetId,omitempty"`
	Path      []Coord `json:"path,omitempty"`

	Cost          Cost         `json:"cost"`
	Interruptible bool         `json:"interruptible"`
	Status        ActionStatus `json:"status"`

	Damage      *DamageSpec `json:"damage,omitempty"`
	ApplyStatus *StatusSpec `json:"applyStatus,omitempty"`

	DeclaredAt time.Time `json:"declaredAt"`
}

// PendingReaction is one declared response to an interruptible action.
// Reactions are resolved together, in initiative order, when the window
// closes.
type PendingReaction struct {
	ID             string         `json:"id"`
	EntityID       string         `json:"entityId"`
	ReactionID     string         `json:"reactionId"`
	TargetActionID string         `json:"targetActionId"`
	Cost           Cost           `json:"cost"`
	Effect         ReactionEffect `json:"effect"`

	Wounds *DamageSpec `json:"wounds,omitempty"`
	Status *StatusSpec `json:"status,omitempty"`
	Reduce int         `json:"reduce,omitempty"`

	DeclaredAt time.Time `json:"declaredAt"`
}
