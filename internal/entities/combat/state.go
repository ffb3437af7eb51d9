// Package combat defines the data model for an in-progress combat. All
// structs are data only and JSON-serializable; the whole State is the unit
// of persistence and of STATE_SYNC replication. Rules and orchestration live
// in internal/rules and internal/orchestrators/combat.
package combat

import "time"

// SurvivalRoll is a forced endure or death roll blocking one entity
type SurvivalRoll struct {
	EntityID string       `json:"entityId"`
	Kind     SurvivalKind `json:"kind"`
	// ReturnPhase is restored once the roll is submitted
	ReturnPhase Phase `json:"returnPhase"`
}

// State is the root record for one active encounter: the only mutable truth
// about the fight. Exactly one serialized handler owns a State at a time;
// Version increments exactly once per accepted mutating request.
type State struct {
	CombatID   string `json:"combatId"`
	CampaignID string `json:"campaignId"`

	Phase     Phase `json:"phase"`
	Round     int   `json:"round"`
	TurnIndex int   `json:"turnIndex"`

	InitiativeMode    InitiativeMode    `json:"initiativeMode"`
	InitiativeEntries []InitiativeEntry `json:"initiativeEntries,omitempty"`
	InitiativeOrder   []string          `json:"initiativeOrder,omitempty"`
	ActiveEntityID    string            `json:"activeEntityId,omitempty"`

	Entities map[string]*Entity `json:"entities"`
	Grid     *HexGridState      `json:"grid"`

	PendingAction    *PendingAction    `json:"pendingAction,omitempty"`
	PendingReactions []PendingReaction `json:"pendingReactions,omitempty"`
	// ReactionWindowReactors lists the entities eligible to react when the
	// window opened; the window auto-closes once all have declared
	ReactionWindowReactors []string                       `json:"reactionWindowReactors,omitempty"`
	PendingChanneling map[string]*ChannelingProgress `json:"pendingChanneling,omitempty"`
	PendingContests   map[string]*SkillContest       `json:"pendingContests,omitempty"`
	PendingChecks     map[string]*SkillCheck         `json:"pendingChecks,omitempty"`
	PendingSurvival   *SurvivalRoll                  `json:"pendingSurvival,omitempty"`

	// TickedThisRound guards the exactly-once-per-round status tick
	TickedThisRound map[string]bool `json:"tickedThisRound,omitempty"`

	Log []LogEntry `json:"log"`

	Version  int64 `json:"version"`
	EventSeq int64 `json:"eventSeq"`

	EndReason EndReason `json:"endReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a combat in the lobby phase
func New(combatID, campaignID string, gridWidth, gridHeight int, now time.Time) *State {
	return &State{
		CombatID:          combatID,
		CampaignID:        campaignID,
		Phase:             PhaseLobby,
		InitiativeMode:    InitiativeIndividual,
		Entities:          make(map[string]*Entity),
		Grid:              NewHexGrid(gridWidth, gridHeight),
		PendingChanneling: make(map[string]*ChannelingProgress),
		PendingContests:   make(map[string]*SkillContest),
		PendingChecks:     make(map[string]*SkillCheck),
		TickedThisRound:   make(map[string]bool),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Entity returns the combatant with the given id
func (s *State) Entity(id string) (*Entity, bool) {
	e, ok := s.Entities[id]
	return e, ok
}

// ActiveEntity returns the entity whose turn it is
func (s *State) ActiveEntity() (*Entity, bool) {
	if s.ActiveEntityID == "" {
		return nil, false
	}
	return s.Entity(s.ActiveEntityID)
}

// Completed reports whether the combat reached its terminal phase
func (s *State) Completed() bool {
	return s.Phase == PhaseCompleted
}

// AppendLog appends a log entry, stamping sequence and round
func (s *State) AppendLog(entryType, entityID, message string, data map[string]any, at time.Time) {
	s.Log = append(s.Log, LogEntry{
		Seq:      len(s.Log) + 1,
		Type:     entryType,
		Round:    s.Round,
		EntityID: entityID,
		Message:  message,
		Data:     data,
		At:       at,
	})
}

// AliveCount returns how many entities of a faction can still fight
func (s *State) AliveCount(f Faction) int {
	n := 0
	for _, e := range s.Entities {
		if e.Faction == f && e.Alive {
			n++
		}
	}
	return n
}

// InitiativeRank returns an entity's position in the initiative order, or a
// rank past the end for entities not in the order.
func (s *State) InitiativeRank(entityID string) int {
	for i, id := range s.InitiativeOrder {
		if id == entityID {
			return i
		}
	}
	return len(s.InitiativeOrder)
}

// EntityRank resolves group-mode ranks: in group mode every member of a slot
// shares the slot's rank.
func (s *State) EntityRank(entityID string) int {
	if s.InitiativeMode != InitiativeGroup {
		return s.InitiativeRank(entityID)
	}
	e, ok := s.Entity(entityID)
	if !ok || e.GroupID == "" {
		return s.InitiativeRank(entityID)
	}
	for i, id := range s.InitiativeOrder {
		member, ok := s.Entity(id)
		if ok && member.GroupID == e.GroupID {
			return i
		}
	}
	return s.InitiativeRank(entityID)
}
