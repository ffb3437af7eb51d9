package combat

// InitiativeEntry is one combatant's (or group's) initiative roll. Entries
// are immutable after rolling except through an explicit GM override.
type InitiativeEntry struct {
	EntityID string `json:"entityId"`
	Roll     int    `json:"roll"`
	Skill    int    `json:"skill"`
	// EnergySnapshot is current Energy at roll time; the tie-break input
	EnergySnapshot int    `json:"energySnapshot"`
	GroupID        string `json:"groupId,omitempty"`
}
