package combat

// ChannelingProgress accumulates multi-turn resources toward a spell's
// activation threshold. Destroyed on release, voluntary abort, or forced
// interruption; blowback is computed at destruction time.
type ChannelingProgress struct {
	EntityID          string  `json:"entityId"`
	SpellID           string  `json:"spellId"`
	AccumulatedAP     int     `json:"accumulatedAp"`
	AccumulatedEnergy int     `json:"accumulatedEnergy"`
	TotalCost         int     `json:"totalCost"`
	Progress          float64 `json:"progress"`
}

// Invested returns the total resources sunk into the channel so far
func (p *ChannelingProgress) Invested() int {
	return p.AccumulatedAP + p.AccumulatedEnergy
}
