// Package initiative orders combatants for a round. Ordering key: roll
// (skill-modified) descending, then the energy snapshot taken at roll time
// descending, then entity id ascending as a deliberate, stable fallback so
// the order is fully deterministic.
package initiative

import (
	"sort"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// Less reports whether a acts before b
func Less(a, b combat.InitiativeEntry) bool {
	if a.Roll != b.Roll {
		return a.Roll > b.Roll
	}
	if a.EnergySnapshot != b.EnergySnapshot {
		return a.EnergySnapshot > b.EnergySnapshot
	}
	return a.EntityID < b.EntityID
}

// Order computes the initiative order from the recorded entries. In group
// mode, entities sharing a GroupID share one slot: the group's entry is the
// best roll recorded among its members, and members act consecutively in
// entity-id order. Entries without a group id keep individual slots either
// way.
func Order(entries []combat.InitiativeEntry, mode combat.InitiativeMode) []string {
	if mode != combat.InitiativeGroup {
		sorted := make([]combat.InitiativeEntry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool { return Less(sorted[i], sorted[j]) })
		order := make([]string, len(sorted))
		for i, e := range sorted {
			order[i] = e.EntityID
		}
		return order
	}

	type slot struct {
		best    combat.InitiativeEntry
		members []string
	}
	slots := make(map[string]*slot)
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		key := e.GroupID
		if key == "" {
			key = "entity:" + e.EntityID
		}
		s, ok := slots[key]
		if !ok {
			slots[key] = &slot{best: e, members: []string{e.EntityID}}
			keys = append(keys, key)
			continue
		}
		s.members = append(s.members, e.EntityID)
		if Less(e, s.best) {
			s.best = e
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return Less(slots[keys[i]].best, slots[keys[j]].best)
	})

	var order []string
	for _, key := range keys {
		members := slots[key].members
		sort.Strings(members)
		order = append(order, members...)
	}
	return order
}

// Required returns the entity ids that still owe an initiative roll
func Required(s *combat.State) []string {
	rolled := make(map[string]bool, len(s.InitiativeEntries))
	for _, e := range s.InitiativeEntries {
		rolled[e.EntityID] = true
		// one roll covers the whole group in group mode
		if s.InitiativeMode == combat.InitiativeGroup && e.GroupID != "" {
			for id, ent := range s.Entities {
				if ent.GroupID == e.GroupID {
					rolled[id] = true
				}
			}
		}
	}
	var missing []string
	for id, ent := range s.Entities {
		if ent.Alive && !rolled[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
