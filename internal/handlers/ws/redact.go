package ws

import (
	combatent "github.com/KirkDiggler/combat-api/internal/entities/combat"
	combatorch "github.com/KirkDiggler/combat-api/internal/orchestrators/combat"
)

// redactSnapshot strips GM-only information from an outbound snapshot.
// A pending skill check keeps its target number hidden from everyone but
// the GM until it resolves; the orchestrator hands out detached copies, so
// clearing fields here never touches live state.
func redactSnapshot(controllerID string, state *combatent.State) {
	if state == nil || controllerID == combatent.ControllerGM {
		return
	}
	for _, check := range state.PendingChecks {
		if check.Status == combatent.ContestPending {
			check.TargetNumber = nil
		}
	}
}

// redactResult applies snapshot redaction to command replies that carry a
// full state
func redactResult(controllerID string, data any) {
	switch out := data.(type) {
	case *combatorch.GetStateOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.CreateCombatOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.JoinLobbyOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.LeaveLobbyOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.StartCombatOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.RemoveEntityOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.EndCombatOutput:
		redactSnapshot(controllerID, out.State)
	case *combatorch.GMOverrideOutput:
		redactSnapshot(controllerID, out.State)
	}
}
