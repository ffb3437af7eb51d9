package ws

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/combat-api/internal/errors"
	combatorch "github.com/KirkDiggler/combat-api/internal/orchestrators/combat"
)

// unmarshalPayload decodes a command payload, treating absence as an empty
// object so zero-payload commands stay terse on the wire
func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.InvalidArgumentf("malformed payload: %v", err)
	}
	return nil
}

// route dispatches one decoded command to the orchestrator
func (h *Handler) route(ctx context.Context, sess *session, in *Inbound) {
	meta := combatorch.RequestMeta{
		RequesterID: sess.controllerID,
		RequestID:   in.RequestID,
	}

	var (
		data any
		err  error
	)
	switch in.Type {
	case MsgSubscribe:
		h.subscribe(ctx, sess, in.RequestID, in.CombatID)
		return

	case MsgGetState:
		data, err = h.svc.GetState(ctx, &combatorch.GetStateInput{CombatID: in.CombatID})

	case MsgCreateCombat:
		var p CreateCombatPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.CreateCombat(ctx, &combatorch.CreateCombatInput{
				Meta:       meta,
				CampaignID: p.CampaignID,
				GridWidth:  p.GridWidth,
				GridHeight: p.GridHeight,
				Terrain:    p.Terrain,
				Mode:       p.Mode,
			})
		}

	case MsgJoinLobby:
		var p JoinLobbyPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.JoinLobby(ctx, &combatorch.JoinLobbyInput{
				Meta:     meta,
				CombatID: in.CombatID,
				Entity:   p.Entity,
				Position: p.Position,
			})
		}

	case MsgLeaveLobby:
		var p EntityPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.LeaveLobby(ctx, &combatorch.LeaveLobbyInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
			})
		}

	case MsgToggleReady:
		var p EntityPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.ToggleReady(ctx, &combatorch.ToggleReadyInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
			})
		}

	case MsgStartCombat:
		var p StartCombatPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.StartCombat(ctx, &combatorch.StartCombatInput{
				Meta:     meta,
				CombatID: in.CombatID,
				AutoRoll: p.AutoRoll,
			})
		}

	case MsgEndCombat:
		var p EndCombatPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.EndCombat(ctx, &combatorch.EndCombatInput{
				Meta:     meta,
				CombatID: in.CombatID,
				Reason:   p.Reason,
			})
		}

	case MsgRemoveEntity:
		var p EntityPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.RemoveEntity(ctx, &combatorch.RemoveEntityInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				Reason:   p.Reason,
			})
		}

	case MsgSubmitInitiative:
		var p RollPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.SubmitInitiative(ctx, &combatorch.SubmitInitiativeInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				Roll:     p.Roll,
			})
		}

	case MsgModifyInitiative:
		var p ModifyInitiativePayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.ModifyInitiative(ctx, &combatorch.ModifyInitiativeInput{
				Meta:     meta,
				CombatID: in.CombatID,
				Order:    p.Order,
				Reason:   p.Reason,
			})
		}

	case MsgDeclareAction:
		var p DeclareActionPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.DeclareAction(ctx, &combatorch.DeclareActionInput{
				Meta:       meta,
				CombatID:   in.CombatID,
				EntityID:   p.EntityID,
				AbilityID:  p.AbilityID,
				TargetID:   p.TargetID,
				MovementAP: p.MovementAP,
				Path:       p.Path,
			})
		}

	case MsgDeclareReaction:
		var p DeclareReactionPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.DeclareReaction(ctx, &combatorch.DeclareReactionInput{
				Meta:       meta,
				CombatID:   in.CombatID,
				EntityID:   p.EntityID,
				ReactionID: p.ReactionID,
			})
		}

	case MsgResolveReactions:
		data, err = h.svc.ResolveReactions(ctx, &combatorch.ResolveReactionsInput{
			Meta:     meta,
			CombatID: in.CombatID,
		})

	case MsgEndTurn:
		var p EntityPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.EndTurn(ctx, &combatorch.EndTurnInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
			})
		}

	case MsgSubmitSurvival:
		var p RollPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.SubmitSurvival(ctx, &combatorch.SubmitSurvivalInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				Roll:     p.Roll,
			})
		}

	case MsgStartChanneling:
		var p ChannelingPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.StartChanneling(ctx, &combatorch.StartChannelingInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				SpellID:  p.SpellID,
				AP:       p.AP,
				Energy:   p.Energy,
			})
		}

	case MsgContinueChanneling:
		var p ChannelingPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.ContinueChanneling(ctx, &combatorch.ContinueChannelingInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				AP:       p.AP,
				Energy:   p.Energy,
			})
		}

	case MsgReleaseSpell:
		var p ChannelingPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.ReleaseSpell(ctx, &combatorch.ReleaseSpellInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				TargetID: p.TargetID,
			})
		}

	case MsgAbortChanneling:
		var p ChannelingPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.AbortChanneling(ctx, &combatorch.AbortChannelingInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
			})
		}

	case MsgInitiateContest:
		var p InitiateContestPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.InitiateContest(ctx, &combatorch.InitiateContestInput{
				Meta:     meta,
				CombatID: in.CombatID,
				EntityID: p.EntityID,
				TargetID: p.TargetID,
				Skill:    p.Skill,
				Domain:   p.Domain,
				Roll:     p.Roll,
			})
		}

	case MsgRespondContest:
		var p RollPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.RespondContest(ctx, &combatorch.RespondContestInput{
				Meta:      meta,
				CombatID:  in.CombatID,
				ContestID: p.ContestID,
				Roll:      p.Roll,
				Domain:    p.Domain,
			})
		}

	case MsgRequestCheck:
		var p RequestCheckPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.RequestCheck(ctx, &combatorch.RequestCheckInput{
				Meta:         meta,
				CombatID:     in.CombatID,
				EntityID:     p.EntityID,
				Skill:        p.Skill,
				Domain:       p.Domain,
				TargetNumber: p.TargetNumber,
			})
		}

	case MsgSubmitCheck:
		var p RollPayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.SubmitCheck(ctx, &combatorch.SubmitCheckInput{
				Meta:     meta,
				CombatID: in.CombatID,
				CheckID:  p.CheckID,
				Roll:     p.Roll,
			})
		}

	case MsgGMOverride:
		var p GMOverridePayload
		if err = unmarshalPayload(in.Payload, &p); err == nil {
			data, err = h.svc.GMOverride(ctx, &combatorch.GMOverrideInput{
				Meta:     meta,
				CombatID: in.CombatID,
				Kind:     combatorch.GMOverrideKind(p.Kind),
				EntityID: p.EntityID,
				Reason:   p.Reason,
			})
		}

	default:
		err = errors.InvalidArgumentf("unknown message type %s", in.Type)
	}

	if err != nil {
		sess.reject(in.RequestID, err)
		return
	}
	redactResult(sess.controllerID, data)
	sess.result(in.RequestID, in.Type, data)
}
