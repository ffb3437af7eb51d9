// Package combatrepo persists whole-state combat snapshots. The contract is
// deliberately narrow: save the latest snapshot on every accepted mutation,
// load the latest snapshot on cold start. No partial updates.
package combatrepo

//go:generate mockgen -destination=mock/mock_repository.go -package=combatrepomock github.com/KirkDiggler/combat-api/internal/repositories/combat Repository

import (
	"context"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
)

// Repository defines the storage interface for combat snapshots
type Repository interface {
	// Save persists the snapshot, replacing any previous version
	Save(ctx context.Context, input *SaveInput) (*SaveOutput, error)

	// Get retrieves the latest snapshot for a combat
	Get(ctx context.Context, input *GetInput) (*GetOutput, error)

	// ListByCampaign lists the combat ids stored for a campaign
	ListByCampaign(ctx context.Context, input *ListByCampaignInput) (*ListByCampaignOutput, error)

	// Delete removes a combat snapshot
	Delete(ctx context.Context, input *DeleteInput) (*DeleteOutput, error)
}

// SaveInput defines the request for saving a snapshot
type SaveInput struct {
	State *combat.State
}

// SaveOutput defines the response for saving a snapshot
type SaveOutput struct {
	Version int64
}

// GetInput defines the request for retrieving a snapshot
type GetInput struct {
	CombatID string
}

// GetOutput defines the response for retrieving a snapshot
type GetOutput struct {
	State *combat.State
}

// ListByCampaignInput defines the request for listing a campaign's combats
type ListByCampaignInput struct {
	CampaignID string
}

// ListByCampaignOutput defines the response for listing a campaign's combats
type ListByCampaignOutput struct {
	CombatIDs []string
}

// DeleteInput defines the request for deleting a snapshot
type DeleteInput struct {
	CombatID string
}

// DeleteOutput defines the response for deleting a snapshot
type DeleteOutput struct {
	Success bool
}
