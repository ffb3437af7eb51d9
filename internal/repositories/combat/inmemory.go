package combatrepo

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
)

// InMemoryRepository implements Repository using in-memory storage. Snapshots
// round-trip through JSON so stored state is isolated from callers, same as
// the Redis implementation.
type InMemoryRepository struct {
	mu       sync.RWMutex
	store    map[string][]byte
	campaign map[string]map[string]bool
}

// NewInMemory creates a new in-memory repository
func NewInMemory() *InMemoryRepository {
	return &InMemoryRepository{
		store:    make(map[string][]byte),
		campaign: make(map[string]map[string]bool),
	}
}

// Ensure InMemoryRepository implements Repository
var _ Repository = (*InMemoryRepository)(nil)

// Save stores a combat snapshot
func (r *InMemoryRepository) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
	if input == nil || input.State == nil {
		return nil, errors.InvalidArgument(errStateNil)
	}
	if input.State.CombatID == "" {
		return nil, errors.InvalidArgument(errCombatIDEmpty)
	}

	data, err := json.Marshal(input.State)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal combat state")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[input.State.CombatID] = data
	if input.State.CampaignID != "" {
		if r.campaign[input.State.CampaignID] == nil {
			r.campaign[input.State.CampaignID] = make(map[string]bool)
		}
		r.campaign[input.State.CampaignID][input.State.CombatID] = true
	}

	return &SaveOutput{Version: input.State.Version}, nil
}

// Get retrieves a combat snapshot by ID
func (r *InMemoryRepository) Get(ctx context.Context, input *GetInput) (*GetOutput, error) {
	if input == nil || input.CombatID == "" {
		return nil, errors.InvalidArgument(errCombatIDEmpty)
	}

	r.mu.RLock()
	data, exists := r.store[input.CombatID]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.NotFoundf("combat %s not found", input.CombatID)
	}

	var state combat.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal combat state")
	}

	return &GetOutput{State: &state}, nil
}

// ListByCampaign lists the combat ids stored for a campaign
func (r *InMemoryRepository) ListByCampaign(ctx context.Context, input *ListByCampaignInput) (*ListByCampaignOutput, error) {
	if input == nil || input.CampaignID == "" {
		return nil, errors.InvalidArgument("campaign ID cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id := range r.campaign[input.CampaignID] {
		ids = append(ids, id)
	}
	return &ListByCampaignOutput{CombatIDs: ids}, nil
}

// Delete removes a combat snapshot
func (r *InMemoryRepository) Delete(ctx context.Context, input *DeleteInput) (*DeleteOutput, error) {
	if input == nil || input.CombatID == "" {
		return nil, errors.InvalidArgument(errCombatIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[input.CombatID]; !exists {
		return nil, errors.NotFoundf("combat %s not found", input.CombatID)
	}
	delete(r.store, input.CombatID)
	for _, set := range r.campaign {
		delete(set, input.CombatID)
	}

	return &DeleteOutput{Success: true}, nil
}
