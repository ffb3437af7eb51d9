package combatrepo

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/combat-api/internal/redis"
)

const (
	// Key pattern: combat:{combat_id}
	combatKeyPrefix = "combat:"
	// Key pattern: combat:campaign:{campaign_id} -> set of combat ids
	campaignIndexPrefix = "combat:campaign:"

	errStateNil      = "state cannot be nil"
	errCombatIDEmpty = "combat ID cannot be empty"
)

// RedisConfig contains configuration for the Redis combat repository
type RedisConfig struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate validates the RedisConfig
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// NewRedis creates a new Redis-backed combat repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  c,
	}, nil
}

// Ensure redisRepository implements Repository
var _ Repository = (*redisRepository)(nil)

// Save persists the whole snapshot and indexes it by campaign
func (r *redisRepository) Save(ctx context.Context, input *SaveInput) (*SaveOutput, error) {
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

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, combatKeyPrefix+input.State.CombatID, data, 0)
	if input.State.CampaignID != "" {
		pipe.SAdd(ctx, campaignIndexPrefix+input.State.CampaignID, input.State.CombatID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to save combat state")
	}

	return &SaveOutput{Version: input.State.Version}, nil
}

// Get retrieves the latest snapshot for a combat
func (r *redisRepository) Get(ctx context.Context, input *GetInput) (*GetOutput, error) {
	if input == nil || input.CombatID == "" {
		return nil, errors.InvalidArgument(errCombatIDEmpty)
	}

	data, err := r.client.Get(ctx, combatKeyPrefix+input.CombatID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("combat %s not found", input.CombatID)
		}
		return nil, errors.Wrapf(err, "failed to get combat state")
	}

	var state combat.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal combat state")
	}

	return &GetOutput{State: &state}, nil
}

// ListByCampaign lists the combat ids stored for a campaign
func (r *redisRepository) ListByCampaign(ctx context.Context, input *ListByCampaignInput) (*ListByCampaignOutput, error) {
	if input == nil || input.CampaignID == "" {
		return nil, errors.InvalidArgument("campaign ID cannot be empty")
	}

	ids, err := r.client.SMembers(ctx, campaignIndexPrefix+input.CampaignID).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list campaign combats")
	}

	return &ListByCampaignOutput{CombatIDs: ids}, nil
}

// Delete removes a combat snapshot and its campaign index entry
func (r *redisRepository) Delete(ctx context.Context, input *DeleteInput) (*DeleteOutput, error) {
	if input == nil || input.CombatID == "" {
		return nil, errors.InvalidArgument(errCombatIDEmpty)
	}

	out, err := r.Get(ctx, &GetInput{CombatID: input.CombatID})
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, combatKeyPrefix+input.CombatID)
	if out.State.CampaignID != "" {
		pipe.SRem(ctx, campaignIndexPrefix+out.State.CampaignID, input.CombatID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to delete combat state")
	}

	return &DeleteOutput{Success: true}, nil
}
