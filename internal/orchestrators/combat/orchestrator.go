// Package combat implements the combat orchestrator: the authoritative
// state machine for in-progress encounters. Every mutating request for one
// combat is serialized through that combat's single runner goroutine, which
// owns the State exclusively; mutual exclusion is structural, so none of
// the rules packages lock.
package combat

//go:generate mockgen -destination=mock/mock_service.go -package=combatmock github.com/KirkDiggler/combat-api/internal/orchestrators/combat Service

import (
	"context"
	"sync"

	"github.com/KirkDiggler/combat-api/internal/content"
	"github.com/KirkDiggler/combat-api/internal/errors"
	"github.com/KirkDiggler/combat-api/internal/events"
	"github.com/KirkDiggler/combat-api/internal/pkg/clock"
	"github.com/KirkDiggler/combat-api/internal/pkg/idgen"
	"github.com/KirkDiggler/combat-api/internal/pkg/roller"
	combatrepo "github.com/KirkDiggler/combat-api/internal/repositories/combat"
)

// Service defines the interface for combat operations
type Service interface {
	// Lobby and lifecycle
	CreateCombat(ctx context.Context, input *CreateCombatInput) (*CreateCombatOutput, error)
	JoinLobby(ctx context.Context, input *JoinLobbyInput) (*JoinLobbyOutput, error)
	LeaveLobby(ctx context.Context, input *LeaveLobbyInput) (*LeaveLobbyOutput, error)
	ToggleReady(ctx context.Context, input *ToggleReadyInput) (*ToggleReadyOutput, error)
	StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error)
	EndCombat(ctx context.Context, input *EndCombatInput) (*EndCombatOutput, error)
	RemoveEntity(ctx context.Context, input *RemoveEntityInput) (*RemoveEntityOutput, error)
	GetState(ctx context.Context, input *GetStateInput) (*GetStateOutput, error)

	// Initiative
	SubmitInitiative(ctx context.Context, input *SubmitInitiativeInput) (*SubmitInitiativeOutput, error)
	ModifyInitiative(ctx context.Context, input *ModifyInitiativeInput) (*ModifyInitiativeOutput, error)

	// Actions and turns
	DeclareAction(ctx context.Context, input *DeclareActionInput) (*DeclareActionOutput, error)
	DeclareReaction(ctx context.Context, input *DeclareReactionInput) (*DeclareReactionOutput, error)
	ResolveReactions(ctx context.Context, input *ResolveReactionsInput) (*ResolveReactionsOutput, error)
	EndTurn(ctx context.Context, input *EndTurnInput) (*EndTurnOutput, error)
	SubmitSurvival(ctx context.Context, input *SubmitSurvivalInput) (*SubmitSurvivalOutput, error)

	// Channeling
	StartChanneling(ctx context.Context, input *StartChannelingInput) (*StartChannelingOutput, error)
	ContinueChanneling(ctx context.Context, input *ContinueChannelingInput) (*ContinueChannelingOutput, error)
	ReleaseSpell(ctx context.Context, input *ReleaseSpellInput) (*ReleaseSpellOutput, error)
	AbortChanneling(ctx context.Context, input *AbortChannelingInput) (*AbortChannelingOutput, error)

	// Contests and checks
	InitiateContest(ctx context.Context, input *InitiateContestInput) (*InitiateContestOutput, error)
	RespondContest(ctx context.Context, input *RespondContestInput) (*RespondContestOutput, error)
	RequestCheck(ctx context.Context, input *RequestCheckInput) (*RequestCheckOutput, error)
	SubmitCheck(ctx context.Context, input *SubmitCheckInput) (*SubmitCheckOutput, error)

	// GM escape hatch
	GMOverride(ctx context.Context, input *GMOverrideInput) (*GMOverrideOutput, error)
}

// Config holds the dependencies for the combat orchestrator
type Config struct {
	Repository  combatrepo.Repository
	Publisher   events.Publisher
	Content     *content.Content
	IDGenerator idgen.Generator
	Roller      roller.Roller
	Clock       clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.Publisher == nil {
		vb.RequiredField("Publisher")
	}
	if c.Content == nil {
		vb.RequiredField("Content")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.Roller == nil {
		vb.RequiredField("Roller")
	}

	return vb.Build()
}

// Orchestrator implements Service. One runner goroutine per combat id; the
// runners map is the only shared structure and the only thing locked.
type Orchestrator struct {
	repo    combatrepo.Repository
	pub     events.Publisher
	tables  *content.Content
	idGen   idgen.Generator
	roller  roller.Roller
	clock   clock.Clock

	mu      sync.Mutex
	runners map[string]*runner
	closed  bool
}

// NewOrchestrator creates a new combat orchestrator with the provided
// dependencies
func NewOrchestrator(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &Orchestrator{
		repo:    cfg.Repository,
		pub:     cfg.Publisher,
		tables:  cfg.Content,
		idGen:   cfg.IDGenerator,
		roller:  cfg.Roller,
		clock:   c,
		runners: make(map[string]*runner),
	}, nil
}

// Ensure Orchestrator implements Service
var _ Service = (*Orchestrator)(nil)

// Close stops every runner. In-flight requests complete first.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for _, r := range o.runners {
		close(r.inbox)
	}
	o.runners = nil
}

// startRunner registers and starts a runner for a freshly created state.
// Fails if the combat already has one.
func (o *Orchestrator) startRunner(r *runner) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return errors.Unavailable("orchestrator is shutting down")
	}
	if _, exists := o.runners[r.state.CombatID]; exists {
		return errors.AlreadyExists("combat already active")
	}
	o.runners[r.state.CombatID] = r
	go r.run()
	return nil
}

// getRunner returns the live runner for a combat, reviving it from the last
// persisted snapshot on cold start.
func (o *Orchestrator) getRunner(ctx context.Context, combatID string) (*runner, error) {
	if combatID == "" {
		return nil, errors.InvalidArgument("combat ID is required")
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, errors.Unavailable("orchestrator is shutting down")
	}
	if r, ok := o.runners[combatID]; ok {
		o.mu.Unlock()
		return r, nil
	}
	o.mu.Unlock()

	// Load outside the lock: Redis round trips must not stall other combats
	out, err := o.repo.Get(ctx, &combatrepo.GetInput{CombatID: combatID})
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, errors.Unavailable("orchestrator is shutting down")
	}
	if r, ok := o.runners[combatID]; ok {
		return r, nil
	}
	r := o.newRunner(out.State)
	o.runners[combatID] = r
	go r.run()
	return r, nil
}

// submit runs fn on the combat's runner goroutine and waits for the result
func (o *Orchestrator) submit(ctx context.Context, combatID string, fn func(r *runner) (any, error)) (any, error) {
	r, err := o.getRunner(ctx, combatID)
	if err != nil {
		return nil, err
	}
	return r.submit(ctx, fn)
}
