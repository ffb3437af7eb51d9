// Package content supplies the read-only lookup tables the engine consumes:
// ability costs and effects, reaction definitions, spells, status tick
// rules, terrain costs, and the tuning knobs for movement, regeneration, and
// contest tiers. Loaded once at startup; never mutated by the engine.
package content

import (
	_ "embed"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/combat-api/internal/entities/combat"
	"github.com/KirkDiggler/combat-api/internal/errors"
)

//go:embed defaults.yaml
var defaultContent []byte

// Ability is a declarable action definition
type Ability struct {
	ID            string               `yaml:"id"`
	Category      combat.ActionCategory `yaml:"category"`
	APCost        int                  `yaml:"ap"`
	EnergyCost    int                  `yaml:"energy"`
	Range         int                  `yaml:"range"`
	Interruptible bool                 `yaml:"interruptible"`
	Damage        *Damage              `yaml:"damage,omitempty"`
	Status        *StatusEffect        `yaml:"status,omitempty"`
}

// Damage is the harm portion of an ability, spell, or hazard
type Damage struct {
	Energy     int              `yaml:"energy"`
	WoundType  combat.WoundType `yaml:"wound_type,omitempty"`
	WoundCount int              `yaml:"wound_count,omitempty"`
}

// StatusEffect is the status portion of an ability or reaction
type StatusEffect struct {
	Key        string `yaml:"key"`
	Stacks     int    `yaml:"stacks"`
	Duration   int    `yaml:"duration,omitempty"`
	Indefinite bool   `yaml:"indefinite,omitempty"`
}

// Reaction is a declarable reaction definition
type Reaction struct {
	ID         string                `yaml:"id"`
	Effect     combat.ReactionEffect `yaml:"effect"`
	APCost     int                   `yaml:"ap"`
	EnergyCost int                   `yaml:"energy"`
	Wounds     *Damage               `yaml:"wounds,omitempty"`
	Status     *StatusEffect         `yaml:"status,omitempty"`
	Reduce     int                   `yaml:"reduce,omitempty"`
}

// Spell is a channeled spell definition
type Spell struct {
	ID        string  `yaml:"id"`
	TotalCost int     `yaml:"total_cost"`
	Damage    *Damage `yaml:"damage,omitempty"`
	Radius    int     `yaml:"radius,omitempty"`
}

// Tiers holds the critical-tier margin breakpoints. Margins at or above a
// breakpoint classify into that tier; below Wicked is normal.
type Tiers struct {
	Wicked  int `yaml:"wicked"`
	Vicious int `yaml:"vicious"`
	Brutal  int `yaml:"brutal"`
}

// Movement holds movement tuning
type Movement struct {
	HexesPerAP   int `yaml:"hexes_per_ap"`
	EnergyPerHex int `yaml:"energy_per_hex"`
}

// Content is the full read-only table set
type Content struct {
	Abilities map[string]*Ability `yaml:"-"`
	Reactions map[string]*Reaction `yaml:"-"`
	Spells    map[string]*Spell    `yaml:"-"`

	// StatusTicks maps a status key to the wound type it accrues each round
	StatusTicks map[string]combat.WoundType `yaml:"status_ticks"`

	HazardDamage     int   `yaml:"hazard_damage"`
	MovementRules    Movement `yaml:"movement"`
	ContestTiers     Tiers `yaml:"contest_tiers"`
	EndureTarget     int   `yaml:"endure_target"`
	DeathTarget      int   `yaml:"death_target"`
	EnergyRegen      int   `yaml:"energy_regen_per_round"`
	ContestDieSize   int   `yaml:"contest_die_size"`
	InitiativeDie    int   `yaml:"initiative_die"`
}

// file is the raw YAML shape; lists are indexed into maps on load
type file struct {
	Abilities []*Ability `yaml:"abilities"`
	Reactions []*Reaction `yaml:"reactions"`
	Spells    []*Spell    `yaml:"spells"`

	StatusTicks map[string]combat.WoundType `yaml:"status_ticks"`

	HazardDamage   int      `yaml:"hazard_damage"`
	MovementRules  Movement `yaml:"movement"`
	ContestTiers   Tiers    `yaml:"contest_tiers"`
	EndureTarget   int      `yaml:"endure_target"`
	DeathTarget    int      `yaml:"death_target"`
	EnergyRegen    int      `yaml:"energy_regen_per_round"`
	ContestDieSize int      `yaml:"contest_die_size"`
	InitiativeDie  int      `yaml:"initiative_die"`
}

// Default returns the embedded content tables
func Default() (*Content, error) {
	return parse(defaultContent)
}

// Load reads content tables from a YAML file
func Load(path string) (*Content, error) {
	data, err := os.ReadFile(path) // #nosec G304 // operator-supplied path
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read content file %s", path)
	}
	return parse(data)
}

func parse(data []byte) (*Content, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse content tables")
	}

	c := &Content{
		Abilities:      make(map[string]*Ability, len(f.Abilities)),
		Reactions:      make(map[string]*Reaction, len(f.Reactions)),
		Spells:         make(map[string]*Spell, len(f.Spells)),
		StatusTicks:    f.StatusTicks,
		HazardDamage:   f.HazardDamage,
		MovementRules:  f.MovementRules,
		ContestTiers:   f.ContestTiers,
		EndureTarget:   f.EndureTarget,
		DeathTarget:    f.DeathTarget,
		EnergyRegen:    f.EnergyRegen,
		ContestDieSize: f.ContestDieSize,
		InitiativeDie:  f.InitiativeDie,
	}
	if c.StatusTicks == nil {
		c.StatusTicks = make(map[string]combat.WoundType)
	}
	for _, a := range f.Abilities {
		if a.ID == "" {
			return nil, errors.InvalidArgument("ability with empty id in content tables")
		}
		c.Abilities[a.ID] = a
	}
	for _, r := range f.Reactions {
		if r.ID == "" {
			return nil, errors.InvalidArgument("reaction with empty id in content tables")
		}
		c.Reactions[r.ID] = r
	}
	for _, sp := range f.Spells {
		if sp.ID == "" {
			return nil, errors.InvalidArgument("spell with empty id in content tables")
		}
		c.Spells[sp.ID] = sp
	}
	return c, nil
}

// Ability returns an ability definition by id
func (c *Content) Ability(id string) (*Ability, bool) {
	a, ok := c.Abilities[id]
	return a, ok
}

// Reaction returns a reaction definition by id
func (c *Content) Reaction(id string) (*Reaction, bool) {
	r, ok := c.Reactions[id]
	return r, ok
}

// Spell returns a spell definition by id
func (c *Content) Spell(id string) (*Spell, bool) {
	s, ok := c.Spells[id]
	return s, ok
}
