// Package roller provides a dice indirection so the engine can be driven by
// real rolls in production and scripted rolls in tests.
package roller

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/combat-api/internal/errors"
)

// Roller rolls count dice of the given size and returns the total
type Roller interface {
	Roll(count, size int) (int, error)
}

// Toolkit implements Roller using rpg-toolkit dice
type Toolkit struct{}

// NewToolkit returns a roller backed by rpg-toolkit dice
func NewToolkit() *Toolkit {
	return &Toolkit{}
}

// Roll rolls count dice of the given size
func (r *Toolkit) Roll(count, size int) (int, error) {
	roll, err := dice.NewRoll(count, size)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create %dd%d roll", count, size)
	}
	return roll.GetValue(), nil
}

// Sequence implements Roller by replaying a scripted list of totals. Once the
// list is exhausted it keeps returning the last value.
type Sequence struct {
	values []int
	next   int
}

// NewSequence returns a roller that replays the given totals in order
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

// Roll returns the next scripted total
func (r *Sequence) Roll(count, size int) (int, error) {
	if len(r.values) == 0 {
		return 0, errors.Internal("sequence roller has no values")
	}
	v := r.values[r.next]
	if r.next < len(r.values)-1 {
		r.next++
	}
	return v, nil
}
