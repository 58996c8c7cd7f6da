package quadtree

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// Error types attached to the errors returned by a Quadtree. Use
// errors.IsType to match them.
const (
	// The entry position or radius is NaN or infinite.
	ErrTypeInvalidGeometry = "invalid_geometry"

	// The root could not be grown enough to contain the entry.
	ErrTypeGrowthExhausted = "growth_exhausted"

	// The tree shape does not match its own bookkeeping. Raised with panic.
	ErrTypeStructuralInvariant = "structural_invariant"
)

// The position is tagged as text since JSON cannot encode NaN or infinity.
func invalidGeometry(e *Entry) error {
	return errors.New("entry geometry is not finite").
		WithType(ErrTypeInvalidGeometry).
		WithTag("handle", e.Handle).
		WithTag("position", fmt.Sprint(e.Position)).
		WithTag("radius", e.Radius)
}

func growthExhausted(e *Entry, bounds Region, growths int) error {
	return errors.New("root growth limit reached before containing entry").
		WithType(ErrTypeGrowthExhausted).
		WithTag("handle", e.Handle).
		WithTag("position", e.Position).
		WithTag("bounds", bounds).
		WithTag("growths", growths)
}

// invariantViolation stops the program. Continuing with a tree whose shape no
// longer matches its bookkeeping silently loses entries.
func invariantViolation(msg string, id nodeID) {
	panic(errors.New(msg).
		WithType(ErrTypeStructuralInvariant).
		WithTag("node_id", id))
}
