package models

import (
	"sync"
	"time"

	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeInvalidBodyKind = "invalid_body_kind"
)

// BodyKind describes how a body takes part in a world.
type BodyKind string

const (
	// A body that never moves by itself.
	BodyKindStatic BodyKind = "static"

	// A body moved by its velocity on every step.
	BodyKindDynamic BodyKind = "dynamic"

	// A dynamic body whose overlaps are reported as contact events.
	BodyKindDetector BodyKind = "detector"
)

func ParseBodyKind(s string) (BodyKind, error) {
	switch k := BodyKind(s); k {
	case BodyKindStatic, BodyKindDynamic, BodyKindDetector:
		return k, nil

	case "":
		return BodyKindDynamic, nil

	default:
		return "", errors.New("unknown body kind").
			WithType(ErrTypeInvalidBodyKind).
			WithTag("kind", s)
	}
}

// Body is a circle living in a world.
type Body struct {
	ID   quadtree.Handle
	Kind BodyKind

	mutex    sync.RWMutex
	position quadtree.Vector2
	velocity quadtree.Vector2
	radius   float32

	// Written by the world before every tree update.
	entry quadtree.Entry
}

func (b *Body) SetPosition(v quadtree.Vector2) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.position = v
}

func (b *Body) Position() quadtree.Vector2 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.position
}

func (b *Body) SetVelocity(v quadtree.Vector2) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.velocity = v
}

func (b *Body) Velocity() quadtree.Vector2 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.velocity
}

func (b *Body) SetRadius(v float32) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.radius = v
}

func (b *Body) Radius() float32 {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.radius
}

// integrate moves the body by its velocity and copies its geometry to the
// tree entry.
func (b *Body) integrate(dt time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.Kind != BodyKindStatic {
		b.position = b.position.Add(b.velocity.Mul(float32(dt.Seconds())))
	}

	b.entry.Position = b.position
	b.entry.Radius = b.radius
}

// BodyState is a point in time copy of a body.
type BodyState struct {
	ID       quadtree.Handle  `json:"id"`
	Kind     BodyKind         `json:"kind"`
	Position quadtree.Vector2 `json:"position"`
	Velocity quadtree.Vector2 `json:"velocity"`
	Radius   float32          `json:"radius"`
}

func (b *Body) State() BodyState {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return BodyState{
		ID:       b.ID,
		Kind:     b.Kind,
		Position: b.position,
		Velocity: b.velocity,
		Radius:   b.radius,
	}
}

func BodyStates(bodies []*Body) []BodyState {
	states := make([]BodyState, len(bodies))
	for i, b := range bodies {
		states[i] = b.State()
	}
	return states
}
