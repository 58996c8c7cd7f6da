package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/broadphase/quadtree"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

// World is a set of bodies indexed by a quadtree and stepped once per frame.
type World struct {
	ID   uint32
	UUID string

	mutex       sync.RWMutex
	tree        *quadtree.Quadtree
	bodies      map[quadtree.Handle]*Body
	bodyIDs     HandleGenerator
	releasedIDs []quadtree.Handle
	reusableIDs []quadtree.Handle
	frame       uint64

	moduleStates map[string]any
	moduleMutex  sync.RWMutex

	frameDuration   time.Duration
	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameTicker     *time.Ticker
	frameHandlerIDs SequentialIDGenerator
	frameHandlers   map[uint32]func()
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

// NewWorld creates a world whose quadtree starts with the given bounds.
func NewWorld(id uint32, frameDuration time.Duration, bounds quadtree.Region, opts quadtree.Options) *World {
	return &World{
		ID:             id,
		UUID:           uuid.New().String(),
		tree:           quadtree.NewWithOptions(bounds, opts),
		bodies:         make(map[quadtree.Handle]*Body),
		moduleStates:   make(map[string]any),
		frameDuration:  frameDuration,
		closeFrameChan: make(chan struct{}, 1),
		frameTicker:    time.NewTicker(frameDuration),
		frameHandlers:  make(map[uint32]func()),
	}
}

func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.frameTicker.Stop()
		w.closeFrameChan <- struct{}{}
	})
}

// AddBody creates a body and indexes it.
func (w *World) AddBody(kind BodyKind, position quadtree.Vector2, radius float32, velocity quadtree.Vector2) (*Body, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	id := w.bodyIDs.New()
	b := &Body{
		ID:       id,
		Kind:     kind,
		position: position,
		velocity: velocity,
		radius:   radius,
		entry: quadtree.Entry{
			Handle:   id,
			Position: position,
			Radius:   radius,
		},
	}

	if err := w.tree.Insert(&b.entry); err != nil {
		w.bodyIDs.Reuse(id)
		return nil, err
	}
	w.bodies[id] = b

	instrumentCountBody(kind)
	instrumentWorldBodies(w.UUID, len(w.bodies))
	return b, nil
}

// RemoveBody removes the body with the given id. It returns false when the
// world has no such body.
func (w *World) RemoveBody(id quadtree.Handle) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if _, ok := w.bodies[id]; !ok {
		return false
	}
	w.removeBody(id)

	instrumentWorldBodies(w.UUID, len(w.bodies))
	return true
}

// removeBody must be called with the world mutex held.
func (w *World) removeBody(id quadtree.Handle) {
	delete(w.bodies, id)
	w.tree.Remove(id)

	// The id is reused two steps later so frame handlers observe the removal
	// before another body can take the id.
	w.releasedIDs = append(w.releasedIDs, id)
}

func (w *World) BodyByID(id quadtree.Handle) (*Body, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	b, ok := w.bodies[id]
	return b, ok
}

// SetBodyVelocity changes the velocity applied to a body on the next steps.
// It returns false when the world has no such body.
func (w *World) SetBodyVelocity(id quadtree.Handle, v quadtree.Vector2) bool {
	b, ok := w.BodyByID(id)
	if !ok {
		return false
	}

	b.SetVelocity(v)
	return true
}

// Bodies returns the bodies of the world ordered by id.
func (w *World) Bodies() []*Body {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	bodies := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		bodies = append(bodies, b)
	}

	sort.Slice(bodies, func(i, j int) bool {
		return bodies[i].ID < bodies[j].ID
	})
	return bodies
}

func (w *World) BodyCount() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return len(w.bodies)
}

// Step moves every body by its velocity over dt, then updates the quadtree.
// Bodies the tree could not keep indexed are removed from the world and
// returned.
func (w *World) Step(dt time.Duration) []quadtree.Handle {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	defer instrumentStepLatency(w.UUID, time.Now())

	for _, id := range w.reusableIDs {
		w.bodyIDs.Reuse(id)
	}
	w.reusableIDs, w.releasedIDs = w.releasedIDs, nil

	for _, b := range w.bodies {
		b.integrate(dt)
	}
	w.tree.Update()

	var evicted []quadtree.Handle
	for id := range w.bodies {
		if w.tree.Contains(id) {
			continue
		}

		w.removeBody(id)
		evicted = append(evicted, id)

		logs.WithTag("world", w.UUID).
			WithTag("body_id", id).
			Info("body evicted from world")
	}

	w.frame++

	instrumentWorldBodies(w.UUID, len(w.bodies))
	return evicted
}

// Frame returns the number of steps run so far.
func (w *World) Frame() uint64 {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.frame
}

// Query returns the ids of the bodies overlapping the circle at p, ordered by
// id. Results reflect the positions of the last step.
func (w *World) Query(p quadtree.Vector2, radius float32) []quadtree.Handle {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return sortHandles(w.tree.Query(p, radius))
}

// QueryFor returns the ids of the bodies overlapping the body with the given
// id, ordered by id.
func (w *World) QueryFor(id quadtree.Handle) []quadtree.Handle {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return sortHandles(w.tree.QueryFor(id))
}

func (w *World) DebugInfo() quadtree.DebugInfo {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.tree.DebugInfo()
}

func (w *World) VisitNodes(fn func(region quadtree.Region, depth, entryCount int)) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	w.tree.VisitNodes(fn)
}

func (w *World) Bounds() quadtree.Region {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.tree.Bounds()
}

func (w *World) SetModuleState(moduleName string, state any) {
	w.moduleMutex.Lock()
	defer w.moduleMutex.Unlock()

	w.moduleStates[moduleName] = state
}

func (w *World) ModuleState(moduleName string) (any, bool) {
	w.moduleMutex.RLock()
	defer w.moduleMutex.RUnlock()

	state, ok := w.moduleStates[moduleName]
	return state, ok
}

// HandleFrame registers a handler called after every step.
func (w *World) HandleFrame(h func()) (cancel func()) {
	w.frameMutex.Lock()
	defer w.frameMutex.Unlock()

	id := w.frameHandlerIDs.New()
	w.frameHandlers[id] = h

	return func() {
		w.frameMutex.Lock()
		defer w.frameMutex.Unlock()

		delete(w.frameHandlers, id)
		w.frameHandlerIDs.Reuse(id)
	}
}

// StartDispatchFrames steps the world on every frame tick and runs the frame
// handlers. It blocks until the world is closed.
func (w *World) StartDispatchFrames() {
	w.startFrameOnce.Do(func() {
		for {
			select {
			case <-w.closeFrameChan:
				return

			case <-w.frameTicker.C:
				w.Step(w.frameDuration)

				w.frameMutex.RLock()
				for _, h := range w.frameHandlers {
					h()
				}
				w.frameMutex.RUnlock()
			}
		}
	})
}

func sortHandles(handles []quadtree.Handle) []quadtree.Handle {
	sort.Slice(handles, func(i, j int) bool {
		return handles[i] < handles[j]
	})
	return handles
}

// WorldStore holds the worlds served by the process.
type WorldStore struct {
	// The prefix of global world ids.
	ServerID string

	initOnce sync.Once
	mutex    sync.RWMutex
	worlds   map[string]*World
	ids      SequentialIDGenerator
}

func (s *WorldStore) init() {
	s.worlds = map[string]*World{}

	if s.ServerID == "" {
		s.ServerID = "bp"
	}
}

func (s *WorldStore) NewID() uint32 {
	return s.ids.New()
}

func (s *WorldStore) Add(ctx context.Context, world *World) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.worlds[s.globalWorldID(world.ID)] = world

	instrumentIncreaseWorldGauge()
	instrumentCountWorld()
	return nil
}

func (s *WorldStore) Remove(ctx context.Context, world *World) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	globalID := s.globalWorldID(world.ID)
	if _, ok := s.worlds[globalID]; !ok {
		return
	}

	delete(s.worlds, globalID)
	world.Close()
	s.ids.Reuse(world.ID)

	instrumentDecreaseWorldGauge()
	instrumentDeleteWorldBodies(world.UUID)
}

func (s *WorldStore) GetByGlobalID(v string) (*World, bool) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	world, ok := s.worlds[v]
	return world, ok
}

// List returns the worlds ordered by id.
func (s *WorldStore) List() []*World {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	worlds := make([]*World, 0, len(s.worlds))
	for _, w := range s.worlds {
		worlds = append(worlds, w)
	}

	sort.Slice(worlds, func(i, j int) bool {
		return worlds[i].ID < worlds[j].ID
	})
	return worlds
}

func (s *WorldStore) GlobalWorldID(worldID uint32) string {
	s.initOnce.Do(s.init)
	return s.globalWorldID(worldID)
}

func (s *WorldStore) globalWorldID(worldID uint32) string {
	return fmt.Sprintf("%sx%x", s.ServerID, worldID)
}
