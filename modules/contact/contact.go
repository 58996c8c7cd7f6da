// Package contact turns the overlaps of detector bodies into enter, stay and
// exit events.
package contact

import (
	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/quadtree"
)

const moduleName = "contact"

type Module struct {
	currentWorld *models.World
	state        *State
}

func (m *Module) Name() string {
	return moduleName
}

func (m *Module) Init(w *models.World) {
	m.currentWorld = w

	state, ok := w.ModuleState(m.Name())
	if !ok {
		state = &State{}
		w.SetModuleState(m.Name(), state)
	}
	m.state = state.(*State)
}

// HandleFrame queries the overlaps of every detector and notifies the
// subscribers of what changed since the previous frame.
func (m *Module) HandleFrame() {
	world := m.currentWorld
	if world == nil {
		return
	}

	current := make(map[quadtree.Handle]map[quadtree.Handle]struct{})
	for _, b := range world.Bodies() {
		if b.Kind != models.BodyKindDetector {
			continue
		}

		others := world.QueryFor(b.ID)
		if len(others) == 0 {
			continue
		}

		set := make(map[quadtree.Handle]struct{}, len(others))
		for _, h := range others {
			set[h] = struct{}{}
		}
		current[b.ID] = set
	}

	events := m.state.diff(current)
	if len(events) == 0 {
		return
	}

	frame := world.Frame()
	for i := range events {
		events[i].World = world.UUID
		events[i].Frame = frame
	}

	instrumentEvents(events)
	m.state.notify(events)
}

func (m *Module) Close() {
}

// StateOf returns the contact state of a world. It returns false when the
// module does not run for that world.
func StateOf(w *models.World) (*State, bool) {
	state, ok := w.ModuleState(moduleName)
	if !ok {
		return nil, false
	}

	s, ok := state.(*State)
	return s, ok
}
