// Package inspect keeps a copy of the shape of a world's quadtree taken right
// after every frame, so debug readers never wait on the world.
package inspect

import (
	"sync"

	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/quadtree"
)

const moduleName = "inspect"

// NodeInfo describes one quadtree node.
type NodeInfo struct {
	Region     quadtree.Region `json:"region"`
	Depth      int             `json:"depth"`
	EntryCount int             `json:"entry_count"`
}

// Snapshot is the state of a world at the end of a frame.
type Snapshot struct {
	Frame  uint64             `json:"frame"`
	Info   quadtree.DebugInfo `json:"info"`
	Nodes  []NodeInfo         `json:"nodes"`
	Bodies []models.BodyState `json:"bodies"`
}

// Take reads a snapshot of w.
func Take(w *models.World) Snapshot {
	var nodes []NodeInfo
	w.VisitNodes(func(region quadtree.Region, depth, entryCount int) {
		nodes = append(nodes, NodeInfo{
			Region:     region,
			Depth:      depth,
			EntryCount: entryCount,
		})
	})

	return Snapshot{
		Frame:  w.Frame(),
		Info:   w.DebugInfo(),
		Nodes:  nodes,
		Bodies: models.BodyStates(w.Bodies()),
	}
}

type State struct {
	mutex    sync.RWMutex
	snapshot Snapshot
	taken    bool
}

func (s *State) set(v Snapshot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snapshot = v
	s.taken = true
}

// Snapshot returns the last snapshot. It returns false until the first frame
// has been handled.
func (s *State) Snapshot() (Snapshot, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.snapshot, s.taken
}

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

func (m *Module) HandleFrame() {
	if m.currentWorld == nil {
		return
	}
	m.state.set(Take(m.currentWorld))
}

func (m *Module) Close() {
}

// Latest returns the last snapshot of w, or a fresh one when the module does
// not run for w or has not handled a frame yet.
func Latest(w *models.World) Snapshot {
	if state, ok := w.ModuleState(moduleName); ok {
		if snapshot, ok := state.(*State).Snapshot(); ok {
			return snapshot
		}
	}
	return Take(w)
}
