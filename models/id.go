package models

import (
	"sync"

	"github.com/aukilabs/broadphase/quadtree"
)

// A sequential id generator.
type SequentialIDGenerator struct {
	mutex       sync.Mutex
	currentID   uint32
	reusableIDs map[uint32]struct{}
}

// New returns a sequental id. Released ids are handed out again before new
// ones.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	for id := range g.reusableIDs {
		delete(g.reusableIDs, id)
		return id
	}

	g.currentID++
	return g.currentID
}

// Reuse marks the given id as reusable.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.reusableIDs == nil {
		g.reusableIDs = make(map[uint32]struct{})
	}
	g.reusableIDs[id] = struct{}{}
}

// HandleGenerator hands out quadtree handles for the bodies of a world.
type HandleGenerator struct {
	ids SequentialIDGenerator
}

func (g *HandleGenerator) New() quadtree.Handle {
	return quadtree.Handle(g.ids.New())
}

func (g *HandleGenerator) Reuse(h quadtree.Handle) {
	g.ids.Reuse(uint32(h))
}
