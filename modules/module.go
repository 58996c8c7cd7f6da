package modules

import (
	"github.com/aukilabs/broadphase/models"
)

// Module is the interface that describes a module that extends what a world
// does on every frame.
type Module interface {
	// Returns the module name.
	Name() string

	// Initializes the module for the given world.
	Init(*models.World)

	// Handles a frame. Called after the world is stepped.
	HandleFrame()

	// Releases the module resources.
	Close()
}

// Attach initializes the given modules and runs them on every frame of w. The
// returned function stops the modules and closes them.
func Attach(w *models.World, modules ...Module) (detach func()) {
	cancels := make([]func(), 0, len(modules))

	for _, m := range modules {
		m.Init(w)
		cancels = append(cancels, w.HandleFrame(m.HandleFrame))
	}

	return func() {
		for i, m := range modules {
			cancels[i]()
			m.Close()
		}
	}
}
