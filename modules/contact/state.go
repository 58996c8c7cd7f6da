package contact

import (
	"sort"
	"sync"

	"github.com/aukilabs/broadphase/models"
	"github.com/aukilabs/broadphase/quadtree"
)

// EventType describes how a contact changed between two frames.
type EventType string

const (
	// The bodies started overlapping.
	EventEnter EventType = "enter"

	// The bodies still overlap.
	EventStay EventType = "stay"

	// The bodies stopped overlapping, or one of them left the world.
	EventExit EventType = "exit"
)

// Event is a contact between a detector and another body.
type Event struct {
	Type     EventType       `json:"type"`
	World    string          `json:"world"`
	Frame    uint64          `json:"frame"`
	Detector quadtree.Handle `json:"detector"`
	Other    quadtree.Handle `json:"other"`
}

// Handler receives the events of one frame. It must not block.
type Handler func([]Event)

// State holds the contacts found on the last frame and the subscribers of a
// world.
type State struct {
	mutex    sync.RWMutex
	contacts map[quadtree.Handle]map[quadtree.Handle]struct{}

	subscriptionMutex sync.RWMutex
	subscriptionIDs   models.SequentialIDGenerator
	subscriptions     map[uint32]Handler
}

// Contacts returns the bodies overlapping the detector on the last frame,
// ordered by id.
func (s *State) Contacts(detector quadtree.Handle) []quadtree.Handle {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	contacts := make([]quadtree.Handle, 0, len(s.contacts[detector]))
	for h := range s.contacts[detector] {
		contacts = append(contacts, h)
	}

	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i] < contacts[j]
	})
	return contacts
}

// Detectors returns the detectors that had contacts on the last frame.
func (s *State) Detectors() []quadtree.Handle {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	detectors := make([]quadtree.Handle, 0, len(s.contacts))
	for h := range s.contacts {
		detectors = append(detectors, h)
	}

	sort.Slice(detectors, func(i, j int) bool {
		return detectors[i] < detectors[j]
	})
	return detectors
}

// diff replaces the contacts of the last frame with current and returns the
// resulting events, ordered by detector then by other body.
func (s *State) diff(current map[quadtree.Handle]map[quadtree.Handle]struct{}) []Event {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var events []Event

	for detector, others := range current {
		previous := s.contacts[detector]
		for other := range others {
			typ := EventEnter
			if _, ok := previous[other]; ok {
				typ = EventStay
			}
			events = append(events, Event{Type: typ, Detector: detector, Other: other})
		}
	}

	for detector, others := range s.contacts {
		for other := range others {
			if _, ok := current[detector][other]; !ok {
				events = append(events, Event{Type: EventExit, Detector: detector, Other: other})
			}
		}
	}

	s.contacts = current

	sort.Slice(events, func(i, j int) bool {
		if events[i].Detector != events[j].Detector {
			return events[i].Detector < events[j].Detector
		}
		return events[i].Other < events[j].Other
	})
	return events
}

// Subscribe registers h to receive the events of every frame.
func (s *State) Subscribe(h Handler) (cancel func()) {
	s.subscriptionMutex.Lock()
	defer s.subscriptionMutex.Unlock()

	if s.subscriptions == nil {
		s.subscriptions = make(map[uint32]Handler)
	}

	id := s.subscriptionIDs.New()
	s.subscriptions[id] = h

	return func() {
		s.subscriptionMutex.Lock()
		defer s.subscriptionMutex.Unlock()

		if _, ok := s.subscriptions[id]; !ok {
			return
		}
		delete(s.subscriptions, id)
		s.subscriptionIDs.Reuse(id)
	}
}

func (s *State) SubscriberCount() int {
	s.subscriptionMutex.RLock()
	defer s.subscriptionMutex.RUnlock()

	return len(s.subscriptions)
}

func (s *State) notify(events []Event) {
	s.subscriptionMutex.RLock()
	defer s.subscriptionMutex.RUnlock()

	for _, h := range s.subscriptions {
		h(events)
	}
}
