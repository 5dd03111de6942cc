package camera

import (
	"sort"
	"time"
)

type eventClass int

const (
	eventClassOther eventClass = iota
	eventClassKnownPerson
	eventClassUnknownPerson
	eventClassMotion
)

func classify(ev *Event, persons map[string]*Person) eventClass {
	switch ev.Type {
	case EventTypeMovement:
		return eventClassMotion
	case EventTypePerson:
		if p, ok := persons[ev.PersonID]; ok && p.Known() {
			return eventClassKnownPerson
		}
		return eventClassUnknownPerson
	}

	return eventClassOther
}

// Most recent events seen by one camera, each pointer tracked independently
type cameraEvents struct {
	latest         *Event
	latestNoPerson *Event
	latestByClass  map[eventClass]*Event
	latestByPerson map[string]*Event
	// person events only, keyed by person ID
	latestSighting map[string]*Event
}

func (ce *cameraEvents) latestOf(class eventClass) *Event {
	return ce.latestByClass[class]
}

// recent returns the most recent events: one per person plus the latest
// without a person, newest first
func (ce *cameraEvents) recent() []Event {
	events := make([]Event, 0, len(ce.latestByPerson)+1)
	if ce.latestNoPerson != nil {
		events = append(events, *ce.latestNoPerson)
	}
	for _, ev := range ce.latestByPerson {
		events = append(events, *ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time == events[j].Time {
			return events[i].ID < events[j].ID
		}
		return events[i].Time > events[j].Time
	})

	return events
}

// indexEvents builds the per camera index in a single pass over the events,
// newest first.  With equal timestamps the event listed first wins.
func indexEvents(events []Event, persons map[string]*Person) map[string]*cameraEvents {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time > sorted[j].Time
	})

	index := make(map[string]*cameraEvents)

	for i := range sorted {
		ev := &sorted[i]
		if ev.CameraID == "" {
			continue
		}

		ce, ok := index[ev.CameraID]
		if !ok {
			ce = &cameraEvents{
				latestByClass:  make(map[eventClass]*Event),
				latestByPerson: make(map[string]*Event),
				latestSighting: make(map[string]*Event),
			}
			index[ev.CameraID] = ce
		}

		if ce.latest == nil {
			ce.latest = ev
		}

		if ev.PersonID == "" {
			if ce.latestNoPerson == nil {
				ce.latestNoPerson = ev
			}
		} else if _, seen := ce.latestByPerson[ev.PersonID]; !seen {
			ce.latestByPerson[ev.PersonID] = ev
		}

		if ev.Type == EventTypePerson && ev.PersonID != "" {
			if _, seen := ce.latestSighting[ev.PersonID]; !seen {
				ce.latestSighting[ev.PersonID] = ev
			}
		}

		if class := classify(ev, persons); class != eventClassOther {
			if _, seen := ce.latestByClass[class]; !seen {
				ce.latestByClass[class] = ev
			}
		}
	}

	return index
}

// within reports whether the event happened no more than window before now
func within(ev *Event, now time.Time, window time.Duration) bool {
	return now.Sub(ev.When()) <= window
}
