package camera

import (
	"time"

	"github.com/pkg/errors"
)

// An exclude window of zero disables the recency check: the question is
// then asked of the camera's most recent event only.

// PersonSeenByCamera reports whether the named person was seen by the
// camera.  An unknown camera is reported as not having seen anyone.
func (d *Directory) PersonSeenByCamera(name, cameraID string, exclude time.Duration) bool {
	if name == "" {
		return false
	}

	ce, ok := d.snap.events[cameraID]
	if !ok {
		return false
	}

	if exclude <= 0 {
		ev := ce.latest
		return ev.Type == EventTypePerson && d.pseudoOf(ev.PersonID) == name
	}

	now := d.clock()
	for personID, ev := range ce.latestSighting {
		if d.pseudoOf(personID) == name && within(ev, now, exclude) {
			return true
		}
	}

	return false
}

// SomeoneKnownSeen reports whether a person with a display name was seen
func (d *Directory) SomeoneKnownSeen(cameraID string, exclude time.Duration) (bool, error) {
	return d.seen(cameraID, eventClassKnownPerson, exclude)
}

// SomeoneUnknownSeen reports whether a person without a resolvable display
// name was seen
func (d *Directory) SomeoneUnknownSeen(cameraID string, exclude time.Duration) (bool, error) {
	return d.seen(cameraID, eventClassUnknownPerson, exclude)
}

// MotionDetected reports whether the camera saw movement
func (d *Directory) MotionDetected(cameraID string, exclude time.Duration) (bool, error) {
	return d.seen(cameraID, eventClassMotion, exclude)
}

// LatestEvents returns the camera's most recent event per person plus the
// most recent event with no person, newest first
func (d *Directory) LatestEvents(cameraID string) []Event {
	ce, ok := d.snap.events[cameraID]
	if !ok {
		return nil
	}

	return ce.recent()
}

func (d *Directory) seen(cameraID string, class eventClass, exclude time.Duration) (bool, error) {
	if _, ok := d.snap.cameras[cameraID]; !ok {
		return false, errors.Wrapf(ErrNoDevice, "camera %q", cameraID)
	}

	ce, ok := d.snap.events[cameraID]
	if !ok {
		return false, nil
	}

	if exclude <= 0 {
		return classify(ce.latest, d.snap.persons) == class, nil
	}

	ev := ce.latestOf(class)
	return ev != nil && within(ev, d.clock(), exclude), nil
}

func (d *Directory) pseudoOf(personID string) string {
	if p, ok := d.snap.persons[personID]; ok {
		return p.Pseudo
	}

	return ""
}
