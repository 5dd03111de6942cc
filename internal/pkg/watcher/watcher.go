package watcher

import (
	"context"
	"time"

	"github.com/korovkin/limiter"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/alerts"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

/*
 * The watcher runs two loops joined by a channel: the poll loop reloads the
 * camera directory on a timer and turns recent detections into alerts, the
 * publish loop delivers them to a sink through a bounded pool of goroutines.
 */

// Detect returns one alert per detection kind seen on each camera within
// window of the directory's clock
func Detect(dir *camera.Directory, window time.Duration, now time.Time) []alerts.Alert {
	var found []alerts.Alert

	for _, cam := range dir.Cameras() {
		log := logging.ForCamera(nil, cam.ID)

		checks := []struct {
			kind  alerts.Kind
			check func(string, time.Duration) (bool, error)
		}{
			{alerts.KindKnownPerson, dir.SomeoneKnownSeen},
			{alerts.KindUnknownPerson, dir.SomeoneUnknownSeen},
			{alerts.KindMotion, dir.MotionDetected},
		}

		for _, chk := range checks {
			seen, err := chk.check(cam.ID, window)
			if err != nil {
				log.WithError(err).Warnf("checking for %s", chk.kind)
				continue
			}
			if !seen {
				continue
			}

			a := alerts.New(chk.kind, cam.HomeID, cam.ID, cam.Name, now)
			if chk.kind == alerts.KindKnownPerson {
				for _, name := range dir.KnownPersonsNames() {
					if dir.PersonSeenByCamera(name, cam.ID, window) {
						a.Persons = append(a.Persons, name)
					}
				}
			}

			log.Infof("detected %s", chk.kind)
			found = append(found, a)
		}
	}

	return found
}

// PollLoop reloads dir every interval and sends the detections of the last
// interval on c.  It closes c when ctx is cancelled.
func PollLoop(ctx context.Context, dir *camera.Directory, interval time.Duration, clock func() time.Time, c chan<- alerts.Alert) {
	defer close(c)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		logging.Logger(nil).Debug("poll-loop: reloading directory")

		if err := dir.Load(); err != nil {
			logging.Logger(nil).WithError(err).Error("poll-loop: loading camera directory")
		} else {
			for _, a := range Detect(dir, interval, clock()) {
				// don't block on a busy publisher once we are shutting down
				select {
				case <-ctx.Done():
					logging.Logger(nil).Info("poll-loop: shutting down")
					return
				case c <- a:
				}
			}
		}

		select {
		case <-ctx.Done():
			logging.Logger(nil).Info("poll-loop: shutting down")
			return
		case <-ticker.C:
		}
	}
}

// PublishLoop delivers every alert received on c to sink, at most
// maxConcurrent at a time, until c is closed
func PublishLoop(maxConcurrent int, sink alerts.Sink, c <-chan alerts.Alert) {
	limit := limiter.NewConcurrencyLimiter(maxConcurrent)

	for alert := range c {
		a := alert
		limit.ExecuteWithTicket(func(ticket int) {
			publishAlert(ticket, sink, a)
		})
	}

	logging.Logger(nil).Info("publish-loop: shutting down")
	limit.Wait()
	logging.Logger(nil).Info("publish-loop: done")
}

func publishAlert(ticket int, sink alerts.Sink, a alerts.Alert) {
	log := logging.ForCamera(nil, a.CameraID).WithField("alert", a.ID)
	log.Debugf("publish-goroutine %d: got %s", ticket, a.Kind)

	if err := sink.Publish([]alerts.Alert{a}); err != nil {
		log.WithError(err).Error("publishing alert")
		return
	}

	log.Debugf("publish-goroutine %d: done", ticket)
}
