package camera

import (
	"net/url"

	"github.com/pkg/errors"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
)

// Commands do not touch the snapshot; the next Load reflects them.

// SetPersonsAway marks persons as away, or everybody when no IDs are given.
// The endpoint takes a single person, so each ID is a separate request.
// It returns the last status reported by the server.
func (d *Directory) SetPersonsAway(homeID string, personIDs ...string) (string, error) {
	if _, ok := d.snap.homes[homeID]; !ok {
		return "", errors.Wrapf(ErrNoDevice, "home %q", homeID)
	}

	ids := normalizeIDs(personIDs)
	if len(ids) == 0 {
		return d.setPersonAway(homeID, "")
	}

	var status string
	for _, id := range ids {
		var err error
		if status, err = d.setPersonAway(homeID, id); err != nil {
			return "", err
		}
	}

	return status, nil
}

func (d *Directory) setPersonAway(homeID, personID string) (string, error) {
	params := url.Values{}
	params.Set("home_id", homeID)
	if personID != "" {
		params.Set("person_id", personID)
	}

	body, err := d.api.PostRequest(d.api.Endpoints().SetPersonsAway, params)
	if err != nil {
		return "", errors.Wrapf(err, "setting person %q away", personID)
	}

	return netatmo.ParseStatus(body)
}

// SetPersonsHome marks persons as at home and returns the server status
func (d *Directory) SetPersonsHome(homeID string, personIDs ...string) (string, error) {
	if _, ok := d.snap.homes[homeID]; !ok {
		return "", errors.Wrapf(ErrNoDevice, "home %q", homeID)
	}

	params := url.Values{}
	params.Set("home_id", homeID)
	for _, id := range normalizeIDs(personIDs) {
		params.Add("person_ids[]", id)
	}

	body, err := d.api.PostRequest(d.api.Endpoints().SetPersonsHome, params)
	if err != nil {
		return "", errors.Wrap(err, "setting persons home")
	}

	return netatmo.ParseStatus(body)
}

// SetState changes the floodlight or monitoring state of a camera.  A
// camera that is already in the requested state counts as success.
func (d *Directory) SetState(change StateChange) (bool, error) {
	homeID := change.HomeID
	if homeID == "" {
		c, ok := d.snap.cameras[change.CameraID]
		if !ok {
			return false, errors.Wrapf(ErrNoDevice, "camera %q", change.CameraID)
		}
		homeID = c.HomeID
	}

	req := setStateRequest{
		Home: setStateHome{
			ID: homeID,
			Modules: []setStateModule{{
				ID:         change.CameraID,
				Floodlight: change.Floodlight,
				Monitoring: change.Monitoring,
			}},
		},
	}

	body, err := d.api.PostJSON(d.api.Endpoints().SetState, req)
	if err == nil {
		_, err = netatmo.ParseStatus(body)
		if err == nil {
			return true, nil
		}
	}

	var apiErr *netatmo.APIError
	if !errors.As(err, &apiErr) {
		return false, errors.Wrap(err, "setting camera state")
	}

	if apiErr.Code == netatmo.ErrorCodeAlreadyInState {
		logging.ForCamera(nil, change.CameraID).Debug("camera already in requested state")
		return true, nil
	}

	logging.ForCamera(nil, change.CameraID).WithError(apiErr).Warn("set state rejected")
	return false, nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}

	return out
}
