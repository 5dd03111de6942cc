package camera

import (
	"net/url"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
)

// UpdateCameraURLs probes the camera's VPN URL and, for cameras on the
// local network, its local URL.  URLs that answer are kept, the others are
// cleared.  An offline camera is an expected condition, so failures are
// logged and never returned.
func (d *Directory) UpdateCameraURLs(cameraID string) {
	log := logging.ForCamera(nil, cameraID)

	c, ok := d.snap.cameras[cameraID]
	if !ok {
		log.Warn("cannot update urls of an unknown camera")
		return
	}

	if c.Status == StatusDisconnected {
		log.Info("camera disconnected, clearing urls")
		c.VpnURL = ""
		c.LocalURL = ""
		return
	}

	localCandidate := c.LocalURL

	if c.VpnURL != "" {
		localURL, err := d.ping(c.VpnURL)
		if err != nil {
			log.WithError(err).Warn("vpn url unreachable")
			c.VpnURL = ""
		} else if localURL != "" {
			localCandidate = localURL
		}
	}

	if !c.IsLocal || localCandidate == "" {
		c.LocalURL = ""
		return
	}

	localURL, err := d.ping(localCandidate)
	switch {
	case err != nil:
		log.WithError(err).Warn("local url unreachable")
		c.LocalURL = ""
	case localURL != "":
		c.LocalURL = localURL
	default:
		c.LocalURL = localCandidate
	}
}

// CameraURLs returns the cached VPN and local URLs, empty when unknown
func (d *Directory) CameraURLs(cameraID string) (vpnURL, localURL string) {
	if c, ok := d.snap.cameras[cameraID]; ok {
		return c.VpnURL, c.LocalURL
	}

	return "", ""
}

// LiveSnapshotURL returns the URL of a live JPEG, preferring the local URL
func (d *Directory) LiveSnapshotURL(cameraID string) string {
	vpnURL, localURL := d.CameraURLs(cameraID)

	base := localURL
	if base == "" {
		base = vpnURL
	}
	if base == "" {
		return ""
	}

	return base + "/live/snapshot_720.jpg"
}

// PictureURL returns the URL of an event snapshot or face picture
func (d *Directory) PictureURL(imageID, key string) string {
	params := url.Values{}
	params.Set("image_id", imageID)
	params.Set("key", key)

	return d.api.Endpoints().CameraPicture + "?" + params.Encode()
}

// ping asks a camera URL for its local address
func (d *Directory) ping(cameraURL string) (string, error) {
	body, err := d.api.WithTimeout(d.pingTimeout).PostRequest(netatmo.PingURL(cameraURL), nil)
	if err != nil {
		return "", errors.Wrap(err, "pinging camera")
	}

	if !gjson.ValidBytes(body) {
		return "", errors.New("malformed ping response")
	}

	return gjson.GetBytes(body, "local_url").String(), nil
}
