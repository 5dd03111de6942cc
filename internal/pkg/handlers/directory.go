package handlers

import (
	"net/http"
	"sync"
	"time"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/swag"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

/*
 * DirectoryHandler serves read and command requests against one camera
 * directory.  The directory is not safe for concurrent use, so every request
 * holds the handler's lock for its whole duration.  The snapshot is reloaded
 * once it is older than the refresh interval; a refresh interval of zero
 * loads it once only.
 */
type DirectoryHandler struct {
	mu       sync.Mutex
	dir      *camera.Directory
	refresh  time.Duration
	clock    func() time.Time
	loadedAt time.Time
	loadErr  error
}

func NewDirectoryHandler(dir *camera.Directory, refresh time.Duration) *DirectoryHandler {
	return &DirectoryHandler{
		dir:     dir,
		refresh: refresh,
		clock:   time.Now,
	}
}

func (h *DirectoryHandler) WithClock(clock func() time.Time) *DirectoryHandler {
	h.clock = clock
	return h
}

// View runs fn with exclusive access to a fresh enough directory
func (h *DirectoryHandler) View(fn func(dir *camera.Directory) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureLoaded(); err != nil {
		return err
	}

	return fn(h.dir)
}

// LastLoadErr returns the error of the most recent load attempt, nil when
// it succeeded
func (h *DirectoryHandler) LastLoadErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.loadErr
}

func (h *DirectoryHandler) ensureLoaded() error {
	now := h.clock()

	stale := h.loadedAt.IsZero() || (h.refresh > 0 && now.Sub(h.loadedAt) >= h.refresh)
	if !stale {
		return nil
	}

	if err := h.dir.Load(); err != nil {
		h.loadErr = err
		if h.loadedAt.IsZero() {
			return errors.Wrap(err, "loading camera directory")
		}

		// keep serving the previous snapshot
		logging.Logger(nil).WithError(err).Warn("refreshing camera directory, serving stale data")
		return nil
	}

	h.loadedAt = now
	h.loadErr = nil
	return nil
}

// Register adds the directory routes to r
func (h *DirectoryHandler) Register(r *mux.Router) {
	r.HandleFunc("/homes/{id}", h.getHome).Methods(http.MethodGet)
	r.HandleFunc("/homes/{id}/persons", h.getPersonsAtHome).Methods(http.MethodGet)
	r.HandleFunc("/homes/{id}/persons/away", h.postPersonsAway).Methods(http.MethodPost)
	r.HandleFunc("/homes/{id}/persons/home", h.postPersonsHome).Methods(http.MethodPost)
	r.HandleFunc("/cameras/{id}", h.getCamera).Methods(http.MethodGet)
	r.HandleFunc("/cameras/{id}/urls", h.getCameraURLs).Methods(http.MethodGet)
	r.HandleFunc("/cameras/{id}/detections", h.getDetections).Methods(http.MethodGet)
	r.HandleFunc("/cameras/{id}/state", h.postState).Methods(http.MethodPost)
	r.HandleFunc("/persons/known", h.getKnownPersons).Methods(http.MethodGet)
}

func (h *DirectoryHandler) getHome(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var home *camera.Home
	err := h.View(func(dir *camera.Directory) error {
		if home = dir.GetHome(id); home == nil {
			return errors.Wrapf(camera.ErrNoDevice, "home %q", id)
		}
		return nil
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, home)
}

type personsAtHomeResponse struct {
	HomeID string   `json:"home_id"`
	AtHome []string `json:"at_home"`
}

func (h *DirectoryHandler) getPersonsAtHome(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	resp := personsAtHomeResponse{HomeID: id}
	err := h.View(func(dir *camera.Directory) error {
		if resp.AtHome = dir.PersonsAtHome(id); resp.AtHome == nil {
			return errors.Wrapf(camera.ErrNoDevice, "home %q", id)
		}
		return nil
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *DirectoryHandler) postPersonsAway(w http.ResponseWriter, r *http.Request) {
	h.postPersons(w, r, (*camera.Directory).SetPersonsAway)
}

func (h *DirectoryHandler) postPersonsHome(w http.ResponseWriter, r *http.Request) {
	h.postPersons(w, r, (*camera.Directory).SetPersonsHome)
}

func (h *DirectoryHandler) postPersons(w http.ResponseWriter, r *http.Request,
	command func(dir *camera.Directory, homeID string, personIDs ...string) (string, error)) {
	id := mux.Vars(r)["id"]

	var body PersonsBody
	if err := decodeJSONBody(w, r, &body); err != nil {
		sendErrorResponse(w, r, oaerrors.New(http.StatusBadRequest, "decoding body: %s", err))
		return
	}
	if err := body.Validate(formats); err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	var resp statusResponse
	err := h.View(func(dir *camera.Directory) (err error) {
		resp.Status, err = command(dir, id, body.PersonIDs...)
		return err
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}

func (h *DirectoryHandler) getCamera(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var cam *camera.Camera
	err := h.View(func(dir *camera.Directory) error {
		if cam = dir.GetCamera(id); cam == nil {
			return errors.Wrapf(camera.ErrNoDevice, "camera %q", id)
		}
		return nil
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, cam)
}

type cameraURLsResponse struct {
	CameraID    string `json:"camera_id"`
	VpnURL      string `json:"vpn_url"`
	LocalURL    string `json:"local_url"`
	SnapshotURL string `json:"snapshot_url,omitempty"`
}

func (h *DirectoryHandler) getCameraURLs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	resp := cameraURLsResponse{CameraID: id}
	err := h.View(func(dir *camera.Directory) error {
		if dir.GetCamera(id) == nil {
			return errors.Wrapf(camera.ErrNoDevice, "camera %q", id)
		}

		dir.UpdateCameraURLs(id)
		resp.VpnURL, resp.LocalURL = dir.CameraURLs(id)
		resp.SnapshotURL = dir.LiveSnapshotURL(id)
		return nil
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}

type detectionsResponse struct {
	CameraID    string   `json:"camera_id"`
	Exclude     string   `json:"exclude,omitempty"`
	Known       bool     `json:"known"`
	Unknown     bool     `json:"unknown"`
	Motion      bool     `json:"motion"`
	PersonsSeen []string `json:"persons_seen"`
}

func (h *DirectoryHandler) getDetections(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var exclude time.Duration
	if v := r.URL.Query().Get("exclude"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			sendErrorResponse(w, r, oaerrors.New(http.StatusBadRequest, "exclude: invalid duration %q", v))
			return
		}
		exclude = d
	}

	resp := detectionsResponse{CameraID: id, PersonsSeen: []string{}}
	if exclude > 0 {
		resp.Exclude = exclude.String()
	}

	err := h.View(func(dir *camera.Directory) (err error) {
		if resp.Known, err = dir.SomeoneKnownSeen(id, exclude); err != nil {
			return err
		}
		if resp.Unknown, err = dir.SomeoneUnknownSeen(id, exclude); err != nil {
			return err
		}
		if resp.Motion, err = dir.MotionDetected(id, exclude); err != nil {
			return err
		}

		for _, name := range dir.KnownPersonsNames() {
			if dir.PersonSeenByCamera(name, id, exclude) {
				resp.PersonsSeen = append(resp.PersonsSeen, name)
			}
		}
		return nil
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}

type setStateResponse struct {
	CameraID string `json:"camera_id"`
	Applied  bool   `json:"applied"`
}

func (h *DirectoryHandler) postState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body SetStateBody
	if err := decodeJSONBody(w, r, &body); err != nil {
		sendErrorResponse(w, r, oaerrors.New(http.StatusBadRequest, "decoding body: %s", err))
		return
	}
	if err := body.Validate(formats); err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	change := camera.StateChange{
		HomeID:     swag.StringValue(body.HomeID),
		CameraID:   id,
		Floodlight: swag.StringValue(body.Floodlight),
		Monitoring: swag.StringValue(body.Monitoring),
	}

	resp := setStateResponse{CameraID: id}
	err := h.View(func(dir *camera.Directory) (err error) {
		if dir.GetCamera(id) == nil {
			return errors.Wrapf(camera.ErrNoDevice, "camera %q", id)
		}

		resp.Applied, err = dir.SetState(change)
		return err
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}

type knownPerson struct {
	ID     string `json:"id"`
	Pseudo string `json:"pseudo"`
}

type knownPersonsResponse struct {
	Persons []knownPerson `json:"persons"`
}

func (h *DirectoryHandler) getKnownPersons(w http.ResponseWriter, r *http.Request) {
	resp := knownPersonsResponse{Persons: []knownPerson{}}
	err := h.View(func(dir *camera.Directory) error {
		for _, name := range dir.KnownPersonsNames() {
			resp.Persons = append(resp.Persons, knownPerson{ID: dir.GetPersonID(name), Pseudo: name})
		}
		return nil
	})
	if err != nil {
		sendErrorResponse(w, r, err)
		return
	}

	sendJSONResponse(w, r, http.StatusOK, resp)
}
