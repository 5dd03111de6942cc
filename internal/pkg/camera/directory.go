package camera

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
)

const (
	defaultPingTimeout = 4 * time.Second
	defaultEventCount  = 15
)

// ErrNoDevice is returned when a question needs a camera or home that
// cannot be resolved
var ErrNoDevice = errors.New("no such device")

// Directory indexes a snapshot of the account's homes and answers queries
// about it.  It is not safe for concurrent use.
type Directory struct {
	api         netatmo.API
	clock       func() time.Time
	pingTimeout time.Duration
	eventCount  int

	snap *snapshot
}

type Option func(*Directory)

// WithClock replaces the source of "now" used for recency windows
func WithClock(clock func() time.Time) Option {
	return func(d *Directory) {
		d.clock = clock
	}
}

func WithPingTimeout(timeout time.Duration) Option {
	return func(d *Directory) {
		d.pingTimeout = timeout
	}
}

// WithEventCount sets how many events per home the snapshot asks for
func WithEventCount(n int) Option {
	return func(d *Directory) {
		d.eventCount = n
	}
}

func NewDirectory(api netatmo.API, opts ...Option) *Directory {
	d := &Directory{
		api:         api,
		clock:       time.Now,
		pingTimeout: defaultPingTimeout,
		eventCount:  defaultEventCount,
		snap:        newSnapshot(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type snapshot struct {
	homes          map[string]*Home
	homeOrder      []string
	cameras        map[string]*Camera
	cameraOrder    []string
	modules        map[string]*Module
	smokeDetectors map[string]*Module
	persons        map[string]*Person
	personOrder    []string
	known          map[string]*Person
	events         map[string]*cameraEvents
}

func newSnapshot() *snapshot {
	return &snapshot{
		homes:          make(map[string]*Home),
		cameras:        make(map[string]*Camera),
		modules:        make(map[string]*Module),
		smokeDetectors: make(map[string]*Module),
		persons:        make(map[string]*Person),
		known:          make(map[string]*Person),
		events:         make(map[string]*cameraEvents),
	}
}

// Load fetches a fresh snapshot and rebuilds every index.  The previous
// snapshot is kept if anything fails.
func (d *Directory) Load() error {
	params := url.Values{}
	params.Set("size", strconv.Itoa(d.eventCount))

	body, err := d.api.PostRequest(d.api.Endpoints().HomeData, params)
	if err != nil {
		return errors.Wrap(err, "fetching home data")
	}

	var resp homeDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(err, "decoding home data")
	}

	snap, err := buildSnapshot(resp.Body.Homes)
	if err != nil {
		return err
	}

	d.snap = snap
	logging.Logger(nil).Debugf("loaded %d homes, %d cameras, %d persons",
		len(snap.homes), len(snap.cameras), len(snap.persons))

	return nil
}

func buildSnapshot(homes []Home) (*snapshot, error) {
	s := newSnapshot()
	var events []Event

	for i := range homes {
		h := &homes[i]
		s.homes[h.ID] = h
		s.homeOrder = append(s.homeOrder, h.ID)

		for j := range h.Cameras {
			c := &h.Cameras[j]
			c.HomeID = h.ID
			s.cameras[c.ID] = c
			s.cameraOrder = append(s.cameraOrder, c.ID)

			for k := range c.Modules {
				m := &c.Modules[k]
				m.CameraID = c.ID
				m.HomeID = h.ID
				s.modules[m.ID] = m
			}
		}

		for j := range h.SmokeDetectors {
			m := &h.SmokeDetectors[j]
			m.HomeID = h.ID
			s.smokeDetectors[m.ID] = m
		}

		for j := range h.Persons {
			p := &h.Persons[j]
			s.persons[p.ID] = p
			s.personOrder = append(s.personOrder, p.ID)
			if p.Known() {
				s.known[p.ID] = p
			}
		}

		events = append(events, h.Events...)
	}

	if len(s.homes) == 0 {
		return nil, errors.Wrap(ErrNoDevice, "no homes in home data")
	}
	if len(s.cameras) == 0 {
		return nil, errors.Wrap(ErrNoDevice, "no cameras in home data")
	}

	s.events = indexEvents(events, s.persons)

	return s, nil
}

func copyCamera(c *Camera) *Camera {
	nc := *c
	nc.Modules = append([]Module(nil), c.Modules...)
	return &nc
}

// GetCamera returns a copy of the camera, or nil if it is unknown
func (d *Directory) GetCamera(cameraID string) *Camera {
	if c, ok := d.snap.cameras[cameraID]; ok {
		return copyCamera(c)
	}

	return nil
}

// GetModule returns a copy of a camera attached module, or nil
func (d *Directory) GetModule(moduleID string) *Module {
	if m, ok := d.snap.modules[moduleID]; ok {
		nm := *m
		return &nm
	}

	return nil
}

// GetSmokeDetector returns a copy of the smoke detector, or nil
func (d *Directory) GetSmokeDetector(moduleID string) *Module {
	if m, ok := d.snap.smokeDetectors[moduleID]; ok {
		nm := *m
		return &nm
	}

	return nil
}

// GetHome returns a copy of the home, or nil if it is unknown
func (d *Directory) GetHome(homeID string) *Home {
	h, ok := d.snap.homes[homeID]
	if !ok {
		return nil
	}

	nh := *h
	nh.Cameras = make([]Camera, 0, len(h.Cameras))
	for i := range h.Cameras {
		nh.Cameras = append(nh.Cameras, *copyCamera(&h.Cameras[i]))
	}
	nh.Persons = append([]Person(nil), h.Persons...)
	nh.SmokeDetectors = append([]Module(nil), h.SmokeDetectors...)
	nh.Events = append([]Event(nil), h.Events...)

	return &nh
}

func (d *Directory) Homes() []Home {
	homes := make([]Home, 0, len(d.snap.homeOrder))
	for _, id := range d.snap.homeOrder {
		homes = append(homes, *d.GetHome(id))
	}

	return homes
}

func (d *Directory) Cameras() []Camera {
	cameras := make([]Camera, 0, len(d.snap.cameraOrder))
	for _, id := range d.snap.cameraOrder {
		cameras = append(cameras, *copyCamera(d.snap.cameras[id]))
	}

	return cameras
}

// CameraHomeID returns the ID of the home the camera belongs to
func (d *Directory) CameraHomeID(cameraID string) string {
	if c, ok := d.snap.cameras[cameraID]; ok {
		return c.HomeID
	}

	return ""
}

// PersonsAtHome returns the names of known persons currently in sight,
// in the order the home lists them
func (d *Directory) PersonsAtHome(homeID string) []string {
	h, ok := d.snap.homes[homeID]
	if !ok {
		return nil
	}

	atHome := []string{}
	for _, p := range h.Persons {
		if p.Known() && !p.OutOfSight {
			atHome = append(atHome, p.Pseudo)
		}
	}

	return atHome
}

// KnownPersons returns the persons with a display name, keyed by ID
func (d *Directory) KnownPersons() map[string]Person {
	known := make(map[string]Person, len(d.snap.known))
	for id, p := range d.snap.known {
		known[id] = *p
	}

	return known
}

// KnownPersonsNames returns the sorted, distinct names of known persons
func (d *Directory) KnownPersonsNames() []string {
	seen := make(map[string]bool, len(d.snap.known))
	names := make([]string, 0, len(d.snap.known))
	for _, p := range d.snap.known {
		if !seen[p.Pseudo] {
			seen[p.Pseudo] = true
			names = append(names, p.Pseudo)
		}
	}
	sort.Strings(names)

	return names
}

// GetPersonID returns the ID of the first person with exactly this name
func (d *Directory) GetPersonID(name string) string {
	if name == "" {
		return ""
	}

	for _, id := range d.snap.personOrder {
		if d.snap.persons[id].Pseudo == name {
			return id
		}
	}

	return ""
}
