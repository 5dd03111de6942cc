package camera

import "time"

// Event types reported by the vendor
const (
	EventTypePerson   = "person"
	EventTypeMovement = "movement"
)

// Camera statuses
const (
	StatusOn           = "on"
	StatusOff          = "off"
	StatusDisconnected = "disconnected"
)

type homeDataResponse struct {
	Body struct {
		Homes []Home `json:"homes"`
	} `json:"body"`
	Status     string `json:"status"`
	TimeServer int64  `json:"time_server"`
}

type Place struct {
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type Home struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Place          Place    `json:"place"`
	Persons        []Person `json:"persons"`
	Cameras        []Camera `json:"cameras"`
	SmokeDetectors []Module `json:"smokedetectors"`
	Events         []Event  `json:"events"`
}

type Camera struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Name            string   `json:"name"`
	Status          string   `json:"status"`
	SDStatus        string   `json:"sd_status,omitempty"`
	AlimStatus      string   `json:"alim_status,omitempty"`
	LightModeStatus string   `json:"light_mode_status,omitempty"`
	IsLocal         bool     `json:"is_local"`
	VpnURL          string   `json:"vpn_url,omitempty"`
	LocalURL        string   `json:"local_url,omitempty"`
	HomeID          string   `json:"home_id,omitempty"`
	Modules         []Module `json:"modules,omitempty"`
}

// Module is a non-camera device, either attached to a camera (door tag,
// siren) or a standalone smoke detector
type Module struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Name           string `json:"name"`
	Status         string `json:"status,omitempty"`
	BatteryPercent int    `json:"battery_percent,omitempty"`
	LastSetup      int64  `json:"last_setup,omitempty"`
	CameraID       string `json:"camera_id,omitempty"`
	HomeID         string `json:"home_id,omitempty"`
}

type Person struct {
	ID         string `json:"id"`
	Pseudo     string `json:"pseudo,omitempty"`
	LastSeen   int64  `json:"last_seen"`
	OutOfSight bool   `json:"out_of_sight"`
	Face       *Face  `json:"face,omitempty"`
}

type Face struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	URL     string `json:"url,omitempty"`
	Version int    `json:"version,omitempty"`
}

// Known reports whether the person has a display name
func (p Person) Known() bool {
	return p.Pseudo != ""
}

type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Time        int64     `json:"time"`
	CameraID    string    `json:"camera_id"`
	DeviceID    string    `json:"device_id,omitempty"`
	PersonID    string    `json:"person_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	VideoID     string    `json:"video_id,omitempty"`
	VideoStatus string    `json:"video_status,omitempty"`
	IsArrival   bool      `json:"is_arrival,omitempty"`
	Snapshot    *Snapshot `json:"snapshot,omitempty"`
}

type Snapshot struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// When returns the event time
func (e Event) When() time.Time {
	return time.Unix(e.Time, 0)
}

// StateChange describes a camera state command.  Empty fields are not sent.
type StateChange struct {
	HomeID     string
	CameraID   string
	Floodlight string
	Monitoring string
}

type setStateModule struct {
	ID         string `json:"id"`
	Floodlight string `json:"floodlight,omitempty"`
	Monitoring string `json:"monitoring,omitempty"`
}

type setStateHome struct {
	ID      string           `json:"id"`
	Modules []setStateModule `json:"modules"`
}

type setStateRequest struct {
	Home setStateHome `json:"home"`
}
