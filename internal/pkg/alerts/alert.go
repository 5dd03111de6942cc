package alerts

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindKnownPerson   Kind = "known_person"
	KindUnknownPerson Kind = "unknown_person"
	KindMotion        Kind = "motion"
)

// Alert is a detection on one camera during a watch interval
type Alert struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	HomeID     string    `json:"home_id"`
	CameraID   string    `json:"camera_id"`
	CameraName string    `json:"camera_name"`
	Persons    []string  `json:"persons,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

func New(kind Kind, homeID, cameraID, cameraName string, at time.Time) Alert {
	return Alert{
		ID:         uuid.New().String(),
		Kind:       kind,
		HomeID:     homeID,
		CameraID:   cameraID,
		CameraName: cameraName,
		DetectedAt: at.UTC(),
	}
}

// Sink delivers alerts somewhere outside the process
type Sink interface {
	Publish(alerts []Alert) error
}
