package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/logging"
)

const namespace = "netatmo"

// Viewer hands out exclusive access to a loaded directory.  LastLoadErr
// reports a failed reload while View keeps serving the previous snapshot.
type Viewer interface {
	View(fn func(dir *camera.Directory) error) error
	LastLoadErr() error
}

var (
	upDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "up"),
		"Whether the most recent directory load attempt succeeded.", nil, nil)
	scrapeDurationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "scrape_duration_seconds"),
		"Time taken to collect the directory metrics.", nil, nil)
	cameraUpDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "camera", "up"),
		"Whether the camera reports status on.", []string{"camera", "name", "home", "type"}, nil)
	cameraSDCardDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "camera", "sd_card_ok"),
		"Whether the camera's SD card reports status on.", []string{"camera"}, nil)
	detectionDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "camera", "detection"),
		"Whether the camera saw something of the given kind within the detection window.", []string{"camera", "kind"}, nil)
	personsAtHomeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "home", "persons_at_home"),
		"Number of known persons currently at home.", []string{"home", "name"}, nil)
	knownPersonsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "known_persons"),
		"Number of persons with a name across all homes.", nil, nil)
	batteryDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "module", "battery_percent"),
		"Battery level of a camera-attached module.", []string{"module", "camera", "type"}, nil)
)

// DirectoryCollector exports the state of a camera directory on every scrape
type DirectoryCollector struct {
	viewer Viewer
	window time.Duration
}

// NewDirectoryCollector reports detections within window; zero means the
// camera's latest event only
func NewDirectoryCollector(viewer Viewer, window time.Duration) *DirectoryCollector {
	return &DirectoryCollector{viewer: viewer, window: window}
}

func (c *DirectoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- cameraUpDesc
	ch <- cameraSDCardDesc
	ch <- detectionDesc
	ch <- personsAtHomeDesc
	ch <- knownPersonsDesc
	ch <- batteryDesc
}

func (c *DirectoryCollector) Collect(ch chan<- prometheus.Metric) {
	start := time.Now()

	err := c.viewer.View(func(dir *camera.Directory) error {
		c.collectDirectory(dir, ch)
		return nil
	})
	if err == nil {
		err = c.viewer.LastLoadErr()
	}

	up := 1.0
	if err != nil {
		logging.Logger(nil).WithError(err).Warn("collecting directory metrics")
		up = 0
	}

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *DirectoryCollector) collectDirectory(dir *camera.Directory, ch chan<- prometheus.Metric) {
	for _, cam := range dir.Cameras() {
		ch <- prometheus.MustNewConstMetric(cameraUpDesc, prometheus.GaugeValue,
			boolValue(cam.Status == camera.StatusOn), cam.ID, cam.Name, cam.HomeID, cam.Type)

		if cam.SDStatus != "" {
			ch <- prometheus.MustNewConstMetric(cameraSDCardDesc, prometheus.GaugeValue,
				boolValue(cam.SDStatus == "on"), cam.ID)
		}

		c.collectDetections(dir, cam.ID, ch)

		for _, m := range cam.Modules {
			if m.BatteryPercent > 0 {
				ch <- prometheus.MustNewConstMetric(batteryDesc, prometheus.GaugeValue,
					float64(m.BatteryPercent), m.ID, cam.ID, m.Type)
			}
		}
	}

	for _, home := range dir.Homes() {
		ch <- prometheus.MustNewConstMetric(personsAtHomeDesc, prometheus.GaugeValue,
			float64(len(dir.PersonsAtHome(home.ID))), home.ID, home.Name)
	}

	ch <- prometheus.MustNewConstMetric(knownPersonsDesc, prometheus.GaugeValue, float64(len(dir.KnownPersons())))
}

func (c *DirectoryCollector) collectDetections(dir *camera.Directory, cameraID string, ch chan<- prometheus.Metric) {
	checks := []struct {
		kind  string
		check func(string, time.Duration) (bool, error)
	}{
		{"known_person", dir.SomeoneKnownSeen},
		{"unknown_person", dir.SomeoneUnknownSeen},
		{"motion", dir.MotionDetected},
	}

	for _, chk := range checks {
		seen, err := chk.check(cameraID, c.window)
		if err != nil {
			logging.ForCamera(nil, cameraID).WithError(err).Debugf("no %s detection metric", chk.kind)
			continue
		}

		ch <- prometheus.MustNewConstMetric(detectionDesc, prometheus.GaugeValue, boolValue(seen), cameraID, chk.kind)
	}
}
