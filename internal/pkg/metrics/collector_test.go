package metrics

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
	"github.com/jake-scott/netatmo-cameras/internal/pkg/netatmo"
)

const (
	homeID       = "91763b24c43d3e344f424e8b"
	hallCamera   = "12:34:56:00:f1:62"
	gardenCamera = "12:34:56:00:a5:a4"
)

type directoryViewer struct {
	dir     *camera.Directory
	err     error
	loadErr error
}

func (v *directoryViewer) View(fn func(dir *camera.Directory) error) error {
	if v.err != nil {
		return v.err
	}
	return fn(v.dir)
}

func (v *directoryViewer) LastLoadErr() error {
	return v.loadErr
}

func newViewer(t *testing.T) *directoryViewer {
	t.Helper()

	data, err := ioutil.ReadFile(filepath.Join("testdata", "camera_home_data.json"))
	require.NoError(t, err)

	api := &netatmo.MockAPI{}
	api.On("PostRequest", api.Endpoints().HomeData, mock.Anything).Return(data, nil).Once()

	now := time.Date(2019, 6, 16, 0, 0, 0, 0, time.UTC)
	dir := camera.NewDirectory(api, camera.WithClock(func() time.Time { return now }))
	require.NoError(t, dir.Load())

	return &directoryViewer{dir: dir}
}

// gauge returns the value of the metric name whose labels include all of
// labels, failing the test when there is none
func gauge(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()

	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			have := map[string]string{}
			for _, lp := range m.GetLabel() {
				have[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if have[k] != v {
					continue metrics
				}
			}
			return m.GetGauge().GetValue()
		}
	}

	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestDirectoryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewDirectoryCollector(newViewer(t), 48*time.Hour)))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"netatmo_up", nil, 1},
		{"netatmo_camera_up", map[string]string{"camera": hallCamera, "home": homeID}, 1},
		{"netatmo_camera_detection", map[string]string{"camera": hallCamera, "kind": "known_person"}, 1},
		{"netatmo_camera_detection", map[string]string{"camera": hallCamera, "kind": "unknown_person"}, 1},
		{"netatmo_camera_detection", map[string]string{"camera": hallCamera, "kind": "motion"}, 1},
		{"netatmo_camera_detection", map[string]string{"camera": gardenCamera, "kind": "motion"}, 0},
		{"netatmo_home_persons_at_home", map[string]string{"home": homeID}, 1},
		{"netatmo_known_persons", nil, 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, gauge(t, mfs, tt.name, tt.labels), "%s %v", tt.name, tt.labels)
	}
}

func TestDirectoryCollector_LatestEventOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewDirectoryCollector(newViewer(t), 0)))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 1.0, gauge(t, mfs, "netatmo_camera_detection", map[string]string{"camera": hallCamera, "kind": "known_person"}))
	assert.Equal(t, 0.0, gauge(t, mfs, "netatmo_camera_detection", map[string]string{"camera": hallCamera, "kind": "motion"}))
}

func TestDirectoryCollector_Down(t *testing.T) {
	c := NewDirectoryCollector(&directoryViewer{err: errors.New("connection reset")}, time.Hour)

	assert.Equal(t, 2, testutil.CollectAndCount(c))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 0.0, gauge(t, mfs, "netatmo_up", nil))
}

func TestDirectoryCollector_StaleSnapshot(t *testing.T) {
	v := newViewer(t)
	v.loadErr = errors.New("connection reset")

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewDirectoryCollector(v, 48*time.Hour)))
	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 0.0, gauge(t, mfs, "netatmo_up", nil))
	assert.Equal(t, 1.0, gauge(t, mfs, "netatmo_camera_up", map[string]string{"camera": hallCamera}))
	assert.Equal(t, 3.0, gauge(t, mfs, "netatmo_known_persons", nil))
}
