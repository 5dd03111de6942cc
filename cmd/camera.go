package cmd

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
)

var _cameraStateOpts struct {
	homeID     string
	floodlight string
	monitoring string
}

var _cameraDetectionsOpts struct {
	exclude time.Duration
}

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Inspect or control one camera",
}

var cameraURLsCmd = &cobra.Command{
	Use:   "urls <camera-id>",
	Short: "Probe a camera and print its reachable VPN and local URLs",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return doCameraURLs(args[0])
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

var cameraStateCmd = &cobra.Command{
	Use:   "state <camera-id>",
	Short: "Change the floodlight or monitoring state of a camera",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return doCameraState(args[0])
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		if _cameraStateOpts.floodlight == "" && _cameraStateOpts.monitoring == "" {
			return errors.New("one of --floodlight or --monitoring is required")
		}
		return checkAccountFlags()
	},
}

var cameraDetectionsCmd = &cobra.Command{
	Use:   "detections <camera-id>",
	Short: "Report who or what a camera has seen recently",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return doCameraDetections(args[0])
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

func init() {
	cameraStateCmd.Flags().StringVar(&_cameraStateOpts.homeID, "home-id", "", "home of the camera (default: looked up)")
	cameraStateCmd.Flags().StringVar(&_cameraStateOpts.floodlight, "floodlight", "", "floodlight state: on, off or auto")
	cameraStateCmd.Flags().StringVar(&_cameraStateOpts.monitoring, "monitoring", "", "monitoring state: on or off")

	cameraDetectionsCmd.Flags().DurationVar(&_cameraDetectionsOpts.exclude, "exclude", 0, "only count detections this recent, eg. 1h (default: latest event only)")

	cameraCmd.AddCommand(cameraURLsCmd)
	cameraCmd.AddCommand(cameraStateCmd)
	cameraCmd.AddCommand(cameraDetectionsCmd)
	rootCmd.AddCommand(cameraCmd)
}

func loadCamera(cameraID string) (*camera.Directory, error) {
	dir, err := loadDirectory()
	if err != nil {
		return nil, err
	}

	if dir.GetCamera(cameraID) == nil {
		return nil, errors.Wrapf(camera.ErrNoDevice, "camera %q", cameraID)
	}

	return dir, nil
}

type cameraURLsResult struct {
	VpnURL      string `json:"vpn_url"`
	LocalURL    string `json:"local_url"`
	SnapshotURL string `json:"snapshot_url"`
}

func doCameraURLs(cameraID string) error {
	dir, err := loadCamera(cameraID)
	if err != nil {
		return err
	}

	dir.UpdateCameraURLs(cameraID)

	res := cameraURLsResult{SnapshotURL: dir.LiveSnapshotURL(cameraID)}
	res.VpnURL, res.LocalURL = dir.CameraURLs(cameraID)

	if jsonOutput() {
		return printJSON(res)
	}

	return printTable([]string{"VPN URL", "LOCAL URL", "SNAPSHOT"},
		[][]string{{orDash(res.VpnURL), orDash(res.LocalURL), orDash(res.SnapshotURL)}})
}

func doCameraState(cameraID string) error {
	dir, err := loadCamera(cameraID)
	if err != nil {
		return err
	}

	applied, err := dir.SetState(camera.StateChange{
		HomeID:     _cameraStateOpts.homeID,
		CameraID:   cameraID,
		Floodlight: _cameraStateOpts.floodlight,
		Monitoring: _cameraStateOpts.monitoring,
	})
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(map[string]bool{"applied": applied})
	}

	if !applied {
		return errors.Errorf("camera %s rejected the state change", cameraID)
	}
	fmt.Println("ok")
	return nil
}

type detectionsResult struct {
	Known       bool     `json:"known"`
	Unknown     bool     `json:"unknown"`
	Motion      bool     `json:"motion"`
	PersonsSeen []string `json:"persons_seen"`
}

func doCameraDetections(cameraID string) error {
	dir, err := loadCamera(cameraID)
	if err != nil {
		return err
	}

	exclude := _cameraDetectionsOpts.exclude
	res := detectionsResult{PersonsSeen: []string{}}

	if res.Known, err = dir.SomeoneKnownSeen(cameraID, exclude); err != nil {
		return err
	}
	if res.Unknown, err = dir.SomeoneUnknownSeen(cameraID, exclude); err != nil {
		return err
	}
	if res.Motion, err = dir.MotionDetected(cameraID, exclude); err != nil {
		return err
	}
	for _, name := range dir.KnownPersonsNames() {
		if dir.PersonSeenByCamera(name, cameraID, exclude) {
			res.PersonsSeen = append(res.PersonsSeen, name)
		}
	}

	if jsonOutput() {
		return printJSON(res)
	}

	seen := "-"
	if len(res.PersonsSeen) > 0 {
		seen = fmt.Sprint(res.PersonsSeen)
	}
	return printTable([]string{"KNOWN", "UNKNOWN", "MOTION", "PERSONS"},
		[][]string{{yesNo(res.Known), yesNo(res.Unknown), yesNo(res.Motion), seen}})
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
