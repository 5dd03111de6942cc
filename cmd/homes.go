package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
)

var homesCmd = &cobra.Command{
	Use:   "homes",
	Short: "List homes with their cameras and smoke detectors",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doHomes(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

func init() {
	rootCmd.AddCommand(homesCmd)
}

func doHomes() error {
	dir, err := loadDirectory()
	if err != nil {
		return err
	}

	homes := dir.Homes()
	if jsonOutput() {
		return printJSON(homes)
	}

	rows := [][]string{}
	for _, h := range homes {
		for _, c := range h.Cameras {
			rows = append(rows, deviceRow(h, c.ID, c.Type, c.Name, c.Status))
		}
		for _, m := range h.SmokeDetectors {
			rows = append(rows, deviceRow(h, m.ID, m.Type, m.Name, m.Status))
		}
		if len(h.Cameras)+len(h.SmokeDetectors) == 0 {
			rows = append(rows, deviceRow(h, "-", "-", "-", "-"))
		}
	}

	return printTable([]string{"HOME", "HOME ID", "PERSONS", "DEVICE", "TYPE", "NAME", "STATUS"}, rows)
}

func deviceRow(h camera.Home, id, typ, name, status string) []string {
	return []string{h.Name, h.ID, strconv.Itoa(len(h.Persons)), id, typ, name, status}
}
