package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jake-scott/netatmo-cameras/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version number of the tool",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doVersion(); err != nil {
			return err
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type versionResult struct {
	Version string `json:"version"`
}

func doVersion() error {
	if jsonOutput() {
		return printJSON(versionResult{Version: version.Version})
	}

	fmt.Printf("%s version %s\n", version.Name, version.Version)
	return nil
}
