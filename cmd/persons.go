package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jake-scott/netatmo-cameras/internal/pkg/camera"
)

var personsCmd = &cobra.Command{
	Use:   "persons [home-id]",
	Short: "List known persons, or the persons at home in one home",
	Args:  cobra.MaximumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doPersons(args); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

var personsAwayCmd = &cobra.Command{
	Use:   "away <home-id> [person-name...]",
	Short: "Mark persons as away, or the whole home when no names are given",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return doPersonsCommand(args, (*camera.Directory).SetPersonsAway)
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

var personsHomeCmd = &cobra.Command{
	Use:   "home <home-id> [person-name...]",
	Short: "Mark persons as at home",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		return doPersonsCommand(args, (*camera.Directory).SetPersonsHome)
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkAccountFlags()
	},
}

func init() {
	personsCmd.AddCommand(personsAwayCmd)
	personsCmd.AddCommand(personsHomeCmd)
	rootCmd.AddCommand(personsCmd)
}

type personsResult struct {
	HomeID string            `json:"home_id,omitempty"`
	AtHome []string          `json:"at_home,omitempty"`
	Known  map[string]string `json:"known,omitempty"`
}

func doPersons(args []string) error {
	dir, err := loadDirectory()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		atHome := dir.PersonsAtHome(args[0])
		if atHome == nil {
			return errors.Wrapf(camera.ErrNoDevice, "home %q", args[0])
		}

		if jsonOutput() {
			return printJSON(personsResult{HomeID: args[0], AtHome: atHome})
		}
		for _, name := range atHome {
			fmt.Println(name)
		}
		return nil
	}

	known := map[string]string{}
	names := dir.KnownPersonsNames()
	for _, name := range names {
		known[name] = dir.GetPersonID(name)
	}

	if jsonOutput() {
		return printJSON(personsResult{Known: known})
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, known[name]})
	}
	return printTable([]string{"NAME", "PERSON ID"}, rows)
}

// doPersonsCommand resolves person names to IDs and runs command
func doPersonsCommand(args []string, command func(*camera.Directory, string, ...string) (string, error)) error {
	dir, err := loadDirectory()
	if err != nil {
		return err
	}

	homeID := args[0]
	personIDs := make([]string, 0, len(args)-1)
	for _, name := range args[1:] {
		id := dir.GetPersonID(name)
		if id == "" {
			return errors.Errorf("no known person named %q", name)
		}
		personIDs = append(personIDs, id)
	}

	status, err := command(dir, homeID, personIDs...)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(map[string]string{"status": status})
	}
	fmt.Println(status)
	return nil
}
