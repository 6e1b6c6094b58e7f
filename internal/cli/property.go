package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPropertyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage deployment properties in globals.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <propertyname> <value>",
			Short: "Set a property",
			Args:  exactArgs(2, "<propertyname> <value>"),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := argName("property", args[0])
				if err != nil {
					return err
				}
				return a.propertyStore().Set(name, args[1])
			},
		},
		&cobra.Command{
			Use:   "clear <propertyname>",
			Short: "Remove a property so the Kolla default applies",
			Args:  exactArgs(1, "<propertyname>"),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := argName("property", args[0])
				if err != nil {
					return err
				}
				return a.propertyStore().Clear(name)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List all properties",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				props, err := a.propertyStore().List()
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return printJSON(cmd.OutOrStdout(), props)
				}
				rows := make([][]string, 0, len(props))
				for _, p := range props {
					rows = append(rows, []string{p.Name, p.Value})
				}
				printTable(cmd.OutOrStdout(), []string{"Property Name", "Property Value"}, rows)
				return nil
			},
		},
	)
	return cmd
}

// propertyEnabled reports whether a yes/no property is "yes".
func (a *app) propertyEnabled(name string) (bool, error) {
	v, _, err := a.propertyStore().Get(name)
	if err != nil {
		return false, fmt.Errorf("read property %s: %w", name, err)
	}
	return v == "yes", nil
}
