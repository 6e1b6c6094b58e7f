package cli

import (
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/inventory"
)

func newGroupCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage host groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newGroupAddCommand(a),
		newGroupRemoveCommand(a),
		newGroupAddHostCommand(a),
		newGroupRemoveHostCommand(a),
		newGroupListHostsCommand(a),
		newGroupListServicesCommand(a),
	)
	return cmd
}

func newGroupAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <groupname>",
		Short: "Add a group",
		Args:  exactArgs(1, "<groupname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := argName("group", args[0])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				_, err := inv.AddGroup(name)
				return err
			})
		},
	}
}

func newGroupRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <groupname>",
		Short: "Remove a group",
		Args:  exactArgs(1, "<groupname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := argName("group", args[0])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.RemoveGroup(name)
			})
		},
	}
}

func newGroupAddHostCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "addhost <groupname> <hostname>",
		Short: "Add a host to a group",
		Args:  exactArgs(2, "<groupname> <hostname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := argName("group", args[0])
			if err != nil {
				return err
			}
			host, err := argName("host", args[1])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.AddHost(host, group)
			})
		},
	}
}

func newGroupRemoveHostCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "removehost <groupname> <hostname>",
		Short: "Remove a host from a group",
		Args:  exactArgs(2, "<groupname> <hostname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := argName("group", args[0])
			if err != nil {
				return err
			}
			host, err := argName("host", args[1])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.RemoveHost(host, group)
			})
		},
	}
}

func newGroupListHostsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listhosts",
		Short: "List groups and their hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.inventoryStore().Load()
			if err != nil {
				return err
			}
			return a.printGroupMap(cmd.OutOrStdout(), "Hosts", inv.GroupHosts())
		},
	}
}

func newGroupListServicesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listservices",
		Short: "List groups and the services placed in them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.inventoryStore().Load()
			if err != nil {
				return err
			}
			return a.printGroupMap(cmd.OutOrStdout(), "Services", inv.GroupServices())
		},
	}
}

// printGroupMap prints group -> names, sorted by group. In JSON mode the
// map is printed as-is.
func (a *app) printGroupMap(w io.Writer, column string, m map[string][]string) error {
	if a.jsonOutput {
		return printJSON(w, m)
	}
	groups := make([]string, 0, len(m))
	for g := range m {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{g, listOrDash(m[g])})
	}
	printTable(w, []string{"Group", column}, rows)
	return nil
}
