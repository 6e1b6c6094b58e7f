package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/inventory"
)

func newServiceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage where services are deployed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newServiceAddGroupCommand(a),
		newServiceRemoveGroupCommand(a),
		newServiceListCommand(a),
		newServiceListGroupsCommand(a),
	)
	return cmd
}

func newServiceAddGroupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "addgroup <servicename> <groupname>",
		Short: "Deploy a service to a group",
		Args:  exactArgs(2, "<servicename> <groupname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := argName("service", args[0])
			if err != nil {
				return err
			}
			group, err := argName("group", args[1])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.AddGroupToService(group, service)
			})
		},
	}
}

func newServiceRemoveGroupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "removegroup <servicename> <groupname>",
		Short: "Stop deploying a service to a group",
		Args:  exactArgs(2, "<servicename> <groupname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := argName("service", args[0])
			if err != nil {
				return err
			}
			group, err := argName("group", args[1])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.RemoveGroupFromService(group, service)
			})
		},
	}
}

func newServiceListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List services and their sub-services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.inventoryStore().Load()
			if err != nil {
				return err
			}
			subs := inv.ServiceSubServices()
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), subs)
			}

			rows := make([][]string, 0, len(subs))
			for _, name := range inv.ServiceNames() {
				rows = append(rows, []string{name, listOrDash(subs[name])})
			}
			printTable(cmd.OutOrStdout(), []string{"Service", "Sub-Services"}, rows)
			return nil
		},
	}
}

type serviceGroupsJSON struct {
	Groups  []string `json:"groups"`
	Inherit *bool    `json:"inherit,omitempty"`
}

func newServiceListGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listgroups",
		Short: "List services and the groups they are deployed to",
		Long: `List services and sub-services with the groups they are deployed to.

A sub-service that inherits is deployed wherever its parent service is;
its groups are shown as the parent's name in brackets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.inventoryStore().Load()
			if err != nil {
				return err
			}
			placement := inv.ServiceGroups()

			if a.jsonOutput {
				out := make(map[string]serviceGroupsJSON, len(placement))
				for name, sg := range placement {
					out[name] = serviceGroupsJSON(sg)
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			names := make([]string, 0, len(placement))
			for name := range placement {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				sg := placement[name]
				groups := listOrDash(sg.Groups)
				inherit := "-"
				if sg.Inherit != nil {
					inherit = strconv.FormatBool(*sg.Inherit)
					if *sg.Inherit {
						groups = "[" + inv.SubService(name).ParentServiceName + "]"
					}
				}
				rows = append(rows, []string{name, groups, inherit})
			}
			printTable(cmd.OutOrStdout(), []string{"Service", "Groups", "Inherit"}, rows)
			return nil
		},
	}
}
