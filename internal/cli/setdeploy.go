package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/inventory"
	"github.com/shinji-kodama/kollacli/internal/model"
)

func newSetdeployCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setdeploy <local | remote>",
		Short: "Set the deploy mode",
		Long: `Set the deploy mode to local or remote.

Local deploys OpenStack on this host and allows a single host in the
inventory. Remote deploys to the inventory hosts over SSH.`,
		Args: exactArgs(1, "<local | remote>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := model.ParseDeployMode(strings.TrimSpace(args[0]))
			if err != nil {
				return model.NewCLIError(model.ExitInvalidArgument,
					`Invalid deploy mode. Mode must be either "local" or "remote"`)
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.SetDeployMode(mode.IsRemote())
			})
		},
	}
}
