package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/ansible"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
)

// swiftRingFiles must exist before swift can be deployed.
var swiftRingFiles = []string{"account.ring.gz", "container.ring.gz", "object.ring.gz"}

type deployFlags struct {
	hosts    string
	groups   string
	services string
	serial   bool
}

func newDeployCommand(a *app) *cobra.Command {
	flags := &deployFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy OpenStack to the inventory hosts",
		Long: `Run the Kolla site playbook against the inventory.

The deploy can be limited to some hosts or some groups (not both) and to
some services. Lists are comma separated.

Examples:
  kollacli deploy
  kollacli deploy --hosts node1,node2 --services nova,glance
  kollacli deploy --groups compute --serial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDeploy(cmd.Context(), cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.hosts, "hosts", "", "Comma separated list of hosts to deploy to")
	cmd.Flags().StringVar(&flags.groups, "groups", "", "Comma separated list of groups to deploy to")
	cmd.Flags().StringVar(&flags.services, "services", "", "Comma separated list of services to deploy")
	cmd.Flags().BoolVar(&flags.serial, "serial", false, "Deploy to one host at a time")

	return cmd
}

func (a *app) runDeploy(ctx context.Context, cmd *cobra.Command, flags *deployFlags) error {
	hosts := model.SplitList(flags.hosts)
	groups := model.SplitList(flags.groups)
	if len(hosts) > 0 && len(groups) > 0 {
		return model.NewCLIError(model.ExitInvalidArgument,
			"Hosts and Groups arguments cannot both be present at the same time.")
	}

	if err := a.checkDeployRules(); err != nil {
		return err
	}

	inv, err := a.inventoryStore().Load()
	if err != nil {
		return err
	}

	pb := &ansible.Playbook{
		Path:     a.cfg.SitePlaybook(),
		Hosts:    hosts,
		Groups:   groups,
		Services: model.SplitList(flags.services),
		Serial:   flags.serial,
		Verbose:  a.verbose,
		VarFiles: a.playbookVarFiles(),
	}
	a.verboseLog(cmd, "Deploying with %s", strings.Join(pb.Args("<inventory>"), " "))

	logger := xlog.FromContext(ctx)
	logger.Info().Strs("hosts", hosts).Strs("groups", groups).Bool("serial", flags.serial).Msg("deploy started")
	output, err := a.runner().RunPlaybook(ctx, inv, pb)
	if a.verbose > 0 && output != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), output)
	}
	if err != nil {
		logger.Error().Err(err).Msg("deploy failed")
		return err
	}
	logger.Info().Msg("deploy finished")
	fmt.Fprintln(cmd.OutOrStdout(), "Success")
	return nil
}

// checkDeployRules rejects deploys that are known to fail: swift needs its
// ring files in the config directory.
func (a *app) checkDeployRules() error {
	swift, err := a.propertyEnabled("enable_swift")
	if err != nil {
		return err
	}
	if !swift {
		return nil
	}
	for _, f := range swiftRingFiles {
		info, err := os.Stat(filepath.Join(a.cfg.SwiftConfigDir(), f))
		if err != nil || !info.Mode().IsRegular() {
			return model.NewCLIError(model.ExitInvalidArgument,
				"Deploy failed. Swift is enabled but ring buffers have not yet been set up. "+
					"Please see the documentation for swift configuration instructions.")
		}
	}
	return nil
}
