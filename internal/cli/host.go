package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/ansible"
	"github.com/shinji-kodama/kollacli/internal/docker"
	"github.com/shinji-kodama/kollacli/internal/hostsetup"
	"github.com/shinji-kodama/kollacli/internal/inventory"
	"github.com/shinji-kodama/kollacli/internal/model"
)

// allHosts selects every host in commands that accept a host name.
const allHosts = "all"

func newHostCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Manage deployment hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newHostAddCommand(a),
		newHostRemoveCommand(a),
		newHostListCommand(a),
		newHostCheckCommand(a),
		newHostSetupCommand(a),
		newHostDestroyCommand(a),
	)
	return cmd
}

func newHostAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <hostname>",
		Short: "Add a host to the inventory",
		Args:  exactArgs(1, "<hostname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			hostname, err := argName("host", args[0])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				return inv.AddHost(hostname, "")
			})
		},
	}
}

func newHostRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hostname | all>",
		Short: "Remove a host, or all hosts, from the inventory",
		Args:  exactArgs(1, "<hostname | all>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			hostname, err := argName("host", args[0])
			if err != nil {
				return err
			}
			return a.inventoryStore().Update(func(inv *inventory.Inventory) error {
				targets := []string{hostname}
				if hostname == allHosts {
					targets = inv.Hostnames()
				}
				for _, h := range targets {
					if err := inv.RemoveHost(h, ""); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

type hostListEntry struct {
	Host   string   `json:"host"`
	Groups []string `json:"groups"`
}

func newHostListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [hostname]",
		Short: "List hosts and the groups they belong to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.inventoryStore().Load()
			if err != nil {
				return err
			}

			hostGroups := inv.HostGroups()
			hostnames := inv.Hostnames()
			if len(args) == 1 {
				hostname, err := argName("host", args[0])
				if err != nil {
					return err
				}
				if !inv.HasHost(hostname) {
					return model.Errorf(model.ExitNotFound, "Host (%s) does not exist.", hostname)
				}
				hostnames = []string{hostname}
			}

			entries := make([]hostListEntry, 0, len(hostnames))
			for _, h := range hostnames {
				groups := hostGroups[h]
				if groups == nil {
					groups = []string{}
				}
				entries = append(entries, hostListEntry{Host: h, Groups: groups})
			}
			return a.printHostList(cmd.OutOrStdout(), entries)
		},
	}
}

func (a *app) printHostList(w io.Writer, entries []hostListEntry) error {
	if a.jsonOutput {
		return printJSON(w, entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Host, listOrDash(e.Groups)})
	}
	printTable(w, []string{"Host", "Groups"}, rows)
	return nil
}

type hostCheckEntry struct {
	Host    string `json:"host"`
	Success bool   `json:"success"`
}

func newHostCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <hostname | all>",
		Short: "Check that hosts are reachable through Ansible",
		Args:  exactArgs(1, "<hostname | all>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.inventoryStore().Load()
			if err != nil {
				return err
			}
			hostnames, err := resolveHosts(inv, args[0])
			if err != nil {
				return err
			}

			runner := a.runner()
			results := make([]hostCheckEntry, 0, len(hostnames))
			for _, h := range hostnames {
				a.verboseLog(cmd, "Checking host %s", h)
				if _, err := runner.CheckHost(cmd.Context(), inv, h, false); err != nil {
					return err
				}
				results = append(results, hostCheckEntry{Host: h, Success: true})
			}

			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), results)
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "Host (%s): success\n", r.Host)
			}
			return nil
		},
	}
}

// resolveHosts expands "all" and checks that a named host exists.
func resolveHosts(inv *inventory.Inventory, hostname string) ([]string, error) {
	if hostname == allHosts {
		return inv.Hostnames(), nil
	}
	if !inv.HasHost(hostname) {
		return nil, model.Errorf(model.ExitNotFound, "Host (%s) does not exist.", hostname)
	}
	return []string{hostname}, nil
}

type hostSetupFlags struct {
	insecure string
	file     string
}

func newHostSetupCommand(a *app) *cobra.Command {
	flags := &hostSetupFlags{}

	cmd := &cobra.Command{
		Use:   "setup <hostname> | --file <hosts.yml>",
		Short: "Install the kolla admin SSH key on hosts",
		Long: `Log into a host with a password and install the kolla admin user's
public key so Ansible can reach it without one.

With --file, every host listed in a YAML file is set up:

  node1:
    password: secret
    uname: root   # optional, defaults to the kolla admin user

Examples:
  kollacli host setup node1
  kollacli host setup --file hosts.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHostSetup(cmd.Context(), cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.insecure, "insecure", "", "Password given on the command line instead of prompting")
	_ = cmd.Flags().MarkHidden("insecure")
	cmd.Flags().StringVar(&flags.file, "file", "", "YAML file listing hosts and their passwords")

	return cmd
}

func (a *app) runHostSetup(ctx context.Context, cmd *cobra.Command, args []string, flags *hostSetupFlags) error {
	if flags.file != "" && len(args) > 0 {
		return model.NewCLIError(model.ExitInvalidArgument, "Hostname and hosts file cannot both be given.")
	}
	if flags.file == "" && len(args) == 0 {
		return model.Errorf(model.ExitInvalidArgument, "usage: %s <hostname> | --file <hosts.yml>", cmd.CommandPath())
	}

	inv, err := a.inventoryStore().Load()
	if err != nil {
		return err
	}
	pubKey, err := hostsetup.ReadPublicKey(a.cfg.PublicKeyPath())
	if err != nil {
		return model.WrapCLIError(model.ExitHostSetupError, "kolla admin public key not available", err)
	}
	runner := a.runner()
	setup := hostsetup.New(a.keyInstaller, runner, a.cfg.AdminUser, pubKey)

	if flags.file != "" {
		hosts, err := hostsetup.LoadHostsFile(flags.file)
		if err != nil {
			return err
		}
		return setup.SetupHosts(ctx, inv, hosts)
	}

	hostname := args[0]
	if !inv.HasHost(hostname) {
		return model.Errorf(model.ExitNotFound, "Host (%s) does not exist.", hostname)
	}
	ok, err := runner.CheckHost(ctx, inv, hostname, true)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipping setup of host (%s) as check is ok\n", hostname)
		return nil
	}

	password := flags.insecure
	if password == "" {
		password, err = a.readPassword(fmt.Sprintf("%s password for %s: ", a.cfg.AdminUser, hostname))
		if err != nil {
			return err
		}
	}
	return setup.SetupHost(ctx, inv, hostname, password, "")
}

type hostDestroyFlags struct {
	stop bool
}

func newHostDestroyCommand(a *app) *cobra.Command {
	flags := &hostDestroyFlags{}

	cmd := &cobra.Command{
		Use:   "destroy <hostname | all>",
		Short: "Remove all Kolla containers from hosts",
		Long: `Remove all Kolla containers and their volumes from hosts.

In remote deploy mode the destroy playbook runs against the hosts. In
local mode the containers on this machine are removed through Docker.
Containers are killed unless --stop is given.`,
		Args: exactArgs(1, "<hostname | all>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHostDestroy(cmd.Context(), cmd, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.stop, "stop", false, "Stop containers gracefully before removing them")

	return cmd
}

func (a *app) runHostDestroy(ctx context.Context, cmd *cobra.Command, hostname string, flags *hostDestroyFlags) error {
	inv, err := a.inventoryStore().Load()
	if err != nil {
		return err
	}
	hostnames, err := resolveHosts(inv, hostname)
	if err != nil {
		return err
	}

	if !inv.RemoteMode() {
		return a.destroyLocal(ctx, cmd, flags.stop)
	}

	destroyType := "kill"
	if flags.stop {
		destroyType = "stop"
	}
	pb := &ansible.Playbook{
		Path:      a.cfg.DestroyPlaybook(),
		VarFiles:  a.playbookVarFiles(),
		ExtraVars: map[string]string{"destroy_type": destroyType},
		Verbose:   a.verbose,
	}
	if hostname != allHosts {
		pb.Hosts = hostnames
	}
	output, err := a.runner().RunPlaybook(ctx, inv, pb)
	if a.verbose > 0 && output != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), output)
	}
	return err
}

func (a *app) destroyLocal(ctx context.Context, cmd *cobra.Command, stop bool) error {
	cli, err := a.newDocker()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	res, err := cli.DestroyKollaContainers(ctx, stop)
	if err != nil {
		return err
	}
	return a.printDestroyResult(cmd.OutOrStdout(), res)
}

func (a *app) printDestroyResult(w io.Writer, res *docker.DestroyResult) error {
	if a.jsonOutput {
		return printJSON(w, res)
	}
	if len(res.Removed) == 0 {
		fmt.Fprintln(w, "No Kolla containers found.")
		return nil
	}
	for _, name := range res.Removed {
		fmt.Fprintf(w, "Removed container %s\n", name)
	}
	return nil
}
