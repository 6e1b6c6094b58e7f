package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/dump"
)

// dumpListCommands are run in-process and their output is stored in the
// dump's cmds_output entry.
var dumpListCommands = [][]string{
	{"service", "listgroups"},
	{"service", "list"},
	{"group", "listservices"},
	{"group", "listhosts"},
	{"host", "list"},
	{"property", "list"},
	{"password", "list"},
}

func newDumpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Dump configuration and logs for debugging",
		Long: `Collect the Kolla playbooks, configuration, logs and the output of the
list commands into a tar file that can be handed to support.

passwords.yml and the kolla admin SSH keys are never included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := dump.Create(cmd.Context(), dump.Options{
				Sources:  dump.DefaultSources(a.cfg),
				Sections: a.dumpSections(),
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dump successful to %s\n", path)
			return nil
		},
	}
}

func (a *app) dumpSections() []dump.Section {
	sections := make([]dump.Section, 0, len(dumpListCommands)+2)
	for _, args := range dumpListCommands {
		sections = append(sections, dump.Section{
			Title: "kollacli " + strings.Join(args, " "),
			Run: func(ctx context.Context) (string, error) {
				return a.runInProcess(ctx, args)
			},
		})
	}

	sections = append(sections,
		dump.Section{
			Title: "ansible inventory",
			Run: func(context.Context) (string, error) {
				inv, err := a.inventoryStore().Load()
				if err != nil {
					return "", err
				}
				data, err := inv.AnsibleJSON(nil)
				return string(data), err
			},
		},
		dump.Section{
			Title: "kolla containers",
			Run:   a.containerListing,
		},
	)
	return sections
}

// runInProcess executes a kollacli command with fresh flags and returns
// what it printed. The nested command inherits -v but never --json.
func (a *app) runInProcess(ctx context.Context, args []string) (string, error) {
	sub := &app{
		verbose:      a.verbose,
		exec:         a.exec,
		newDocker:    a.newDocker,
		readPassword: a.readPassword,
		keyInstaller: a.keyInstaller,
	}
	root := newRootCommand(sub)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (a *app) containerListing(ctx context.Context) (string, error) {
	cli, err := a.newDocker()
	if err != nil {
		return "", err
	}
	defer func() { _ = cli.Close() }()

	containers, err := cli.ListKollaContainers(ctx)
	if err != nil {
		return "", err
	}
	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		rows = append(rows, []string{c.Name, c.Image, c.State, c.Status})
	}
	var out bytes.Buffer
	printTable(&out, []string{"Name", "Image", "State", "Status"}, rows)
	return out.String(), nil
}
