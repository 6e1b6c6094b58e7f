// Package cli implements the cobra-based commands of kollacli.
//
// Commands are grouped by the object they manage (host, group, service,
// property, password) with one file per group. This file defines the
// root command, global flags and the shared output helpers.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/kollacli/internal/ansible"
	"github.com/shinji-kodama/kollacli/internal/config"
	"github.com/shinji-kodama/kollacli/internal/docker"
	"github.com/shinji-kodama/kollacli/internal/hostsetup"
	"github.com/shinji-kodama/kollacli/internal/inventory"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
	"github.com/shinji-kodama/kollacli/internal/passwords"
	"github.com/shinji-kodama/kollacli/internal/properties"
	"github.com/shinji-kodama/kollacli/internal/shell"
)

// Version, Commit and Date are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// app holds the global flags and the services a command needs. A fresh
// app is built for every root command so commands can run in-process
// (dump collects list output that way, and so do the tests).
type app struct {
	jsonOutput bool
	verbose    int

	cfg config.Config

	// exec starts ansible; replaced in tests.
	exec shell.Executor

	// newDocker connects to the local Docker daemon; replaced in tests.
	newDocker func() (*docker.Client, error)

	// readPassword prompts on the terminal; replaced in tests.
	readPassword func(prompt string) (string, error)

	// keyInstaller copies the admin key during host setup.
	keyInstaller hostsetup.KeyInstaller
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{
		exec:         shell.NewOSExecutor(),
		newDocker:    docker.NewClient,
		readPassword: readTerminalPassword,
		keyInstaller: &hostsetup.SSHInstaller{},
	})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kollacli",
		Short: "Deploy and manage OpenStack with Kolla",
		Long: `kollacli manages the inventory of hosts, groups and services used by
Kolla to deploy OpenStack in Docker containers, the deployment properties
and passwords, and runs the Ansible playbooks that perform the deploy.`,

		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return err
			}
			logger := xlog.Derive(func(c *zerolog.Context) {
				*c = c.Str("command", cmd.CommandPath())
			})
			cmd.SetContext(xlog.WithContext(cmd.Context(), logger))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v",
		"Increase verbosity (repeat for more, also passed to ansible)")

	rootCmd.AddCommand(newHostCommand(a))
	rootCmd.AddCommand(newGroupCommand(a))
	rootCmd.AddCommand(newServiceCommand(a))
	rootCmd.AddCommand(newPropertyCommand(a))
	rootCmd.AddCommand(newPasswordCommand(a))
	rootCmd.AddCommand(newDeployCommand(a))
	rootCmd.AddCommand(newSetdeployCommand(a))
	rootCmd.AddCommand(newDumpCommand(a))

	return rootCmd
}

// init loads the configuration and sets up logging once flags are parsed.
func (a *app) init() error {
	level := ""
	switch {
	case a.verbose >= 2:
		level = "debug"
	case a.verbose == 1:
		level = "info"
	case os.Getenv("KOLLACLI_LOG_LEVEL") == "":
		level = "warn"
	}
	xlog.Configure(xlog.Config{Level: level})

	cfg, err := config.Load()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) inventoryStore() *inventory.Store {
	return inventory.NewStore(a.cfg.InventoryPath(), a.cfg.AdminUser)
}

// playbookVarFiles are passed to every ansible-playbook run.
func (a *app) playbookVarFiles() []string {
	return []string{a.cfg.GlobalsPath(), a.cfg.PasswordsPath()}
}

func (a *app) propertyStore() *properties.Store {
	return properties.NewStore(a.cfg.GlobalsPath())
}

func (a *app) passwordStore() *passwords.Store {
	return passwords.NewStore(a.cfg.PasswordsPath())
}

// runner returns an Ansible runner. Commands run as the admin user unless
// kollacli already runs as that user.
func (a *app) runner() *ansible.Runner {
	sudoUser := a.cfg.AdminUser
	if u, err := user.Current(); err == nil && u.Username == sudoUser {
		sudoUser = ""
	}
	return ansible.NewRunner(a.exec, ansible.Options{
		AnsibleBin:  a.cfg.AnsibleBin,
		PlaybookBin: a.cfg.PlaybookBin,
		SudoUser:    sudoUser,
	})
}

// verboseLog writes to stderr only when -v is given.
func (a *app) verboseLog(cmd *cobra.Command, format string, args ...interface{}) {
	if a.verbose > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "[verbose] "+format+"\n", args...)
	}
}

// Execute runs the root command and exits with the code carried by a
// CLIError, or 1 for any other error.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("json")
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(os.Stderr, jsonOutput, cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}
	printError(os.Stderr, jsonOutput, err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError writes an error as "Error: ..." text or as a JSON object.
func printError(w io.Writer, jsonOutput bool, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"message": message,
		}
		if underlying != nil {
			errObj["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printTable writes rows under headers in aligned columns. An empty table
// prints the headers only.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				parts[i] = cell
				continue
			}
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	upper := make([]string, len(headers))
	for i, h := range headers {
		upper[i] = strings.ToUpper(h)
	}
	line(upper)
	for _, row := range rows {
		line(row)
	}
}

// listOrDash renders a list cell.
func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}

// exactArgs is cobra.ExactArgs with kollacli's exit code.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return model.Errorf(model.ExitInvalidArgument, "usage: %s %s", cmd.CommandPath(), usage)
		}
		return nil
	}
}

// argName trims an argument and validates it as an object name.
func argName(kind, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if err := model.ValidateName(name); err != nil {
		return "", model.WrapCLIError(model.ExitInvalidArgument, fmt.Sprintf("invalid %s name", kind), err)
	}
	return name, nil
}
