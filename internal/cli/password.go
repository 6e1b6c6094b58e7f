package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shinji-kodama/kollacli/internal/model"
)

type passwordSetFlags struct {
	insecure string
}

func newPasswordCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Manage service passwords in passwords.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	setFlags := &passwordSetFlags{}
	setCmd := &cobra.Command{
		Use:   "set <passwordname>",
		Short: "Set a password, prompting for the value",
		Args:  exactArgs(1, "<passwordname>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := argName("password", args[0])
			if err != nil {
				return err
			}
			value := strings.TrimSpace(setFlags.insecure)
			if value == "" {
				if value, err = a.readPassword("Password: "); err != nil {
					return err
				}
			}
			return a.passwordStore().Set(name, value)
		},
	}
	setCmd.Flags().StringVar(&setFlags.insecure, "insecure", "", "Password given on the command line instead of prompting")
	_ = setCmd.Flags().MarkHidden("insecure")

	cmd.AddCommand(
		setCmd,
		&cobra.Command{
			Use:   "clear <passwordname>",
			Short: "Clear a password value",
			Args:  exactArgs(1, "<passwordname>"),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := argName("password", args[0])
				if err != nil {
					return err
				}
				return a.passwordStore().Clear(name)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List password names",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				names, err := a.passwordStore().Names()
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return printJSON(cmd.OutOrStdout(), names)
				}
				rows := make([][]string, 0, len(names))
				for _, n := range names {
					rows = append(rows, []string{n, "-"})
				}
				printTable(cmd.OutOrStdout(), []string{"Password Name", "Password"}, rows)
				return nil
			},
		},
	)
	return cmd
}

// readTerminalPassword prompts on stderr and reads without echo. When
// stdin is not a terminal a single line is read instead.
func readTerminalPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", model.WrapCLIError(model.ExitUserCancelled, "password prompt cancelled", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", model.WrapCLIError(model.ExitUserCancelled, "no password given", err)
	}
	return strings.TrimSpace(line), nil
}
