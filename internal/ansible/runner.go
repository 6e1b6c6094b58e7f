// Package ansible drives ansible and ansible-playbook against the kollacli
// inventory.
//
// Every run renders the inventory (optionally filtered) into a temporary
// dynamic inventory script, invokes the Ansible binary as the admin user
// and removes the script afterwards.
package ansible

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/kollacli/internal/inventory"
	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
	"github.com/shinji-kodama/kollacli/internal/shell"
)

// Runner invokes Ansible binaries.
type Runner struct {
	exec        shell.Executor
	ansibleBin  string
	playbookBin string

	// sudoUser, when set, runs every command through "sudo -u".
	sudoUser string

	logger zerolog.Logger
}

// Options configures a Runner.
type Options struct {
	AnsibleBin  string
	PlaybookBin string
	SudoUser    string
}

// NewRunner returns a Runner using exe to start processes.
func NewRunner(exe shell.Executor, opts Options) *Runner {
	if opts.AnsibleBin == "" {
		opts.AnsibleBin = "ansible"
	}
	if opts.PlaybookBin == "" {
		opts.PlaybookBin = "ansible-playbook"
	}
	return &Runner{
		exec:        exe,
		ansibleBin:  opts.AnsibleBin,
		playbookBin: opts.PlaybookBin,
		sudoUser:    opts.SudoUser,
		logger:      xlog.WithComponent("ansible"),
	}
}

// CheckHost pings hostname with the ansible ping module. With resultOnly
// set, failures are reported as false instead of an error.
func (r *Runner) CheckHost(ctx context.Context, inv *inventory.Inventory, hostname string, resultOnly bool) (bool, error) {
	genPath, err := inv.CreateJSONGenFile(nil)
	if err != nil {
		return false, model.WrapCLIError(model.ExitAnsibleError, "failed to create inventory", err)
	}
	defer removeGenFile(genPath)

	cmd := shell.AsUser(r.sudoUser, shell.Command{
		Name: r.ansibleBin,
		Args: []string{"-i", genPath, hostname, "-m", "ping"},
	})
	r.logger.Debug().Str("cmd", cmd.String()).Msg("checking host")

	errMsg, output, err := shell.RunCmd(ctx, r.exec, cmd)
	if err != nil {
		return false, model.WrapCLIError(model.ExitAnsibleError, fmt.Sprintf("Host (%s) check failed", hostname), err)
	}
	if errMsg != "" {
		if resultOnly {
			return false, nil
		}
		return false, model.Errorf(model.ExitAnsibleError, "Host (%s) check failed : %s %s", hostname, errMsg, output)
	}
	if !resultOnly {
		r.logger.Info().Str("host", hostname).Msg("host check succeeded")
	}
	return true, nil
}

// RunPlaybook validates pb against inv and runs it. The combined output
// of ansible-playbook is returned on success and on failure.
func (r *Runner) RunPlaybook(ctx context.Context, inv *inventory.Inventory, pb *Playbook) (string, error) {
	if err := pb.Validate(inv); err != nil {
		return "", err
	}

	genPath, err := inv.CreateJSONGenFile(pb.Filter())
	if err != nil {
		return "", model.WrapCLIError(model.ExitAnsibleError, "failed to create inventory", err)
	}
	defer removeGenFile(genPath)

	cmd := shell.AsUser(r.sudoUser, shell.Command{
		Name: r.playbookBin,
		Args: pb.Args(genPath),
	})
	r.logger.Info().Str("playbook", pb.Path).Strs("hosts", pb.Hosts).
		Strs("groups", pb.Groups).Strs("services", pb.Services).Msg("running playbook")
	r.logger.Debug().Str("cmd", cmd.String()).Msg("ansible-playbook command")

	errMsg, output, err := shell.RunCmd(ctx, r.exec, cmd)
	if err != nil {
		return "", model.WrapCLIError(model.ExitAnsibleError, "failed to run ansible-playbook", err)
	}
	if errMsg != "" {
		return output, model.Errorf(model.ExitAnsibleError, "%s\n%s", errMsg, output)
	}
	return output, nil
}

func removeGenFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger := xlog.WithComponent("ansible")
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove inventory script")
	}
}
