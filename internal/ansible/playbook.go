package ansible

import (
	"sort"
	"strings"

	"github.com/shinji-kodama/kollacli/internal/inventory"
	"github.com/shinji-kodama/kollacli/internal/model"
)

// Playbook describes one ansible-playbook invocation.
type Playbook struct {
	// Path is the playbook file (site.yml, destroy.yml, ...).
	Path string

	// Hosts and Groups restrict the deploy; at most one may be set.
	Hosts  []string
	Groups []string

	// Services become --tags so only those roles run.
	Services []string

	// Serial deploys one host at a time.
	Serial bool

	// Verbose is the number of -v flags passed to ansible-playbook.
	Verbose int

	// VarFiles are passed as "-e @file" (globals.yml, passwords.yml).
	VarFiles []string

	// ExtraVars are passed as a single "-e k=v k=v" argument.
	ExtraVars map[string]string
}

// Validate checks the playbook targets against the inventory.
func (p *Playbook) Validate(inv *inventory.Inventory) error {
	if len(p.Hosts) > 0 && len(p.Groups) > 0 {
		return model.NewCLIError(model.ExitInvalidArgument,
			"Hosts and Groups arguments cannot both be present at the same time.")
	}
	for _, h := range p.Hosts {
		if !inv.HasHost(h) {
			return model.Errorf(model.ExitNotFound, "Host (%s) not found.", h)
		}
	}
	for _, g := range p.Groups {
		if inv.Group(g) == nil {
			return model.Errorf(model.ExitNotFound, "Group (%s) not found.", g)
		}
	}
	for _, s := range p.Services {
		if !inv.IsService(s) {
			return model.Errorf(model.ExitNotFound, "Service (%s) not found.", s)
		}
	}
	return nil
}

// Filter returns the inventory filter matching the playbook targets.
func (p *Playbook) Filter() *inventory.Filter {
	if len(p.Hosts) == 0 && len(p.Groups) == 0 {
		return nil
	}
	f := &inventory.Filter{}
	if len(p.Hosts) > 0 {
		f.Hosts = p.Hosts
	}
	if len(p.Groups) > 0 {
		f.Groups = p.Groups
	}
	return f
}

// Args builds the ansible-playbook argument list for the inventory script
// at inventoryPath.
func (p *Playbook) Args(inventoryPath string) []string {
	args := []string{"-i", inventoryPath}
	for _, f := range p.VarFiles {
		args = append(args, "-e", "@"+f)
	}

	extra := make(map[string]string, len(p.ExtraVars)+1)
	for k, v := range p.ExtraVars {
		extra[k] = v
	}
	if p.Serial {
		extra["serial_var"] = "1"
	}
	if len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+extra[k])
		}
		args = append(args, "-e", strings.Join(pairs, " "))
	}

	if len(p.Services) > 0 {
		args = append(args, "--tags", strings.Join(p.Services, ","))
	}
	if len(p.Hosts) > 0 {
		args = append(args, "--limit", strings.Join(p.Hosts, ","))
	} else if len(p.Groups) > 0 {
		args = append(args, "--limit", strings.Join(p.Groups, ","))
	}
	if p.Verbose > 0 {
		args = append(args, "-"+strings.Repeat("v", p.Verbose))
	}

	return append(args, p.Path)
}
