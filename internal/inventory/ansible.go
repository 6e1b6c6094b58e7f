package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// Filter narrows the Ansible inventory to a subset of hosts and groups.
// A nil slice means "no restriction".
type Filter struct {
	Hosts  []string
	Groups []string
}

// ansibleGroup is a group entry of an Ansible dynamic inventory.
type ansibleGroup struct {
	Hosts    []string          `json:"hosts"`
	Children []string          `json:"children"`
	Vars     map[string]string `json:"vars"`
}

// AnsibleJSON renders the inventory in Ansible dynamic inventory format:
//
//	{
//	  "control": {"hosts": ["node1"], "children": [], "vars": {...}},
//	  "nova":    {"children": ["control"]},
//	  "nova-api": {"children": ["nova"]},
//	  "__RESERVED__": {"hosts": ["node1", "node2"], "children": [], "vars": {...}},
//	  "_meta": {"hostvars": {"node1": {...}}}
//	}
//
// Group host lists are restricted to the filter's hosts and groups so a
// deploy can target part of the cluster. The reserved group lists every
// deploy host so that ad hoc commands reach hosts not yet in any group.
func (inv *Inventory) AnsibleJSON(filter *Filter) ([]byte, error) {
	deployHosts := inv.Hostnames()
	deployGroups := inv.GroupNames()
	if filter != nil {
		if filter.Hosts != nil {
			deployHosts = filter.Hosts
		}
		if filter.Groups != nil {
			deployGroups = filter.Groups
		}
	}

	out := make(map[string]interface{}, len(inv.groups)+len(inv.services)+len(inv.subServices)+2)

	// Step 1: deploy groups. Every group is emitted so services can name
	// it as a child, but only groups selected by the filter carry hosts.
	for _, g := range inv.Groups() {
		entry := ansibleGroup{Hosts: []string{}, Children: []string{}, Vars: g.GetVars()}
		if slices.Contains(deployGroups, g.Name) {
			entry.Hosts = filterHosts(g.Hostnames, deployHosts)
		}
		out[g.Name] = entry
	}

	// Step 2: services are pure parent groups whose children are the
	// deploy groups they run on.
	for _, svc := range inv.services {
		out[svc.Name] = map[string]interface{}{
			"children": append([]string{}, svc.GroupNames...),
		}
	}

	// Step 3: a sub-service either names its own groups or, when it
	// inherits, points at its parent service.
	for _, sub := range inv.subServices {
		children := append([]string{}, sub.GroupNames...)
		if len(children) == 0 && sub.ParentServiceName != "" {
			children = []string{sub.ParentServiceName}
		}
		out[sub.Name] = map[string]interface{}{"children": children}
	}

	// Step 4: the reserved group holds every deploy host with the
	// connection vars of the current deploy mode.
	reserved := NewHostGroup(ReservedGroup)
	reserved.SetRemote(inv.remoteMode, inv.adminUser)
	out[ReservedGroup] = ansibleGroup{
		Hosts:    append([]string{}, deployHosts...),
		Children: []string{},
		Vars:     reserved.GetVars(),
	}

	// Step 5: _meta.hostvars lets ansible skip a --host call per host.
	// Filter entries naming unknown hosts get no vars.
	hostVars := make(map[string]map[string]string, len(deployHosts))
	for _, name := range deployHosts {
		if h := inv.Host(name); h != nil {
			hostVars[name] = h.GetVars()
		}
	}
	out["_meta"] = map[string]interface{}{"hostvars": hostVars}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("render ansible inventory: %w", err)
	}
	return data, nil
}

// filterHosts returns the members of deployHosts that are in groupHosts,
// in deployHosts order.
func filterHosts(groupHosts, deployHosts []string) []string {
	out := []string{}
	for _, h := range deployHosts {
		if slices.Contains(groupHosts, h) {
			out = append(out, h)
		}
	}
	return out
}

// genFileHeredoc terminates the here-document in generated inventory
// scripts. json.Marshal output is a single line, so it cannot collide.
const genFileHeredoc = "KOLLACLI_INVENTORY_EOF"

// CreateJSONGenFile writes an executable inventory script that prints the
// filtered Ansible inventory, suitable for "ansible -i <path>". The caller
// must remove the file when done.
func (inv *Inventory) CreateJSONGenFile(filter *Filter) (string, error) {
	data, err := inv.AnsibleJSON(filter)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "kollacli_json_gen_*.sh")
	if err != nil {
		return "", fmt.Errorf("create inventory script: %w", err)
	}
	path := f.Name()

	script := fmt.Sprintf("#!/bin/sh\ncat <<'%s'\n%s\n%s\n", genFileHeredoc, data, genFileHeredoc)
	if _, err := f.WriteString(script); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write inventory script: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write inventory script: %w", err)
	}

	// Readable and executable by the group so ansible can run it under
	// the admin user.
	if err := os.Chmod(path, 0o555); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("chmod inventory script: %w", err)
	}
	return path, nil
}
