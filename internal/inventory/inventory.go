// Package inventory models the Kolla deployment inventory: hosts, host
// groups, services and sub-services, and how they map onto each other.
//
// The inventory is persisted as a JSON document under the kollacli etc
// directory (see Store) and rendered on demand into an Ansible dynamic
// inventory (see AnsibleJSON). Every mutation goes through an Inventory
// method so that the relationships stay consistent:
//
//	service ──► groups ──► hosts
//	sub-service ──► groups   (or inherits its parent service's groups)
package inventory

import (
	"fmt"
	"sort"

	"github.com/shinji-kodama/kollacli/internal/model"
)

// CurrentVersion is the inventory document version written by this release.
//
// Version history:
//
//	1: initial release
const CurrentVersion = 1

// Inventory is the aggregate root of the deployment model.
type Inventory struct {
	groups      map[string]*HostGroup
	hosts       map[string]*Host
	services    map[string]*Service
	subServices map[string]*SubService
	vars        map[string]string
	version     int
	remoteMode  bool

	// adminUser is the SSH user written into group vars in remote mode.
	// It comes from configuration and is not persisted.
	adminUser string
}

// New returns an inventory populated with the default groups, services
// and sub-services, in remote deploy mode.
func New(adminUser string) *Inventory {
	inv := empty(adminUser)
	inv.createDefaults()
	return inv
}

func empty(adminUser string) *Inventory {
	return &Inventory{
		groups:      map[string]*HostGroup{},
		hosts:       map[string]*Host{},
		services:    map[string]*Service{},
		subServices: map[string]*SubService{},
		vars:        map[string]string{},
		version:     CurrentVersion,
		remoteMode:  true,
		adminUser:   adminUser,
	}
}

func (inv *Inventory) createDefaults() {
	for _, name := range DeployGroups {
		// Default group names never collide with service names.
		_, _ = inv.AddGroup(name)
	}

	for svcName, subNames := range Services {
		svc := inv.createService(svcName)
		svc.AddGroupName(DefaultGroups[svcName])
		for _, subName := range subNames {
			svc.AddSubServiceName(subName)
			sub := inv.createSubService(subName)
			sub.SetParentServiceName(svcName)
			if group, ok := DefaultOverrides[subName]; ok {
				sub.AddGroupName(group)
			}
		}
	}
}

// Version returns the document version the inventory was loaded with.
func (inv *Inventory) Version() int {
	return inv.version
}

// RemoteMode reports whether the inventory deploys to remote hosts.
func (inv *Inventory) RemoteMode() bool {
	return inv.remoteMode
}

// DeployMode returns the deploy mode as a model value.
func (inv *Inventory) DeployMode() model.DeployMode {
	return model.DeployModeFromRemote(inv.remoteMode)
}

// AdminUser returns the SSH user used in remote mode.
func (inv *Inventory) AdminUser() string {
	return inv.adminUser
}

// upgrade brings an inventory loaded from an older document up to
// CurrentVersion. Version 1 is the only format so far.
func (inv *Inventory) upgrade() {
	inv.version = CurrentVersion
}

// ---- hosts ----

// Hosts returns all hosts sorted by name.
func (inv *Inventory) Hosts() []*Host {
	out := make([]*Host, 0, len(inv.hosts))
	for _, name := range inv.Hostnames() {
		out = append(out, inv.hosts[name])
	}
	return out
}

// Hostnames returns all host names, sorted.
func (inv *Inventory) Hostnames() []string {
	return sortedKeys(inv.hosts)
}

// Host returns the named host or nil.
func (inv *Inventory) Host(name string) *Host {
	return inv.hosts[name]
}

// HasHost reports whether the named host exists.
func (inv *Inventory) HasHost(name string) bool {
	_, ok := inv.hosts[name]
	return ok
}

// AddHost creates a host, or adds an existing host to group when group
// is not empty.
//
// In local deploy mode only one host may exist.
func (inv *Inventory) AddHost(hostname, group string) error {
	if group != "" {
		g, ok := inv.groups[group]
		if !ok {
			return model.Errorf(model.ExitNotFound, "Group name (%s) does not exist", group)
		}
		if !inv.HasHost(hostname) {
			return model.Errorf(model.ExitNotFound, "Host name (%s) does not exist", hostname)
		}
		g.AddHost(hostname)
		return nil
	}

	if inv.HasHost(hostname) {
		return nil
	}
	if !inv.remoteMode && len(inv.hosts) >= 1 {
		return model.NewCLIError(model.ExitInventoryError,
			"Cannot have more than one host when in local deploy mode")
	}
	inv.hosts[hostname] = NewHost(hostname)
	return nil
}

// RemoveHost removes hostname from group, or deletes the host from every
// group and the inventory when group is empty. Removing an unknown host
// is not an error.
func (inv *Inventory) RemoveHost(hostname, group string) error {
	if group != "" {
		if _, ok := inv.groups[group]; !ok {
			return model.Errorf(model.ExitNotFound, "Group name (%s) does not exist", group)
		}
	}
	if !inv.HasHost(hostname) {
		return nil
	}

	for _, g := range inv.groups {
		if group == "" || group == g.Name {
			g.RemoveHost(hostname)
		}
	}
	if group == "" {
		delete(inv.hosts, hostname)
	}
	return nil
}

// ---- groups ----

// AddGroup creates the group if needed and (re)applies the deploy mode
// connection variables to it. Service and sub-service names are not
// allowed as group names.
func (inv *Inventory) AddGroup(name string) (*HostGroup, error) {
	if _, ok := inv.services[name]; ok {
		return nil, model.NewCLIError(model.ExitInvalidArgument,
			"Invalid group name. A service name cannot be used for a group name.")
	}
	if _, ok := inv.subServices[name]; ok {
		return nil, model.NewCLIError(model.ExitInvalidArgument,
			"Invalid group name. A service name cannot be used for a group name.")
	}

	g, ok := inv.groups[name]
	if !ok {
		g = NewHostGroup(name)
		inv.groups[name] = g
	}
	g.SetRemote(inv.remoteMode, inv.adminUser)
	return g, nil
}

// RemoveGroup detaches the group from every service and sub-service and
// deletes it. Protected groups cannot be removed.
func (inv *Inventory) RemoveGroup(name string) error {
	if isProtected(name) {
		return model.Errorf(model.ExitInvalidArgument,
			"Cannot remove %s group. It is required by kolla.", name)
	}

	for _, svc := range inv.services {
		svc.RemoveGroupName(name)
	}
	for _, sub := range inv.subServices {
		sub.RemoveGroupName(name)
	}
	delete(inv.groups, name)
	return nil
}

// Group returns the named group or nil.
func (inv *Inventory) Group(name string) *HostGroup {
	return inv.groups[name]
}

// GroupNames returns all group names, sorted.
func (inv *Inventory) GroupNames() []string {
	return sortedKeys(inv.groups)
}

// Groups returns all groups sorted by name.
func (inv *Inventory) Groups() []*HostGroup {
	out := make([]*HostGroup, 0, len(inv.groups))
	for _, name := range inv.GroupNames() {
		out = append(out, inv.groups[name])
	}
	return out
}

// GroupsOf returns the groups containing hostname, sorted by name.
func (inv *Inventory) GroupsOf(hostname string) []*HostGroup {
	var out []*HostGroup
	for _, g := range inv.Groups() {
		if g.HasHost(hostname) {
			out = append(out, g)
		}
	}
	return out
}

// HostGroups returns hostname -> names of the groups containing it.
func (inv *Inventory) HostGroups() map[string][]string {
	out := make(map[string][]string, len(inv.hosts))
	for _, name := range inv.Hostnames() {
		out[name] = []string{}
		for _, g := range inv.GroupsOf(name) {
			out[name] = append(out[name], g.Name)
		}
	}
	return out
}

// GroupHosts returns group name -> member host names.
func (inv *Inventory) GroupHosts() map[string][]string {
	out := make(map[string][]string, len(inv.groups))
	for _, g := range inv.groups {
		out[g.Name] = append([]string{}, g.Hostnames...)
	}
	return out
}

// GroupServices returns group name -> services and sub-services that are
// explicitly placed in it, sorted.
func (inv *Inventory) GroupServices() map[string][]string {
	out := make(map[string][]string, len(inv.groups))
	for name := range inv.groups {
		out[name] = []string{}
	}
	for _, svc := range inv.services {
		for _, g := range svc.GroupNames {
			if _, ok := out[g]; ok {
				out[g] = append(out[g], svc.Name)
			}
		}
	}
	for _, sub := range inv.subServices {
		for _, g := range sub.GroupNames {
			if _, ok := out[g]; ok {
				out[g] = append(out[g], sub.Name)
			}
		}
	}
	for g := range out {
		sort.Strings(out[g])
	}
	return out
}

// ---- services ----

func (inv *Inventory) createService(name string) *Service {
	svc, ok := inv.services[name]
	if !ok {
		svc = NewService(name)
		inv.services[name] = svc
	}
	return svc
}

func (inv *Inventory) createSubService(name string) *SubService {
	sub, ok := inv.subServices[name]
	if !ok {
		sub = NewSubService(name)
		inv.subServices[name] = sub
	}
	return sub
}

// Service returns the named top-level service or nil.
func (inv *Inventory) Service(name string) *Service {
	return inv.services[name]
}

// SubService returns the named sub-service or nil.
func (inv *Inventory) SubService(name string) *SubService {
	return inv.subServices[name]
}

// ServiceNames returns all top-level service names, sorted.
func (inv *Inventory) ServiceNames() []string {
	return sortedKeys(inv.services)
}

// SubServiceNames returns all sub-service names, sorted.
func (inv *Inventory) SubServiceNames() []string {
	return sortedKeys(inv.subServices)
}

// IsService reports whether name is a service or a sub-service.
func (inv *Inventory) IsService(name string) bool {
	_, svc := inv.services[name]
	_, sub := inv.subServices[name]
	return svc || sub
}

// AddGroupToService places a service or sub-service in group.
func (inv *Inventory) AddGroupToService(group, service string) error {
	if _, ok := inv.groups[group]; !ok {
		return model.Errorf(model.ExitNotFound, "Group (%s) not found.", group)
	}
	if svc, ok := inv.services[service]; ok {
		svc.AddGroupName(group)
		return nil
	}
	if sub, ok := inv.subServices[service]; ok {
		sub.AddGroupName(group)
		return nil
	}
	return model.Errorf(model.ExitNotFound, "Service (%s) not found.", service)
}

// RemoveGroupFromService removes a service or sub-service from group.
func (inv *Inventory) RemoveGroupFromService(group, service string) error {
	if _, ok := inv.groups[group]; !ok {
		return model.Errorf(model.ExitNotFound, "Group (%s) not found.", group)
	}
	if svc, ok := inv.services[service]; ok {
		svc.RemoveGroupName(group)
		return nil
	}
	if sub, ok := inv.subServices[service]; ok {
		sub.RemoveGroupName(group)
		return nil
	}
	return model.Errorf(model.ExitNotFound, "Service (%s) not found.", service)
}

// ServiceSubServices returns service name -> its sub-service names.
func (inv *Inventory) ServiceSubServices() map[string][]string {
	out := make(map[string][]string, len(inv.services))
	for _, svc := range inv.services {
		out[svc.Name] = append([]string{}, svc.SubServiceNames...)
	}
	return out
}

// ServiceGroups describes where a service or sub-service is deployed.
type ServiceGroups struct {
	Groups []string

	// Inherit is nil for top-level services, true for sub-services that
	// take their parent's groups and false for sub-services with explicit
	// groups.
	Inherit *bool
}

// ServiceGroups returns service or sub-service name -> placement.
func (inv *Inventory) ServiceGroups() map[string]ServiceGroups {
	out := make(map[string]ServiceGroups, len(inv.services)+len(inv.subServices))
	for _, svc := range inv.services {
		out[svc.Name] = ServiceGroups{Groups: append([]string{}, svc.GroupNames...)}
	}
	for _, sub := range inv.subServices {
		inherit := sub.Inherits()
		sg := ServiceGroups{Inherit: &inherit}
		if inherit {
			sg.Groups = []string{}
		} else {
			sg.Groups = append([]string{}, sub.GroupNames...)
		}
		out[sub.Name] = sg
	}
	return out
}

// ---- deploy mode ----

// SetDeployMode switches between remote and local deployment and updates
// every group's connection variables. Local mode allows one host at most.
func (inv *Inventory) SetDeployMode(remote bool) error {
	if !remote && len(inv.hosts) > 1 {
		return model.NewCLIError(model.ExitInventoryError,
			"Cannot set local deploy mode when multiple hosts exist")
	}
	inv.remoteMode = remote
	for _, g := range inv.groups {
		g.SetRemote(remote, inv.adminUser)
	}
	return nil
}

// String implements fmt.Stringer for log output.
func (inv *Inventory) String() string {
	return fmt.Sprintf("inventory(v%d, %s, %d hosts, %d groups)",
		inv.version, inv.DeployMode(), len(inv.hosts), len(inv.groups))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
