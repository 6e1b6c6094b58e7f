package inventory

import "slices"

// Entity versions. Each persisted entity records the version it was
// written with so that later releases can upgrade old files in place.
const (
	hostVersion       = 1
	groupVersion      = 1
	serviceVersion    = 1
	subServiceVersion = 1
)

// Host is a machine that services can be deployed to.
type Host struct {
	Name       string            `json:"name"`
	Alias      string            `json:"alias"`
	IsMgmt     bool              `json:"is_mgmt"`
	Hypervisor string            `json:"hypervisor"`
	Vars       map[string]string `json:"vars"`
	Version    int               `json:"version"`
}

// NewHost returns a host with no variables.
func NewHost(name string) *Host {
	return &Host{Name: name, Vars: map[string]string{}, Version: hostVersion}
}

// GetVars returns a copy of the host variables.
func (h *Host) GetVars() map[string]string {
	return copyVars(h.Vars)
}

// SetVar sets a host variable.
func (h *Host) SetVar(name, value string) {
	if h.Vars == nil {
		h.Vars = map[string]string{}
	}
	h.Vars[name] = value
}

// HostGroup is a named set of hosts. Services are assigned to groups,
// never directly to hosts.
type HostGroup struct {
	Name      string            `json:"name"`
	Hostnames []string          `json:"hostnames"`
	Vars      map[string]string `json:"vars"`
	Version   int               `json:"version"`
}

// NewHostGroup returns an empty group.
func NewHostGroup(name string) *HostGroup {
	return &HostGroup{Name: name, Hostnames: []string{}, Vars: map[string]string{}, Version: groupVersion}
}

// AddHost adds hostname to the group if it is not already a member.
func (g *HostGroup) AddHost(hostname string) {
	if !slices.Contains(g.Hostnames, hostname) {
		g.Hostnames = append(g.Hostnames, hostname)
	}
}

// RemoveHost removes hostname from the group if present.
func (g *HostGroup) RemoveHost(hostname string) {
	g.Hostnames = slices.DeleteFunc(g.Hostnames, func(h string) bool { return h == hostname })
}

// HasHost reports whether hostname is a member of the group.
func (g *HostGroup) HasHost(hostname string) bool {
	return slices.Contains(g.Hostnames, hostname)
}

// GetVars returns a copy of the group variables.
func (g *HostGroup) GetVars() map[string]string {
	return copyVars(g.Vars)
}

// SetVar sets a group variable.
func (g *HostGroup) SetVar(name, value string) {
	if g.Vars == nil {
		g.Vars = map[string]string{}
	}
	g.Vars[name] = value
}

// ClearVar removes a group variable.
func (g *HostGroup) ClearVar(name string) {
	delete(g.Vars, name)
}

// SetRemote writes the Ansible connection variables for the deploy mode.
// Remote groups connect over SSH as adminUser; local groups use the
// local connection plugin. Both escalate privileges.
func (g *HostGroup) SetRemote(remote bool, adminUser string) {
	g.SetVar(VarBecome, "yes")
	if remote {
		g.SetVar(VarSSHUser, adminUser)
		g.ClearVar(VarConnection)
	} else {
		g.SetVar(VarConnection, "local")
		g.ClearVar(VarSSHUser)
	}
}

// Service is a top-level OpenStack service such as nova or cinder.
type Service struct {
	Name            string            `json:"name"`
	SubServiceNames []string          `json:"sub_servicenames"`
	GroupNames      []string          `json:"groupnames"`
	Vars            map[string]string `json:"vars"`
	Version         int               `json:"version"`
}

// NewService returns a service with no groups.
func NewService(name string) *Service {
	return &Service{
		Name:            name,
		SubServiceNames: []string{},
		GroupNames:      []string{},
		Vars:            map[string]string{},
		Version:         serviceVersion,
	}
}

// AddGroupName places the service in group. Empty names are ignored.
func (s *Service) AddGroupName(group string) {
	if group != "" && !slices.Contains(s.GroupNames, group) {
		s.GroupNames = append(s.GroupNames, group)
	}
}

// RemoveGroupName removes the service from group.
func (s *Service) RemoveGroupName(group string) {
	s.GroupNames = slices.DeleteFunc(s.GroupNames, func(g string) bool { return g == group })
}

// AddSubServiceName records a sub-service of this service.
func (s *Service) AddSubServiceName(name string) {
	if !slices.Contains(s.SubServiceNames, name) {
		s.SubServiceNames = append(s.SubServiceNames, name)
	}
}

// GetVars returns a copy of the service variables.
func (s *Service) GetVars() map[string]string {
	return copyVars(s.Vars)
}

// SubService is a component of a service (nova-api, cinder-volume, ...).
//
// A sub-service is either placed in explicit groups or inherits the
// groups of its parent service, never both.
type SubService struct {
	Name              string            `json:"name"`
	GroupNames        []string          `json:"groupnames"`
	ParentServiceName string            `json:"parent_servicename"`
	Vars              map[string]string `json:"vars"`
	Version           int               `json:"version"`
}

// NewSubService returns a sub-service with neither groups nor parent.
func NewSubService(name string) *SubService {
	return &SubService{Name: name, GroupNames: []string{}, Vars: map[string]string{}, Version: subServiceVersion}
}

// AddGroupName places the sub-service in group and stops it from
// inheriting its parent's groups.
func (s *SubService) AddGroupName(group string) {
	if !slices.Contains(s.GroupNames, group) {
		s.GroupNames = append(s.GroupNames, group)
		s.ParentServiceName = ""
	}
}

// RemoveGroupName removes the sub-service from group. When no explicit
// groups remain, the sub-service goes back to inheriting from its parent.
func (s *SubService) RemoveGroupName(group string) {
	s.GroupNames = slices.DeleteFunc(s.GroupNames, func(g string) bool { return g == group })
	if len(s.GroupNames) == 0 {
		if parent := parentOf(s.Name); parent != "" {
			s.SetParentServiceName(parent)
		}
	}
}

// SetParentServiceName makes the sub-service inherit from parent and
// drops any explicit groups.
func (s *SubService) SetParentServiceName(parent string) {
	s.ParentServiceName = parent
	s.GroupNames = []string{}
}

// Inherits reports whether the sub-service takes its parent's groups.
func (s *SubService) Inherits() bool {
	return s.ParentServiceName != ""
}

// GetVars returns a copy of the sub-service variables.
func (s *SubService) GetVars() map[string]string {
	return copyVars(s.Vars)
}

func copyVars(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
