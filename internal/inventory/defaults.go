package inventory

// Connection variables written into every host group.
const (
	VarSSHUser    = "ansible_ssh_user"
	VarConnection = "ansible_connection"
	VarBecome     = "ansible_become"
)

// Deploy group names created in every new inventory.
const (
	GroupCompute  = "compute"
	GroupControl  = "control"
	GroupNetwork  = "network"
	GroupStorage  = "storage"
	GroupDatabase = "database"
)

// ReservedGroup is rendered into the Ansible inventory to hold every
// deploy host, including hosts that are not yet a member of any group.
// It is never stored.
const ReservedGroup = "__RESERVED__"

// DeployGroups lists the groups a default inventory starts with.
var DeployGroups = []string{
	GroupCompute,
	GroupControl,
	GroupNetwork,
	GroupStorage,
	GroupDatabase,
}

// ProtectedGroups cannot be removed; kolla requires them.
var ProtectedGroups = []string{GroupCompute}

// Services maps each top-level service to its sub-services.
var Services = map[string][]string{
	"cinder":       {"cinder-api", "cinder-scheduler", "cinder-backup", "cinder-volume"},
	"glance":       {"glance-api", "glance-registry"},
	"haproxy":      {},
	"heat":         {"heat-api", "heat-api-cfn", "heat-engine"},
	"horizon":      {},
	"keystone":     {},
	"memcached":    {},
	"murano":       {"murano-api", "murano-engine"},
	"mysqlcluster": {"mysqlcluster-api", "mysqlcluster-mgmt", "mysqlcluster-ndb"},
	"neutron":      {"neutron-server", "neutron-agents"},
	"nova":         {"nova-api", "nova-conductor", "nova-consoleauth", "nova-novncproxy", "nova-scheduler"},
	"rabbitmq":     {},
	"swift":        {"swift-proxy-server", "swift-account-server", "swift-container-server", "swift-object-server"},
}

// DefaultGroups is the group each service is placed in by default.
var DefaultGroups = map[string]string{
	"cinder":       GroupControl,
	"glance":       GroupControl,
	"haproxy":      GroupControl,
	"heat":         GroupControl,
	"horizon":      GroupControl,
	"keystone":     GroupControl,
	"memcached":    GroupControl,
	"murano":       GroupControl,
	"mysqlcluster": GroupControl,
	"neutron":      GroupNetwork,
	"nova":         GroupControl,
	"rabbitmq":     GroupControl,
	"swift":        GroupControl,
}

// DefaultOverrides places sub-services in a group of their own instead of
// inheriting the parent service's groups.
var DefaultOverrides = map[string]string{
	"cinder-backup":          GroupStorage,
	"cinder-volume":          GroupStorage,
	"mysqlcluster-ndb":       GroupDatabase,
	"neutron-server":         GroupControl,
	"swift-account-server":   GroupStorage,
	"swift-container-server": GroupStorage,
	"swift-object-server":    GroupStorage,
}

// parentOf returns the top-level service owning subService, or "".
func parentOf(subService string) string {
	for svc, subs := range Services {
		for _, s := range subs {
			if s == subService {
				return svc
			}
		}
	}
	return ""
}

func isProtected(group string) bool {
	for _, g := range ProtectedGroups {
		if g == group {
			return true
		}
	}
	return false
}
