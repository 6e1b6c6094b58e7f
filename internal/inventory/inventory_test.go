package inventory

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/kollacli/internal/model"
)

const testAdmin = "kolla"

// requireExitCode asserts err is a CLIError carrying code.
func requireExitCode(t *testing.T, err error, code model.ExitCode) {
	t.Helper()
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected CLIError, got %v", err)
	assert.Equal(t, code, cliErr.Code)
}

// TestNew_Defaults verifies the default groups, services and sub-service
// placement of a fresh inventory.
func TestNew_Defaults(t *testing.T) {
	inv := New(testAdmin)

	assert.Equal(t, []string{"compute", "control", "database", "network", "storage"}, inv.GroupNames())
	assert.True(t, inv.RemoteMode())
	assert.Equal(t, CurrentVersion, inv.Version())
	assert.Empty(t, inv.Hostnames())
	assert.Len(t, inv.ServiceNames(), len(Services))
	assert.Contains(t, inv.SubServiceNames(), "nova-api")
	assert.Equal(t, testAdmin, inv.AdminUser())

	assert.Equal(t, []string{"network"}, inv.Service("neutron").GroupNames)
	assert.Equal(t, []string{"control"}, inv.Service("nova").GroupNames)

	// Sub-services inherit unless overridden.
	novaAPI := inv.SubService("nova-api")
	require.NotNil(t, novaAPI)
	assert.True(t, novaAPI.Inherits())
	assert.Equal(t, "nova", novaAPI.ParentServiceName)

	volume := inv.SubService("cinder-volume")
	require.NotNil(t, volume)
	assert.False(t, volume.Inherits())
	assert.Equal(t, []string{"storage"}, volume.GroupNames)

	ndb := inv.SubService("mysqlcluster-ndb")
	assert.Equal(t, []string{"database"}, ndb.GroupNames)

	// Groups carry remote connection vars.
	control := inv.Group("control")
	assert.Equal(t, map[string]string{VarBecome: "yes", VarSSHUser: testAdmin}, control.GetVars())
}

func TestAddHost(t *testing.T) {
	inv := New(testAdmin)

	require.NoError(t, inv.AddHost("node1", ""))
	require.NoError(t, inv.AddHost("node1", ""), "re-adding a host is a no-op")
	require.NoError(t, inv.AddHost("node2", ""))
	assert.Equal(t, []string{"node1", "node2"}, inv.Hostnames())

	require.NoError(t, inv.AddHost("node1", "control"))
	require.NoError(t, inv.AddHost("node1", "control"))
	assert.Equal(t, []string{"node1"}, inv.Group("control").Hostnames)

	err := inv.AddHost("node1", "nosuchgroup")
	requireExitCode(t, err, model.ExitNotFound)
	assert.Contains(t, err.Error(), "Group name (nosuchgroup) does not exist")

	err = inv.AddHost("ghost", "control")
	requireExitCode(t, err, model.ExitNotFound)
	assert.Contains(t, err.Error(), "Host name (ghost) does not exist")
}

func TestAddHost_LocalModeAllowsOneHost(t *testing.T) {
	inv := New(testAdmin)
	require.NoError(t, inv.SetDeployMode(false))

	require.NoError(t, inv.AddHost("node1", ""))
	require.NoError(t, inv.AddHost("node1", ""))

	err := inv.AddHost("node2", "")
	requireExitCode(t, err, model.ExitInventoryError)
	assert.Equal(t, []string{"node1"}, inv.Hostnames())
}

func TestRemoveHost(t *testing.T) {
	inv := New(testAdmin)
	require.NoError(t, inv.AddHost("node1", ""))
	require.NoError(t, inv.AddHost("node1", "control"))
	require.NoError(t, inv.AddHost("node1", "compute"))

	// Remove from a single group.
	require.NoError(t, inv.RemoveHost("node1", "control"))
	assert.Empty(t, inv.Group("control").Hostnames)
	assert.Equal(t, []string{"node1"}, inv.Group("compute").Hostnames)
	assert.True(t, inv.HasHost("node1"))

	// Unknown group is rejected even for unknown hosts.
	requireExitCode(t, inv.RemoveHost("node1", "nosuchgroup"), model.ExitNotFound)

	// Unknown host is a no-op.
	require.NoError(t, inv.RemoveHost("ghost", ""))

	// Full removal clears group membership too.
	require.NoError(t, inv.RemoveHost("node1", ""))
	assert.False(t, inv.HasHost("node1"))
	assert.Empty(t, inv.Group("compute").Hostnames)
}

func TestAddGroup(t *testing.T) {
	inv := New(testAdmin)

	g, err := inv.AddGroup("cells")
	require.NoError(t, err)
	assert.Equal(t, "cells", g.Name)
	assert.Equal(t, testAdmin, g.Vars[VarSSHUser])
	assert.Contains(t, inv.GroupNames(), "cells")

	again, err := inv.AddGroup("cells")
	require.NoError(t, err)
	assert.Same(t, g, again)

	for _, name := range []string{"nova", "nova-api"} {
		_, err := inv.AddGroup(name)
		requireExitCode(t, err, model.ExitInvalidArgument)
	}
}

func TestRemoveGroup(t *testing.T) {
	inv := New(testAdmin)

	requireExitCode(t, inv.RemoveGroup("compute"), model.ExitInvalidArgument)

	// Removing storage drops it from services and re-parents the
	// sub-services that were explicitly placed there.
	require.NoError(t, inv.AddGroupToService("storage", "glance"))
	require.NoError(t, inv.RemoveGroup("storage"))

	assert.Nil(t, inv.Group("storage"))
	assert.NotContains(t, inv.Service("glance").GroupNames, "storage")

	volume := inv.SubService("cinder-volume")
	assert.True(t, volume.Inherits())
	assert.Equal(t, "cinder", volume.ParentServiceName)
	assert.Empty(t, volume.GroupNames)

	// Removing a group that does not exist is harmless.
	require.NoError(t, inv.RemoveGroup("nosuchgroup"))
}

func TestAddRemoveGroupToService(t *testing.T) {
	inv := New(testAdmin)

	require.NoError(t, inv.AddGroupToService("compute", "nova"))
	assert.Equal(t, []string{"control", "compute"}, inv.Service("nova").GroupNames)

	// Placing a sub-service in a group stops inheritance.
	require.NoError(t, inv.AddGroupToService("compute", "nova-api"))
	api := inv.SubService("nova-api")
	assert.False(t, api.Inherits())
	assert.Equal(t, []string{"compute"}, api.GroupNames)

	// Removing its last group restores inheritance.
	require.NoError(t, inv.RemoveGroupFromService("compute", "nova-api"))
	assert.True(t, api.Inherits())
	assert.Equal(t, "nova", api.ParentServiceName)

	require.NoError(t, inv.RemoveGroupFromService("control", "nova"))
	assert.Equal(t, []string{"compute"}, inv.Service("nova").GroupNames)

	requireExitCode(t, inv.AddGroupToService("nosuchgroup", "nova"), model.ExitNotFound)
	requireExitCode(t, inv.AddGroupToService("control", "nosuchservice"), model.ExitNotFound)
	requireExitCode(t, inv.RemoveGroupFromService("nosuchgroup", "nova"), model.ExitNotFound)
	requireExitCode(t, inv.RemoveGroupFromService("control", "nosuchservice"), model.ExitNotFound)
}

func TestSetDeployMode(t *testing.T) {
	inv := New(testAdmin)
	require.NoError(t, inv.AddHost("node1", ""))

	require.NoError(t, inv.SetDeployMode(false))
	assert.False(t, inv.RemoteMode())
	assert.Equal(t, model.DeployLocal, inv.DeployMode())
	for _, g := range inv.Groups() {
		assert.Equal(t, map[string]string{VarBecome: "yes", VarConnection: "local"}, g.GetVars(), g.Name)
	}

	// Groups added in local mode get local vars.
	cells, err := inv.AddGroup("cells")
	require.NoError(t, err)
	assert.Equal(t, "local", cells.Vars[VarConnection])

	require.NoError(t, inv.SetDeployMode(true))
	for _, g := range inv.Groups() {
		assert.Equal(t, map[string]string{VarBecome: "yes", VarSSHUser: testAdmin}, g.GetVars(), g.Name)
	}

	require.NoError(t, inv.AddHost("node2", ""))
	requireExitCode(t, inv.SetDeployMode(false), model.ExitInventoryError)
	assert.True(t, inv.RemoteMode())
}

func TestQueries(t *testing.T) {
	inv := New(testAdmin)
	require.NoError(t, inv.AddHost("node1", ""))
	require.NoError(t, inv.AddHost("node2", ""))
	require.NoError(t, inv.AddHost("node1", "control"))
	require.NoError(t, inv.AddHost("node1", "network"))
	require.NoError(t, inv.AddHost("node2", "compute"))

	wantHostGroups := map[string][]string{
		"node1": {"control", "network"},
		"node2": {"compute"},
	}
	if diff := cmp.Diff(wantHostGroups, inv.HostGroups()); diff != "" {
		t.Errorf("HostGroups() mismatch (-want +got):\n%s", diff)
	}

	groupHosts := inv.GroupHosts()
	assert.Equal(t, []string{"node1"}, groupHosts["control"])
	assert.Equal(t, []string{"node2"}, groupHosts["compute"])
	assert.Empty(t, groupHosts["storage"])

	groupServices := inv.GroupServices()
	assert.Equal(t, []string{"neutron"}, groupServices["network"])
	assert.Equal(t, []string{"mysqlcluster-ndb"}, groupServices["database"])
	assert.Contains(t, groupServices["control"], "neutron-server")
	assert.Contains(t, groupServices["storage"], "swift-object-server")
	assert.Empty(t, groupServices["compute"])

	subs := inv.ServiceSubServices()
	assert.Equal(t, []string{"glance-api", "glance-registry"}, subs["glance"])
	assert.Empty(t, subs["keystone"])

	placement := inv.ServiceGroups()
	assert.Nil(t, placement["nova"].Inherit)
	assert.Equal(t, []string{"control"}, placement["nova"].Groups)
	require.NotNil(t, placement["nova-api"].Inherit)
	assert.True(t, *placement["nova-api"].Inherit)
	assert.Empty(t, placement["nova-api"].Groups)
	require.NotNil(t, placement["cinder-backup"].Inherit)
	assert.False(t, *placement["cinder-backup"].Inherit)
	assert.Equal(t, []string{"storage"}, placement["cinder-backup"].Groups)
}

func TestIsService(t *testing.T) {
	inv := New(testAdmin)
	assert.True(t, inv.IsService("nova"))
	assert.True(t, inv.IsService("nova-api"))
	assert.False(t, inv.IsService("control"))
}

func TestGetVarsReturnsCopy(t *testing.T) {
	inv := New(testAdmin)
	vars := inv.Group("control").GetVars()
	vars[VarSSHUser] = "mallory"
	assert.Equal(t, testAdmin, inv.Group("control").Vars[VarSSHUser])
}
