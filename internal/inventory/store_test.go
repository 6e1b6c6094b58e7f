package inventory

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/kollacli/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "ansible", "inventory.json"), testAdmin)
}

func TestStore_LoadMissingReturnsDefaults(t *testing.T) {
	s := newTestStore(t)

	inv, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, New(testAdmin).GroupNames(), inv.GroupNames())

	// Nothing is written just by loading defaults.
	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	inv := New(testAdmin)
	require.NoError(t, inv.AddHost("node1", ""))
	require.NoError(t, inv.AddHost("node1", "compute"))
	inv.Host("node1").SetVar("ansible_host", "10.0.0.11")
	_, err := inv.AddGroup("cells")
	require.NoError(t, err)
	require.NoError(t, inv.AddGroupToService("cells", "nova-api"))
	require.NoError(t, inv.SetDeployMode(false))
	require.NoError(t, s.Save(inv))

	loaded, err := s.Load()
	require.NoError(t, err)

	assert.False(t, loaded.RemoteMode())
	assert.Equal(t, []string{"node1"}, loaded.Hostnames())
	assert.Equal(t, "10.0.0.11", loaded.Host("node1").Vars["ansible_host"])
	assert.Equal(t, []string{"node1"}, loaded.Group("compute").Hostnames)
	assert.Equal(t, []string{"cells"}, loaded.SubService("nova-api").GroupNames)
	assert.Equal(t, "local", loaded.Group("cells").Vars[VarConnection])
	assert.Equal(t, inv.ServiceGroups(), loaded.ServiceGroups())

	// The document is indented for readability.
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "\n    \"groups\""))
}

func TestStore_LoadToleratesComments(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))

	content := `{
    // edited by hand
    "version": 1,
    "remote_mode": true,
    "groups": {
        "control": {"hostnames": ["node1"], "vars": {}, "version": 1},
    },
    "hosts": {"node1": {"vars": {}, "version": 1}},
    "services": {},
    "sub_services": {}
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	inv, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"node1"}, inv.Group("control").Hostnames)
	assert.Equal(t, "node1", inv.Host("node1").Name, "names are restored from map keys")
}

func TestStore_LoadUpgradesOldVersion(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"version": 0, "groups": {}, "hosts": {}}`), 0o644))

	inv, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, inv.Version())

	var doc map[string]interface{}
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, CurrentVersion, doc["version"])
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"groups": [`), 0o644))

	_, err := s.Load()
	requireExitCode(t, err, model.ExitInventoryError)
	assert.Contains(t, err.Error(), "loading inventory failed")
}

func TestStore_Update(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(func(inv *Inventory) error {
		return inv.AddHost("node1", "")
	}))

	// A failing mutation leaves the stored inventory unchanged and keeps
	// the mutation's own error code.
	err := s.Update(func(inv *Inventory) error {
		if err := inv.AddHost("node2", ""); err != nil {
			return err
		}
		return inv.AddHost("node2", "nosuchgroup")
	})
	requireExitCode(t, err, model.ExitNotFound)

	inv, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"node1"}, inv.Hostnames())

	// Non-CLI errors are reported as inventory errors.
	err = s.Update(func(*Inventory) error { return errors.New("boom") })
	requireExitCode(t, err, model.ExitInventoryError)
}
