package dump

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/kollacli/internal/config"
)

// readArchive returns regular file contents keyed by entry name, plus the
// names of directory entries.
func readArchive(t *testing.T, path string) (map[string]string, []string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gzr)

	files := map[string]string{}
	var dirs []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		switch hdr.Typeflag {
		case tar.TypeDir:
			dirs = append(dirs, hdr.Name)
		case tar.TypeReg:
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			files[hdr.Name] = string(data)
		}
	}
	return files, dirs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.KollaHome = filepath.Join(root, "usr/share/kolla")
	cfg.KollaEtc = filepath.Join(root, "etc/kolla")
	cfg.KollacliEtc = filepath.Join(root, "etc/kolla/kollacli") + "/"
	cfg.LogDir = filepath.Join(root, "var/log/kolla")

	writeFile(t, filepath.Join(cfg.KollaHome, "ansible/site.yml"), "- hosts: all\n")
	writeFile(t, filepath.Join(cfg.KollaHome, "ansible/roles/nova/tasks/main.yml"), "---\n")
	writeFile(t, filepath.Join(cfg.KollaHome, ".ssh/id_rsa"), "PRIVATE")
	writeFile(t, filepath.Join(cfg.KollaEtc, "globals.yml"), "enable_swift: \"no\"\n")
	writeFile(t, filepath.Join(cfg.KollaEtc, "passwords.yml"), "database_password: secret\n")
	writeFile(t, filepath.Join(cfg.KollaEtc, "config/swift/object.ring.gz"), "ring")
	writeFile(t, filepath.Join(cfg.KollaEtc, "config/passwords.yml"), "nested: secret\n")
	writeFile(t, filepath.Join(cfg.KollacliEtc, "ansible/inventory.json"), "{}\n")
	writeFile(t, filepath.Join(cfg.LogDir, "kollacli.log"), "log line\n")
	return cfg
}

func TestCreate(t *testing.T) {
	cfg := testConfig(t)

	sections := []Section{
		{Title: "kollacli host list", Run: func(context.Context) (string, error) { return "node1\n", nil }},
		{Title: "kollacli password list", Run: func(context.Context) (string, error) {
			return "", errors.New("permission denied")
		}},
	}

	path, err := Create(context.Background(), Options{
		Sources:  DefaultSources(cfg),
		Sections: sections,
		Dir:      t.TempDir(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "kollacli_dump_"))
	assert.True(t, strings.HasSuffix(path, ".tgz"))

	files, dirs := readArchive(t, path)

	assert.Equal(t, "- hosts: all\n", files["kolla/share/ansible/site.yml"])
	assert.Contains(t, files, "kolla/share/ansible/roles/nova/tasks/main.yml")
	assert.Contains(t, dirs, "kolla/share/ansible/")
	assert.Equal(t, "enable_swift: \"no\"\n", files["kolla/etc/globals.yml"])
	assert.Equal(t, "ring", files["kolla/etc/config/swift/object.ring.gz"])
	assert.Contains(t, files, "kolla/etc/kollacli/ansible/inventory.json")

	logEntry := strings.TrimLeft(filepath.ToSlash(cfg.LogDir), "/") + "/kollacli.log"
	assert.Equal(t, "log line\n", files[logEntry])

	for name := range files {
		assert.NotContains(t, name, "passwords.yml")
		assert.NotContains(t, name, ".ssh")
	}

	out := files[CmdsOutputName]
	assert.Contains(t, out, "$ kollacli host list\nnode1\n")
	assert.Contains(t, out, "$ kollacli password list\nError message: permission denied\n")
}

func TestCreate_SkipsMissingSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "present.yml"), "a: 1\n")

	path, err := Create(context.Background(), Options{
		Sources: []Source{
			{Path: filepath.Join(root, "absent"), Name: "kolla/share/docs"},
			{Path: filepath.Join(root, "present.yml"), Name: "kolla/etc/globals.yml"},
		},
		Dir: t.TempDir(),
	})
	require.NoError(t, err)

	files, _ := readArchive(t, path)
	assert.Equal(t, map[string]string{"kolla/etc/globals.yml": "a: 1\n"}, files)
}
