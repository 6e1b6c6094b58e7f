package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonUnmarshal(s string, v interface{}) error {
	return json.Unmarshal([]byte(s), v)
}

// readTarGz returns the regular files of a .tgz keyed by entry name.
func readTarGz(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gzr)

	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			require.NoError(t, err)
			files[hdr.Name] = string(data)
		}
	}
}

func TestPrintTable(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		rows    [][]string
		want    string
	}{
		{
			name:    "headers only",
			headers: []string{"Host", "Groups"},
			want:    "HOST  GROUPS\n",
		},
		{
			name:    "columns widen to fit",
			headers: []string{"Host", "Groups"},
			rows:    [][]string{{"node1", "control,network"}, {"n2", "-"}},
			want:    "HOST   GROUPS\nnode1  control,network\nn2     -\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printTable(&buf, tt.headers, tt.rows)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, false, "Host (x) does not exist.", nil)
	assert.Equal(t, "Error: Host (x) does not exist.\n", buf.String())

	buf.Reset()
	printError(&buf, false, "saving inventory failed", errors.New("disk full"))
	assert.Equal(t, "Error: saving inventory failed: disk full\n", buf.String())

	buf.Reset()
	printError(&buf, true, "saving inventory failed", errors.New("disk full"))
	assert.JSONEq(t, `{"error": {"message": "saving inventory failed", "detail": "disk full"}}`, buf.String())
}

func TestListOrDash(t *testing.T) {
	assert.Equal(t, "-", listOrDash(nil))
	assert.Equal(t, "a,b", listOrDash([]string{"a", "b"}))
}
