package hostsetup

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8g kolla@deploy"

func TestMergeAuthorizedKey(t *testing.T) {
	tests := []struct {
		name        string
		current     string
		wantChanged bool
		want        string
	}{
		{
			name:        "empty file",
			current:     "",
			wantChanged: true,
			want:        testKey + "\n",
		},
		{
			name:        "appends after other keys",
			current:     "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQC7 other\n",
			wantChanged: true,
			want:        "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQC7 other\n" + testKey + "\n",
		},
		{
			name:        "missing trailing newline",
			current:     "# managed\nssh-rsa AAAA other",
			wantChanged: true,
			want:        "# managed\nssh-rsa AAAA other\n" + testKey + "\n",
		},
		{
			name:        "already present with another comment",
			current:     "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8g old-comment\n",
			wantChanged: false,
			want:        "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8g old-comment\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := MergeAuthorizedKey([]byte(tt.current), []byte(testKey+"\n"))
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestHostAddr(t *testing.T) {
	assert.Equal(t, "node1:22", hostAddr("node1"))
	assert.Equal(t, "node1:2222", hostAddr("node1:2222"))
	assert.Equal(t, "[fe80::1]:22", hostAddr("fe80::1"))
}

func TestReadPublicKey(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "id_ed25519.pub")
	require.NoError(t, os.WriteFile(good, []byte(testKey+"\n"), 0o644))

	key, err := ReadPublicKey(good)
	require.NoError(t, err)
	assert.Equal(t, testKey, string(key))

	bad := filepath.Join(dir, "bad.pub")
	require.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o644))
	_, err = ReadPublicKey(bad)
	require.Error(t, err)
}

// TestInstallKey_SilentHostHonoursContext covers a host that accepts the
// TCP connection but never sends an SSH banner.
func TestInstallKey_SilentHostHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- (&SSHInstaller{}).InstallKey(ctx, ln.Addr().String(), "kolla", "secret", []byte(testKey))
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("InstallKey did not return after the context expired")
	}
}
