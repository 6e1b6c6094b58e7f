package shell

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestOSExecutor_Success(t *testing.T) {
	requireSh(t)

	res, err := NewOSExecutor().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `echo "$GREETING"; echo warn >&2`},
		Env:  []string{"GREETING=hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "warn\n", res.Stderr)
	assert.Equal(t, "hello\nwarn", res.Output())
}

func TestOSExecutor_NonZeroExit(t *testing.T) {
	requireSh(t)

	cmd := Command{Name: "sh", Args: []string{"-c", "echo first >&2; echo 'UNREACHABLE! node1' >&2; exit 4"}}
	res, err := NewOSExecutor().Run(context.Background(), cmd)
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "sh exited with status 4: UNREACHABLE! node1", exitErr.Error())
}

func TestOSExecutor_MissingBinary(t *testing.T) {
	_, err := NewOSExecutor().Run(context.Background(), Command{Name: "kollacli-no-such-binary"})
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestRunCmd(t *testing.T) {
	requireSh(t)
	exe := NewOSExecutor()

	errMsg, out, err := RunCmd(context.Background(), exe, Command{Name: "sh", Args: []string{"-c", "echo ok"}})
	require.NoError(t, err)
	assert.Empty(t, errMsg)
	assert.Equal(t, "ok", out)

	errMsg, out, err = RunCmd(context.Background(), exe, Command{Name: "sh", Args: []string{"-c", "echo partial; exit 1"}})
	require.NoError(t, err)
	assert.Contains(t, errMsg, "exited with status 1")
	assert.Equal(t, "partial", out)
}

func TestAsUser(t *testing.T) {
	cmd := Command{Name: "ansible", Args: []string{"-m", "ping"}}

	assert.Equal(t, cmd, AsUser("", cmd))

	wrapped := AsUser("kolla", cmd)
	assert.Equal(t, "sudo", wrapped.Name)
	assert.Equal(t, []string{"-u", "kolla", "ansible", "-m", "ping"}, wrapped.Args)
	assert.Equal(t, "sudo -u kolla ansible -m ping", wrapped.String())
}
