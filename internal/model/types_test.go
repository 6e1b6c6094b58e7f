package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseDeployMode verifies string-to-mode conversion, including
// whitespace trimming and rejection of unknown values.
func TestParseDeployMode(t *testing.T) {
	tests := []struct {
		input    string
		expected DeployMode
		hasError bool
	}{
		{"local", DeployLocal, false},
		{"remote", DeployRemote, false},
		{"  remote ", DeployRemote, false},
		{"Remote", "", true},
		{"cluster", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseDeployMode(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestDeployModeFromRemote(t *testing.T) {
	assert.Equal(t, DeployRemote, DeployModeFromRemote(true))
	assert.Equal(t, DeployLocal, DeployModeFromRemote(false))
	assert.True(t, DeployRemote.IsRemote())
	assert.False(t, DeployLocal.IsRemote())
}

// TestValidateName checks that names with separators used by list flags
// are rejected.
func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"hostname", "node01", false},
		{"ip address", "192.168.1.10", false},
		{"fqdn", "node01.example.com", false},
		{"empty", "", true},
		{"contains space", "node 01", true},
		{"contains tab", "node\t01", true},
		{"contains comma", "node01,node02", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.input))
		})
	}
}

// TestCLIError verifies message formatting and error unwrapping.
func TestCLIError(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewCLIError(ExitNotFound, "Group (db) not found.")
		assert.Equal(t, "Group (db) not found.", err.Error())
		assert.Nil(t, errors.Unwrap(err))
		assert.Equal(t, ExitNotFound, err.Code)
	})

	t.Run("with underlying error", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitInventoryError, "saving inventory failed", inner)
		assert.Equal(t, "saving inventory failed: permission denied", err.Error())
		assert.True(t, errors.Is(err, inner))
	})

	t.Run("errors.As finds CLIError through wrapping", func(t *testing.T) {
		wrapped := Errorf(ExitAnsibleError, "playbook %s failed", "site.yml")
		outer := errors.Join(errors.New("context"), wrapped)

		var cliErr *CLIError
		require.True(t, errors.As(outer, &cliErr))
		assert.Equal(t, ExitAnsibleError, cliErr.Code)
		assert.Equal(t, "playbook site.yml failed", cliErr.Message)
	})
}
