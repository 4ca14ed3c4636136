package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgrade(t *testing.T) {
	cmd := Upgrade()

	require.NotNil(t, cmd)
	assert.Equal(t, "upgrade", cmd.Use)
	assert.Equal(t, "Perform a rolling upgrade of the cluster", cmd.Short)
	assert.Contains(t, cmd.Long, "at most one node is ever out of")
}

func TestUpgrade_Flags(t *testing.T) {
	cmd := Upgrade()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"nodes", "n", "[]"},
		{"username", "u", ""},
		{"password", "P", ""},
		{"port", "p", "0"},
		{"ssl", "s", "false"},
		{"insecure-skip-verify", "", "false"},
		{"ssh-user", "", ""},
		{"ssh-port", "", "0"},
		{"ssh-key", "", ""},
		{"target-version", "", ""},
		{"service-stop-command", "", ""},
		{"service-start-command", "", ""},
		{"upgrade-command", "", ""},
		{"upgrade-system-command", "", ""},
		{"latest-version-command", "", ""},
		{"reboot-command", "", ""},
		{"upgrade-system", "", "false"},
		{"reboot", "", "false"},
		{"force-reboot", "", "false"},
		{"verbose", "v", "false"},
		{"health-timeout", "", "0s"},
		{"poll-interval", "", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag, "%s flag should exist", tt.name)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestHealth(t *testing.T) {
	cmd := Health()

	require.NotNil(t, cmd)
	assert.Equal(t, "health", cmd.Use)

	for _, name := range []string{"config", "nodes", "username", "password", "port", "ssl"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "%s flag should exist", name)
	}
}
