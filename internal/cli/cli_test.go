package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REFERRAL_TIERS", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTiersCommand(t *testing.T) {
	out, err := run(t, "tiers")
	require.NoError(t, err)

	assert.Contains(t, out, "TIER")
	assert.Contains(t, out, "5-9")
	assert.Contains(t, out, "100+")
	assert.Contains(t, out, "25%")
}

func TestResolveCommand(t *testing.T) {
	out, err := run(t, "resolve", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "tier 2 at 7%")
	assert.Contains(t, out, "3 more to tier 3")

	out, err = run(t, "resolve", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "tier 8 at 25%")
	assert.Contains(t, out, "top tier")

	_, err = run(t, "resolve", "-2")
	assert.Error(t, err)
}

func TestResolveUsesConfiguredTiers(t *testing.T) {
	t.Setenv("REFERRAL_TIERS", `[{"tier":1,"min_referrals":0,"max_referrals":1,"rate":5},{"tier":2,"min_referrals":2,"max_referrals":-1,"rate":9}]`)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"resolve", "2"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "tier 2 at 9%")
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "admin-1", "--role", "admin")
	require.NoError(t, err)
	assert.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+\n$`, out)
}
