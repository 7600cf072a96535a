package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	err := execute(t, "inject", "--definitely-not-a-flag")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUsage), "got %v", err)
	assert.True(t, isUsageError(err))
}

func TestMissingRequiredFlagIsUsageError(t *testing.T) {
	err := execute(t, "inject", "--payload", "{{CALLBACK}}")
	require.Error(t, err)
	assert.True(t, isUsageError(err), "got %v", err)
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	err := execute(t, "frobnicate")
	require.Error(t, err)
	assert.True(t, isUsageError(err), "got %v", err)
}

func TestMissingPositionalArgIsUsageError(t *testing.T) {
	err := execute(t, "suggest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errUsage), "got %v", err)
}

func TestRuntimeErrorIsNotUsageError(t *testing.T) {
	assert.False(t, isUsageError(errors.New("dial tcp: connection refused")))
}
