package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gramlinux/GramManager/controller"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Setenv("DRY_RUN", "1")
	dir := t.TempDir()

	a := &app{}
	defer a.Close()

	root := rootCmd(a)
	root.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--state", filepath.Join(dir, "state.yaml"),
	}, args...))
	root.SilenceErrors = true
	return root.ExecuteContext(context.Background())
}

func TestGetUnknownFeature(t *testing.T) {
	err := execute(t, "get", "turbo")
	require.Error(t, err)
	require.True(t, errors.Is(err, controller.ErrUnknownFeature))
}

func TestApplyIsLocalOnly(t *testing.T) {
	err := execute(t, "--remote", "apply")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--remote")
}

func TestArgumentValidation(t *testing.T) {
	require.Error(t, execute(t, "set", "fn_lock"))
	require.Error(t, execute(t, "list", "extra"))
}

func TestList(t *testing.T) {
	require.NoError(t, execute(t, "list"))
}
