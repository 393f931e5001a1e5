package toggle

import (
	"context"
	"testing"

	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const fnLockPath = "/sys/devices/platform/lg-laptop/fn_lock"

func newToggle(t *testing.T, fs afero.Fs) *Toggle {
	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)

	toggle, err := New(Config{
		Key:   "fn_lock",
		Title: "FN Lock",
		Node:  attrs.Node(fnLockPath),
	})
	require.NoError(t, err)
	return toggle
}

func TestToggleReadsInitialState(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, fnLockPath, []byte("1\n"), 0644))

	toggle := newToggle(t, fs)
	require.True(t, toggle.Available())
	require.True(t, toggle.Enabled())
	require.Equal(t, On, toggle.Current())
}

func TestToggleOnlyExactOnValueIsOn(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, fnLockPath, []byte("2\n"), 0644))

	toggle := newToggle(t, fs)
	require.False(t, toggle.Enabled())
}

func TestToggleSet(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, fnLockPath, []byte("0\n"), 0644))

	toggle := newToggle(t, fs)
	require.NoError(t, toggle.Set(context.Background(), "on"))
	require.True(t, toggle.Enabled())

	b, err := afero.ReadFile(fs, fnLockPath)
	require.NoError(t, err)
	require.Equal(t, "1", string(b))
	require.Equal(t, On, toggle.Value())

	err = toggle.Set(context.Background(), "maybe")
	require.True(t, errors.Is(err, shared.ErrInvalidValue))
	require.True(t, toggle.Enabled())
}

func TestToggleFailedWriteKeepsState(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, fnLockPath, []byte("0\n"), 0644))

	toggle := newToggle(t, afero.NewReadOnlyFs(mem))
	require.Error(t, toggle.SetEnabled(context.Background(), true))
	require.False(t, toggle.Enabled())
	require.Empty(t, toggle.Value())
}

func TestToggleUnavailable(t *testing.T) {
	toggle := newToggle(t, afero.NewMemMapFs())
	require.False(t, toggle.Available())

	err := toggle.SetEnabled(context.Background(), true)
	require.True(t, errors.Is(err, shared.ErrUnavailable))
	require.NoError(t, toggle.Apply())
}

func TestToggleRefreshDetectsChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, fnLockPath, []byte("0\n"), 0644))
	toggle := newToggle(t, fs)

	changed, err := toggle.Refresh()
	require.NoError(t, err)
	require.False(t, changed)

	require.NoError(t, afero.WriteFile(fs, fnLockPath, []byte("1\n"), 0644))
	changed, err = toggle.Refresh()
	require.NoError(t, err)
	require.True(t, changed)
}

func TestTogglePersist(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, fnLockPath, []byte("0\n"), 0644))
	toggle := newToggle(t, fs)

	require.NotEmpty(t, toggle.Name())
	require.NoError(t, toggle.Load("on"))
	require.Error(t, toggle.Load("sideways"))
	require.NoError(t, toggle.Apply())
	require.True(t, toggle.Enabled())
}
