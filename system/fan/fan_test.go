package fan

import (
	"context"
	"testing"

	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const fanPath = "/sys/devices/platform/lg-laptop/fan_mode"

func newControl(t *testing.T, content string) (*Control, afero.Fs) {
	fs := afero.NewMemMapFs()
	if content != "" {
		require.NoError(t, afero.WriteFile(fs, fanPath, []byte(content), 0644))
	}
	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)

	c, err := NewControl(attrs.Node(fanPath))
	require.NoError(t, err)
	return c, fs
}

func TestParseMode(t *testing.T) {
	for input, expected := range map[string]Mode{
		"silent":      Silent,
		"1":           Silent,
		" Optimal ":   Optimal,
		"0":           Optimal,
		"performance": Performance,
		"2":           Performance,
	} {
		m, err := ParseMode(input)
		require.NoError(t, err, input)
		require.Equal(t, expected, m, input)
	}

	_, err := ParseMode("turbo")
	require.True(t, errors.Is(err, shared.ErrInvalidValue))
}

func TestChoicesInDisplayOrder(t *testing.T) {
	c, _ := newControl(t, "0\n")
	require.Equal(t, []string{"silent", "optimal", "performance"}, c.Choices())
}

func TestFanSetMode(t *testing.T) {
	c, fs := newControl(t, "0\n")
	require.Equal(t, Optimal, c.Mode())

	require.NoError(t, c.Set(context.Background(), "performance"))
	require.Equal(t, Performance, c.Mode())

	b, err := afero.ReadFile(fs, fanPath)
	require.NoError(t, err)
	require.Equal(t, "2", string(b))
	require.Equal(t, "performance", c.Value())
}

func TestFanSameModeIsNoop(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, fanPath, []byte("1\n"), 0644))
	// a read-only fs fails any write, so success proves nothing was written
	attrs, err := sysfs.NewAttributes(afero.NewReadOnlyFs(mem), nil)
	require.NoError(t, err)

	c, err := NewControl(attrs.Node(fanPath))
	require.NoError(t, err)
	require.NoError(t, c.SetMode(context.Background(), Silent))
	require.Error(t, c.SetMode(context.Background(), Optimal))
	require.Equal(t, Silent, c.Mode())
}

func TestFanUnparsableReadKeepsMode(t *testing.T) {
	c, fs := newControl(t, "2\n")
	require.Equal(t, Performance, c.Mode())

	require.NoError(t, afero.WriteFile(fs, fanPath, []byte("garbage\n"), 0644))
	changed, err := c.Refresh()
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, Performance, c.Mode())
}

func TestFanUnavailable(t *testing.T) {
	c, _ := newControl(t, "")
	require.False(t, c.Available())
	require.Equal(t, Unknown, c.Mode())
	require.Equal(t, "unknown", c.Current())

	err := c.SetMode(context.Background(), Silent)
	require.True(t, errors.Is(err, shared.ErrUnavailable))
}

func TestFanPersist(t *testing.T) {
	c, _ := newControl(t, "0\n")
	require.Empty(t, c.Value())

	require.NoError(t, c.Load("silent"))
	require.Equal(t, "silent", c.Value())
	require.NoError(t, c.Apply())
	require.Equal(t, Silent, c.Mode())

	loaded, _ := newControl(t, "0\n")
	require.Error(t, loaded.Load("warp"))
}
