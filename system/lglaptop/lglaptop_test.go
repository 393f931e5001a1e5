package lglaptop

import (
	"testing"

	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLayoutUsesAlternateLED(t *testing.T) {
	fs := afero.NewMemMapFs()
	alt := "/sys/class/leds/lg_laptop::tpad/brightness"
	require.NoError(t, afero.WriteFile(fs, alt, []byte("1\n"), 0644))

	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)

	node := DefaultLayout().Node(attrs, KeyTpadLED)
	require.NotNil(t, node)
	require.Equal(t, alt, node.Path())
	require.Nil(t, DefaultLayout().Node(attrs, "nope"))
}

func TestLayoutOverrides(t *testing.T) {
	l := DefaultLayout().WithOverrides(map[string]string{
		KeyBatteryLimit: "/sys/class/power_supply/BAT9/charge_control_end_threshold",
		"unknown":       "/tmp/x",
	})
	require.Equal(t, "/sys/class/power_supply/BAT9/charge_control_end_threshold", l[KeyBatteryLimit].Primary)
	require.Empty(t, l[KeyBatteryLimit].Alternates)
	_, ok := l["unknown"]
	require.False(t, ok)

	// the default layout is not mutated
	require.Equal(t, "/sys/class/power_supply/CMB0/charge_control_end_threshold", DefaultLayout()[KeyBatteryLimit].Primary)
}

func TestDriverLoaded(t *testing.T) {
	fs := afero.NewMemMapFs()
	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)
	require.False(t, DriverLoaded(attrs))

	require.NoError(t, fs.MkdirAll(DriverPath, 0755))
	require.True(t, DriverLoaded(attrs))
	require.Len(t, DefaultLayout().Keys(), 7)
}
