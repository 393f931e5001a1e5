package battery

import (
	"context"
	"testing"

	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const thresholdPath = "/sys/class/power_supply/CMB0/charge_control_end_threshold"

func newLimit(t *testing.T, content string) (*ChargeLimit, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, thresholdPath, []byte(content), 0644))
	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)

	limit, err := NewChargeLimit(attrs.Node(thresholdPath))
	require.NoError(t, err)
	return limit, fs
}

func TestBatteryReadMapping(t *testing.T) {
	limit, _ := newLimit(t, "80\n")
	require.Equal(t, LimitCare, limit.CurrentLimit())

	limit, _ = newLimit(t, "95\n")
	require.Equal(t, LimitFull, limit.CurrentLimit())

	limit, _ = newLimit(t, "100\n")
	require.Equal(t, "100", limit.Current())
}

func TestBatterySet(t *testing.T) {
	limit, fs := newLimit(t, "100\n")

	require.NoError(t, limit.Set(context.Background(), "80%"))
	require.Equal(t, LimitCare, limit.CurrentLimit())

	b, err := afero.ReadFile(fs, thresholdPath)
	require.NoError(t, err)
	require.Equal(t, "80", string(b))

	err = limit.Set(context.Background(), "60")
	require.True(t, errors.Is(err, shared.ErrInvalidValue))
	require.Equal(t, LimitCare, limit.CurrentLimit())

	err = limit.Set(context.Background(), "lots")
	require.True(t, errors.Is(err, shared.ErrInvalidValue))
}

func TestBatteryPersist(t *testing.T) {
	limit, _ := newLimit(t, "100\n")
	require.NotEmpty(t, limit.Name())
	require.Empty(t, limit.Value())

	require.NoError(t, limit.SetLimit(context.Background(), LimitCare))
	b := limit.Value()
	require.Equal(t, "80", b)

	loaded, _ := newLimit(t, "100\n")
	require.NoError(t, loaded.Load(b))
	require.NoError(t, loaded.Apply())
	require.Equal(t, LimitCare, loaded.CurrentLimit())
}
