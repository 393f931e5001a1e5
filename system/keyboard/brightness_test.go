package keyboard

import (
	"context"
	"testing"

	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const ledPath = "/sys/class/leds/kbd_backlight/brightness"

func newBrightness(t *testing.T, content string) (*Brightness, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, ledPath, []byte(content), 0644))
	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)

	b, err := NewBrightnessControl(attrs.Node(ledPath))
	require.NoError(t, err)
	return b, fs
}

func TestLevelFromBrightness(t *testing.T) {
	require.Equal(t, OFF, LevelFromBrightness(0))
	require.Equal(t, LOW, LevelFromBrightness(1))
	require.Equal(t, LOW, LevelFromBrightness(127))
	require.Equal(t, HIGH, LevelFromBrightness(128))
	require.Equal(t, HIGH, LevelFromBrightness(255))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("High")
	require.NoError(t, err)
	require.Equal(t, HIGH, l)

	l, err = ParseLevel("64")
	require.NoError(t, err)
	require.Equal(t, LOW, l)

	_, err = ParseLevel("blinding")
	require.True(t, errors.Is(err, shared.ErrInvalidValue))
	_, err = ParseLevel("256")
	require.True(t, errors.Is(err, shared.ErrInvalidValue))
}

func TestBrightnessSetWritesRawValue(t *testing.T) {
	b, fs := newBrightness(t, "0\n")
	require.Equal(t, OFF, b.Level())

	require.NoError(t, b.Set(context.Background(), "low"))
	raw, err := afero.ReadFile(fs, ledPath)
	require.NoError(t, err)
	require.Equal(t, "127", string(raw))

	require.NoError(t, b.SetLevel(context.Background(), HIGH))
	raw, err = afero.ReadFile(fs, ledPath)
	require.NoError(t, err)
	require.Equal(t, "255", string(raw))
}

func TestBrightnessUpDownStopAtEnds(t *testing.T) {
	b, _ := newBrightness(t, "255\n")
	require.NoError(t, b.Up(context.Background()))
	require.Equal(t, HIGH, b.Level())

	require.NoError(t, b.Down(context.Background()))
	require.NoError(t, b.Down(context.Background()))
	require.Equal(t, OFF, b.Level())
	require.NoError(t, b.Down(context.Background()))
	require.Equal(t, OFF, b.Level())

	require.NoError(t, b.Up(context.Background()))
	require.Equal(t, LOW, b.Level())
}

func TestBrightnessSetSteps(t *testing.T) {
	b, fs := newBrightness(t, "0\n")

	require.NoError(t, b.Set(context.Background(), "up"))
	require.NoError(t, b.Set(context.Background(), " UP "))
	require.Equal(t, HIGH, b.Level())
	require.Equal(t, "high", b.Value())

	require.NoError(t, b.Set(context.Background(), "down"))
	raw, err := afero.ReadFile(fs, ledPath)
	require.NoError(t, err)
	require.Equal(t, "127", string(raw))
	require.Equal(t, "low", b.Value())
}

func TestBrightnessPersist(t *testing.T) {
	b, _ := newBrightness(t, "0\n")
	require.NotEmpty(t, b.Name())
	require.Empty(t, b.Value())

	require.NoError(t, b.Load("high"))
	require.NoError(t, b.Apply())
	require.Equal(t, HIGH, b.Level())
	require.Equal(t, "high", b.Value())
}
