package sysfs

import (
	"context"
	"os/exec"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type mockElevator struct {
	err    error
	writes map[string]string
}

func (m *mockElevator) Write(ctx context.Context, path string, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.writes == nil {
		m.writes = make(map[string]string)
	}
	m.writes[path] = value
	return nil
}

const testAttr = "/sys/devices/platform/lg-laptop/reader_mode"

func newMemFs(t *testing.T, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func TestReadTrimsNewline(t *testing.T) {
	attrs, err := NewAttributes(newMemFs(t, map[string]string{testAttr: "1\n"}), nil)
	require.NoError(t, err)

	v, err := attrs.Read(testAttr)
	require.NoError(t, err)
	require.Equal(t, "1", v)
}

func TestWriteDirect(t *testing.T) {
	fs := newMemFs(t, map[string]string{testAttr: "0\n"})
	elevator := &mockElevator{}
	attrs, err := NewAttributes(fs, elevator)
	require.NoError(t, err)

	require.NoError(t, attrs.Write(context.Background(), testAttr, "1"))

	b, err := afero.ReadFile(fs, testAttr)
	require.NoError(t, err)
	require.Equal(t, "1", string(b))
	require.Empty(t, elevator.writes)
}

func TestWriteMissingDoesNotElevate(t *testing.T) {
	elevator := &mockElevator{}
	attrs, err := NewAttributes(afero.NewMemMapFs(), elevator)
	require.NoError(t, err)

	err = attrs.Write(context.Background(), testAttr, "1")
	require.Error(t, err)
	require.Empty(t, elevator.writes)
}

func TestWritePermissionDeniedElevates(t *testing.T) {
	fs := afero.NewReadOnlyFs(newMemFs(t, map[string]string{testAttr: "0\n"}))
	elevator := &mockElevator{}
	attrs, err := NewAttributes(fs, elevator)
	require.NoError(t, err)

	require.NoError(t, attrs.Write(context.Background(), testAttr, "1"))
	require.Equal(t, "1", elevator.writes[testAttr])
}

func TestWritePermissionDeniedWithoutElevator(t *testing.T) {
	fs := afero.NewReadOnlyFs(newMemFs(t, map[string]string{testAttr: "0\n"}))
	attrs, err := NewAttributes(fs, nil)
	require.NoError(t, err)

	require.Error(t, attrs.Write(context.Background(), testAttr, "1"))
}

func TestWriteElevationFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(newMemFs(t, map[string]string{testAttr: "0\n"}))
	attrs, err := NewAttributes(fs, &mockElevator{err: ErrElevationFailed})
	require.NoError(t, err)

	err = attrs.Write(context.Background(), testAttr, "1")
	require.True(t, errors.Is(err, ErrElevationFailed))
}

func TestResolve(t *testing.T) {
	primary := "/sys/class/leds/kbd_backlight/brightness"
	alt := "/sys/class/leds/lg_laptop::kbd_backlight/brightness"

	attrs, err := NewAttributes(newMemFs(t, map[string]string{alt: "0"}), nil)
	require.NoError(t, err)
	require.Equal(t, alt, attrs.Resolve(primary, alt))

	attrs, err = NewAttributes(newMemFs(t, map[string]string{primary: "0", alt: "0"}), nil)
	require.NoError(t, err)
	require.Equal(t, primary, attrs.Resolve(primary, alt))

	attrs, err = NewAttributes(afero.NewMemMapFs(), nil)
	require.NoError(t, err)
	require.Equal(t, primary, attrs.Resolve(primary, alt))
}

func TestDryAttributesKeepBaseUntouched(t *testing.T) {
	base := newMemFs(t, map[string]string{testAttr: "0\n"})
	attrs := NewDryAttributes(base)

	require.NoError(t, attrs.Write(context.Background(), testAttr, "1"))

	v, err := attrs.Read(testAttr)
	require.NoError(t, err)
	require.Equal(t, "1", v)

	b, err := afero.ReadFile(base, testAttr)
	require.NoError(t, err)
	require.Equal(t, "0\n", string(b))
}

func TestPkexecElevatorExitStatus(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false(1) not available")
	}

	ok := &PkexecElevator{Command: "true"}
	require.NoError(t, ok.Write(context.Background(), testAttr, "1"))

	fail := &PkexecElevator{Command: "false"}
	err := fail.Write(context.Background(), testAttr, "1")
	require.True(t, errors.Is(err, ErrElevationFailed))
}
