package packaging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	parentDir = "/src"
	sourceDir = "/src/gram-manager"
)

// fakeSystem pretends to be apt-get and dpkg-buildpackage
type fakeSystem struct {
	fs        afero.Fs
	installed bool
	debs      []string
	commands  []string
}

func (f *fakeSystem) LookPath(name string) (string, error) {
	if name == "dpkg-buildpackage" && !f.installed {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeSystem) Run(ctx context.Context, dir string, name string, args ...string) error {
	f.commands = append(f.commands, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	switch name {
	case "apt-get", "sudo":
		f.installed = true
	case "dpkg-buildpackage":
		if dir != sourceDir {
			return errors.Errorf("unexpected directory %s", dir)
		}
		for _, deb := range f.debs {
			base := strings.TrimSuffix(deb, ".deb")
			for _, ext := range []string{".deb", ".buildinfo", ".changes"} {
				if err := afero.WriteFile(f.fs, filepath.Join(parentDir, base+ext), []byte(ext), 0644); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func newOptions(t *testing.T, installed bool) (Options, *fakeSystem) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(sourceDir, 0755))
	sys := &fakeSystem{
		fs:        fs,
		installed: installed,
		debs:      []string{"gram-manager_1.2.0_amd64.deb"},
	}
	return Options{
		SourceDir: sourceDir,
		Version:   "v1.2.0",
		Fs:        fs,
		Runner:    sys,
		IsRoot:    func() bool { return false },
		Now:       func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}, sys
}

func listDir(t *testing.T, fs afero.Fs, dir string) []string {
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names
}

func TestBuildProducesOneDeb(t *testing.T) {
	require := require.New(t)

	opts, sys := newOptions(t, true)
	artifact, err := Build(context.Background(), opts)
	require.NoError(err)
	require.Equal(filepath.Join(sourceDir, "dist", "gram-manager_1.2.0_amd64.deb"), artifact)

	require.Equal([]string{"gram-manager_1.2.0_amd64.deb"}, listDir(t, opts.Fs, filepath.Join(sourceDir, "dist")))
	require.Equal([]string{"dpkg-buildpackage -us -uc -b"}, sys.commands)

	changelog, err := afero.ReadFile(opts.Fs, filepath.Join(sourceDir, "debian", "changelog"))
	require.NoError(err)
	require.True(strings.HasPrefix(string(changelog), "gram-manager (1.2.0) unstable; urgency=medium"))
	require.Contains(string(changelog), "Fri, 01 Mar 2024 12:00:00 +0000")

	rules, err := opts.Fs.Stat(filepath.Join(sourceDir, "debian", "rules"))
	require.NoError(err)
	require.Equal(os.FileMode(0755), rules.Mode().Perm())

	ok, err := afero.Exists(opts.Fs, filepath.Join(sourceDir, "debian", "gram-manager.install"))
	require.NoError(err)
	require.True(ok)
}

func TestBuildStagesSupervisorService(t *testing.T) {
	require := require.New(t)

	opts, _ := newOptions(t, true)
	_, err := Build(context.Background(), opts)
	require.NoError(err)

	unit, err := afero.ReadFile(opts.Fs, filepath.Join(sourceDir, "debian", "gram-manager.service"))
	require.NoError(err)
	require.Contains(string(unit), "ExecStart=/usr/bin/gram-manager-supervisor")
	require.Contains(string(unit), "WantedBy=multi-user.target")

	hook, err := opts.Fs.Stat(filepath.Join(sourceDir, "debian", "system-sleep"))
	require.NoError(err)
	require.Equal(os.FileMode(0755), hook.Mode().Perm())

	rules, err := afero.ReadFile(opts.Fs, filepath.Join(sourceDir, "debian", "rules"))
	require.NoError(err)
	require.Contains(string(rules), "debian/gram-manager/lib/systemd/system-sleep/gram-manager")

	control, err := afero.ReadFile(opts.Fs, filepath.Join(sourceDir, "debian", "control"))
	require.NoError(err)
	require.Contains(string(control), "Architecture: any\n")
	require.NotContains(string(control), "amd64")
}

func TestBuildInstallsMissingDependencies(t *testing.T) {
	require := require.New(t)

	opts, sys := newOptions(t, false)
	_, err := Build(context.Background(), opts)
	require.NoError(err)
	require.Equal("sudo apt-get install -y build-essential debhelper devscripts golang-go", sys.commands[0])

	opts, sys = newOptions(t, false)
	opts.IsRoot = func() bool { return true }
	_, err = Build(context.Background(), opts)
	require.NoError(err)
	require.Equal("apt-get install -y build-essential debhelper devscripts golang-go", sys.commands[0])
}

func TestBuildCleansPreviousArtifacts(t *testing.T) {
	require := require.New(t)

	opts, sys := newOptions(t, true)
	require.NoError(afero.WriteFile(opts.Fs, filepath.Join(parentDir, "gram-manager_0.9.0_amd64.deb"), nil, 0644))
	require.NoError(afero.WriteFile(opts.Fs, filepath.Join(parentDir, "gram-manager_0.9.0_amd64.changes"), nil, 0644))
	require.NoError(afero.WriteFile(opts.Fs, filepath.Join(parentDir, "other_1.0_amd64.deb"), nil, 0644))
	require.NoError(opts.Fs.MkdirAll(filepath.Join(sourceDir, "dist"), 0755))
	require.NoError(afero.WriteFile(opts.Fs, filepath.Join(sourceDir, "dist", "stale.deb"), nil, 0644))

	for i := 0; i < 2; i++ {
		_, err := Build(context.Background(), opts)
		require.NoError(err)
	}

	require.Equal([]string{"gram-manager_1.2.0_amd64.deb"}, listDir(t, opts.Fs, filepath.Join(sourceDir, "dist")))
	require.ElementsMatch([]string{
		"gram-manager_1.2.0_amd64.buildinfo",
		"gram-manager_1.2.0_amd64.changes",
		"other_1.0_amd64.deb",
	}, listDir(t, opts.Fs, parentDir))
	require.Len(sys.commands, 2)
}

func TestBuildKeepsExistingDebianFiles(t *testing.T) {
	require := require.New(t)

	opts, _ := newOptions(t, true)
	control := filepath.Join(sourceDir, "debian", "control")
	require.NoError(opts.Fs.MkdirAll(filepath.Dir(control), 0755))
	require.NoError(afero.WriteFile(opts.Fs, control, []byte("Source: custom\n"), 0644))

	_, err := Build(context.Background(), opts)
	require.NoError(err)

	b, err := afero.ReadFile(opts.Fs, control)
	require.NoError(err)
	require.Equal("Source: custom\n", string(b))
}

func TestBuildFailsWithoutExactlyOneDeb(t *testing.T) {
	require := require.New(t)

	opts, sys := newOptions(t, true)
	sys.debs = nil
	_, err := Build(context.Background(), opts)
	require.Error(err)
	require.Contains(err.Error(), "found 0")

	opts, sys = newOptions(t, true)
	sys.debs = []string{"gram-manager_1.2.0_amd64.deb", "gram-manager_1.2.0_i386.deb"}
	_, err = Build(context.Background(), opts)
	require.Error(err)
	require.Contains(err.Error(), "found 2")
}

func TestDebVersion(t *testing.T) {
	require := require.New(t)

	v, err := DebVersion("v1.4.2")
	require.NoError(err)
	require.Equal("1.4.2", v)

	v, err = DebVersion("v2.0.0-rc-1")
	require.NoError(err)
	require.Equal("2.0.0~rc.1", v)

	_, err = DebVersion("latest")
	require.Error(err)
}
