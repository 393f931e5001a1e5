// Package packaging builds the Debian package: dependency check, clean,
// dpkg-buildpackage, then relocating the artifact into dist/
package packaging

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/gramlinux/GramManager/util"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

//go:embed templates/*
var templates embed.FS

const (
	DefaultPackage    = "gram-manager"
	DefaultMaintainer = "GramManager Maintainers <gram-manager@users.noreply.github.com>"

	distDir = "dist"
)

var buildDependencies = []string{"build-essential", "debhelper", "devscripts", "golang-go"}

// Options controls a build. Zero values use the defaults and the real system
type Options struct {
	// SourceDir holds the checkout, "." if empty. Artifacts land in its parent
	SourceDir  string
	Package    string
	Version    string
	Maintainer string

	Fs     afero.Fs
	Runner util.Runner
	// IsRoot decides whether apt-get needs sudo
	IsRoot func() bool
	Now    func() time.Time
}

func (o *Options) setDefaults() error {
	if o.SourceDir == "" {
		o.SourceDir = "."
	}
	abs, err := filepath.Abs(o.SourceDir)
	if err != nil {
		return errors.Wrap(err, "packaging: cannot resolve source directory")
	}
	o.SourceDir = abs
	if o.Package == "" {
		o.Package = DefaultPackage
	}
	if o.Version == "" {
		o.Version = "v0.0.0"
	}
	if o.Maintainer == "" {
		o.Maintainer = DefaultMaintainer
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Runner == nil {
		o.Runner = &util.ExecRunner{}
	}
	if o.IsRoot == nil {
		o.IsRoot = func() bool { return unix.Geteuid() == 0 }
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}

// DebVersion converts a semantic version into a Debian version, where a
// prerelease sorts before its release
func DebVersion(version string) (string, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", errors.Wrapf(err, "packaging: invalid version %s", version)
	}
	deb := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	if pre := v.Prerelease(); pre != "" {
		deb += "~" + strings.ReplaceAll(pre, "-", ".")
	}
	return deb, nil
}

// Build runs every step and returns the path of the package in dist/.
// The first failing step aborts the build
func Build(ctx context.Context, opts Options) (string, error) {
	if err := opts.setDefaults(); err != nil {
		return "", err
	}

	steps := []struct {
		name string
		fn   func(context.Context, Options) error
	}{
		{"dependencies", ensureDependencies},
		{"clean", clean},
		{"stage", stage},
		{"build", buildPackage},
	}
	for _, s := range steps {
		log.Printf("packaging: %s\n", s.name)
		if err := s.fn(ctx, opts); err != nil {
			return "", err
		}
	}

	artifact, err := relocate(opts)
	if err != nil {
		return "", err
	}
	log.Printf("packaging: built %s\n", artifact)
	return artifact, nil
}

func ensureDependencies(ctx context.Context, opts Options) error {
	if _, err := opts.Runner.LookPath("dpkg-buildpackage"); err == nil {
		return nil
	}
	log.Printf("packaging: dpkg-buildpackage not found, installing %s\n", strings.Join(buildDependencies, " "))

	args := append([]string{"install", "-y"}, buildDependencies...)
	name := "apt-get"
	if !opts.IsRoot() {
		args = append([]string{name}, args...)
		name = "sudo"
	}
	if err := opts.Runner.Run(ctx, "", name, args...); err != nil {
		return errors.Wrap(err, "packaging: cannot install build dependencies")
	}
	if _, err := opts.Runner.LookPath("dpkg-buildpackage"); err != nil {
		return errors.Wrap(err, "packaging: dpkg-buildpackage still missing after install")
	}
	return nil
}

// artifacts lists the files dpkg-buildpackage leaves in the parent directory
func artifacts(opts Options, exts ...string) ([]string, error) {
	parent := filepath.Dir(opts.SourceDir)
	var found []string
	for _, ext := range exts {
		matches, err := afero.Glob(opts.Fs, filepath.Join(parent, opts.Package+"_*"+ext))
		if err != nil {
			return nil, errors.Wrap(err, "packaging: cannot list artifacts")
		}
		found = append(found, matches...)
	}
	return found, nil
}

func clean(ctx context.Context, opts Options) error {
	if err := opts.Fs.RemoveAll(filepath.Join(opts.SourceDir, distDir)); err != nil {
		return errors.Wrap(err, "packaging: cannot remove dist")
	}
	stale, err := artifacts(opts, ".deb", ".buildinfo", ".changes")
	if err != nil {
		return err
	}
	for _, f := range stale {
		if err := opts.Fs.Remove(f); err != nil {
			return errors.Wrapf(err, "packaging: cannot remove %s", f)
		}
		log.Printf("packaging: removed %s\n", f)
	}
	return nil
}

type debianFile struct {
	name     string
	template string
	mode     os.FileMode
	// perPackage files are named <package>.<name>, as debhelper expects
	perPackage bool
}

var debianFiles = []debianFile{
	{"control", "control.tmpl", 0644, false},
	{"changelog", "changelog.tmpl", 0644, false},
	{"rules", "rules.tmpl", 0755, false},
	{"compat", "compat.tmpl", 0644, false},
	{"install", "install.tmpl", 0644, true},
	{"service", "service.tmpl", 0644, true},
	{"postinst", "postinst.tmpl", 0755, false},
	{"system-sleep", "sleep.tmpl", 0755, false},
}

// stage writes the debian/ metadata that the checkout does not already carry
func stage(ctx context.Context, opts Options) error {
	debVersion, err := DebVersion(opts.Version)
	if err != nil {
		return err
	}
	data := map[string]string{
		"Package":    opts.Package,
		"Version":    opts.Version,
		"DebVersion": debVersion,
		"Maintainer": opts.Maintainer,
		"Date":       opts.Now().Format(time.RFC1123Z),
	}

	dir := filepath.Join(opts.SourceDir, "debian")
	if err := opts.Fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "packaging: cannot create debian directory")
	}
	for _, f := range debianFiles {
		name := f.name
		if f.perPackage {
			name = opts.Package + "." + f.name
		}
		target := filepath.Join(dir, name)
		if ok, _ := afero.Exists(opts.Fs, target); ok {
			continue
		}
		t, err := template.ParseFS(templates, "templates/"+f.template)
		if err != nil {
			return errors.Wrapf(err, "packaging: cannot parse %s", f.template)
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return errors.Wrapf(err, "packaging: cannot render %s", f.template)
		}
		if err := afero.WriteFile(opts.Fs, target, buf.Bytes(), f.mode); err != nil {
			return errors.Wrapf(err, "packaging: cannot write %s", target)
		}
		log.Printf("packaging: staged debian/%s\n", name)
	}
	return nil
}

func buildPackage(ctx context.Context, opts Options) error {
	if err := opts.Runner.Run(ctx, opts.SourceDir, "dpkg-buildpackage", "-us", "-uc", "-b"); err != nil {
		return errors.Wrap(err, "packaging: dpkg-buildpackage failed")
	}
	return nil
}

func relocate(opts Options) (string, error) {
	debs, err := artifacts(opts, ".deb")
	if err != nil {
		return "", err
	}
	if len(debs) != 1 {
		return "", errors.Errorf("packaging: expected exactly one %s_*.deb, found %d", opts.Package, len(debs))
	}
	dist := filepath.Join(opts.SourceDir, distDir)
	if err := opts.Fs.MkdirAll(dist, 0755); err != nil {
		return "", errors.Wrap(err, "packaging: cannot create dist")
	}
	target := filepath.Join(dist, filepath.Base(debs[0]))
	if err := opts.Fs.Rename(debs[0], target); err != nil {
		return "", errors.Wrapf(err, "packaging: cannot move %s", debs[0])
	}
	return target, nil
}
