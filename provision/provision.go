// Package provision sets up the system so members of the privilege group can
// change settings: the group itself, udev permissions, a polkit rule for the
// pkexec fallback, and the desktop entry
package provision

import (
	"bytes"
	"context"
	"embed"
	"log"
	"os/user"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/gramlinux/GramManager/system/lglaptop"
	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"
	"github.com/gramlinux/GramManager/util"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

//go:embed templates/*
var templates embed.FS

// Install locations
const (
	UdevRulePath     = "/etc/udev/rules.d/90-lg-gram.rules"
	PolkitRulePath   = "/etc/polkit-1/rules.d/90-lg-gram.rules"
	DesktopEntryPath = "/usr/share/applications/gram-manager.desktop"
)

// Provisioner installs the privilege model for a layout
type Provisioner struct {
	Fs     afero.Fs
	Runner util.Runner
	Layout lglaptop.Layout
	// Group defaults to shared.PrivilegeGroup
	Group string
	// BinDir is where gram-manager is installed, /usr/bin if empty
	BinDir  string
	Version string

	lookupGroup func(name string) (*user.Group, error)
}

// New returns a Provisioner operating on the real system
func New(layout lglaptop.Layout) *Provisioner {
	return &Provisioner{
		Fs:     afero.NewOsFs(),
		Runner: &util.ExecRunner{},
		Layout: layout,
	}
}

func (p *Provisioner) group() string {
	if p.Group == "" {
		return shared.PrivilegeGroup
	}
	return p.Group
}

// EnsureGroup creates the privilege group as a system group unless it already exists
func (p *Provisioner) EnsureGroup(ctx context.Context) error {
	lookup := p.lookupGroup
	if lookup == nil {
		lookup = user.LookupGroup
	}
	name := p.group()
	if _, err := lookup(name); err == nil {
		log.Printf("provision: group %s already exists\n", name)
		return nil
	}
	if err := p.Runner.Run(ctx, "", "groupadd", "--system", name); err != nil {
		return errors.Wrapf(err, "provision: cannot create group %s", name)
	}
	log.Printf("provision: created group %s\n", name)
	return nil
}

// AddUser adds username to the privilege group. It takes effect on the next login
func (p *Provisioner) AddUser(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("provision: empty user name is invalid")
	}
	if err := p.Runner.Run(ctx, "", "usermod", "-aG", p.group(), username); err != nil {
		return errors.Wrapf(err, "provision: cannot add %s to %s", username, p.group())
	}
	return nil
}

// InGroup reports whether the current process user belongs to the group
func InGroup(name string) (bool, error) {
	u, err := user.Current()
	if err != nil {
		return false, errors.Wrap(err, "provision: cannot get current user")
	}
	gids, err := u.GroupIds()
	if err != nil {
		return false, errors.Wrap(err, "provision: cannot list groups")
	}
	for _, gid := range gids {
		g, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		if g.Name == name {
			return true, nil
		}
	}
	return false, nil
}

type udevRule struct {
	Subsystem  string
	Kernel     string
	Attributes []string
}

// udevRules groups every attribute path of the layout by the device that owns it.
// Paths outside the known sysfs classes cannot be matched by udev and are skipped
func (p *Provisioner) udevRules() []udevRule {
	type device struct{ subsystem, kernel string }
	attrs := make(map[device]map[string]bool)

	add := func(d device, attr string) {
		if attrs[d] == nil {
			attrs[d] = make(map[string]bool)
		}
		attrs[d][attr] = true
	}

	for _, full := range p.paths() {
		switch {
		case strings.HasPrefix(full, lglaptop.DriverPath+"/"):
			add(device{"platform", path.Base(lglaptop.DriverPath)}, strings.TrimPrefix(full, lglaptop.DriverPath+"/"))
		case strings.HasPrefix(full, "/sys/class/leds/"):
			parts := strings.Split(strings.TrimPrefix(full, "/sys/class/leds/"), "/")
			if len(parts) == 2 {
				add(device{"leds", parts[0]}, parts[1])
			}
		case strings.HasPrefix(full, "/sys/class/power_supply/"):
			parts := strings.Split(strings.TrimPrefix(full, "/sys/class/power_supply/"), "/")
			if len(parts) == 2 {
				add(device{"power_supply", parts[0]}, parts[1])
			}
		default:
			log.Printf("provision: no udev rule for %s\n", full)
		}
	}

	rules := make([]udevRule, 0, len(attrs))
	for d, set := range attrs {
		r := udevRule{
			Subsystem: d.subsystem,
			Kernel:    d.kernel,
		}
		for a := range set {
			r.Attributes = append(r.Attributes, a)
		}
		sort.Strings(r.Attributes)
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Subsystem != rules[j].Subsystem {
			return rules[i].Subsystem < rules[j].Subsystem
		}
		return rules[i].Kernel < rules[j].Kernel
	})
	return rules
}

// paths returns every primary and alternate attribute path, sorted
func (p *Provisioner) paths() []string {
	seen := make(map[string]bool)
	for _, key := range p.Layout.Keys() {
		attr := p.Layout[key]
		seen[attr.Primary] = true
		for _, alt := range attr.Alternates {
			seen[alt] = true
		}
	}
	paths := make([]string, 0, len(seen))
	for full := range seen {
		paths = append(paths, full)
	}
	sort.Strings(paths)
	return paths
}

func render(name string, data interface{}) ([]byte, error) {
	funcs := template.FuncMap{
		"last": func(s []string) int { return len(s) - 1 },
	}
	t, err := template.New(name).Funcs(funcs).ParseFS(templates, "templates/"+name)
	if err != nil {
		return nil, errors.Wrapf(err, "provision: cannot parse %s", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "provision: cannot render %s", name)
	}
	return buf.Bytes(), nil
}

// UdevRule renders the rule granting the group write access to the attributes
func (p *Provisioner) UdevRule() ([]byte, error) {
	return render("udev.rules.tmpl", map[string]interface{}{
		"Group": p.group(),
		"Rules": p.udevRules(),
	})
}

// PolkitRule renders the rule allowing the group to use the pkexec fallback on the attributes only
func (p *Provisioner) PolkitRule() ([]byte, error) {
	return render("polkit.rules.tmpl", map[string]interface{}{
		"Group": p.group(),
		"Tee":   sysfs.TeePath,
		"Paths": p.paths(),
	})
}

// DesktopEntry renders the launcher for the GUI
func (p *Provisioner) DesktopEntry() ([]byte, error) {
	binDir := p.BinDir
	if binDir == "" {
		binDir = "/usr/bin"
	}
	version := strings.TrimPrefix(p.Version, "v")
	if version == "" {
		version = "1.0"
	}
	return render("desktop.tmpl", map[string]interface{}{
		"BinDir":  binDir,
		"Version": version,
	})
}

func (p *Provisioner) writeFile(target string, content []byte) error {
	if err := p.Fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "provision: cannot create directory for %s", target)
	}
	if err := afero.WriteFile(p.Fs, target, content, 0644); err != nil {
		return errors.Wrapf(err, "provision: cannot write %s", target)
	}
	log.Printf("provision: wrote %s\n", target)
	return nil
}

// Install creates the group, writes the rules and desktop entry, then asks udev
// to apply the new permissions. Failing to reload udev is not fatal
func (p *Provisioner) Install(ctx context.Context) error {
	if err := p.EnsureGroup(ctx); err != nil {
		return err
	}

	files := []struct {
		target string
		render func() ([]byte, error)
	}{
		{UdevRulePath, p.UdevRule},
		{PolkitRulePath, p.PolkitRule},
		{DesktopEntryPath, p.DesktopEntry},
	}
	for _, f := range files {
		content, err := f.render()
		if err != nil {
			return err
		}
		if err := p.writeFile(f.target, content); err != nil {
			return err
		}
	}

	if err := p.Runner.Run(ctx, "", "udevadm", "control", "--reload-rules"); err != nil {
		log.Printf("provision: cannot reload udev rules: %v\n", err)
		return nil
	}
	for _, subsystem := range []string{"platform", "leds", "power_supply"} {
		if err := p.Runner.Run(ctx, "", "udevadm", "trigger", "--subsystem-match="+subsystem); err != nil {
			log.Printf("provision: cannot trigger udev for %s: %v\n", subsystem, err)
		}
	}
	return nil
}
