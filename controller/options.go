package controller

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultSystemOptionsPath is read by the supervisor
const DefaultSystemOptionsPath = "/etc/gram-manager/config.yaml"

const (
	defaultPollInterval = time.Second * 2
	defaultPersistDelay = time.Second
)

// Options are the user editable settings. They are never written by the application
type Options struct {
	// Paths overrides attribute locations by feature key
	Paths map[string]string `yaml:"paths"`
	// Elevation enables the pkexec fallback when a write is denied
	Elevation *bool `yaml:"elevation"`
	// PollInterval is how often hardware is re-read to pick up changes made elsewhere
	PollInterval time.Duration `yaml:"poll_interval"`
	// Notify enables desktop notifications for changes made elsewhere
	Notify bool `yaml:"notify"`
}

// DefaultUserOptionsPath returns the per-user options file location
func DefaultUserOptionsPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "gram-manager.yaml"
	}
	return filepath.Join(configDir, "gram-manager", "config.yaml")
}

// LoadOptions reads the options file at path. A missing file yields the defaults
func LoadOptions(fs afero.Fs, path string) (Options, error) {
	opts := Options{}
	b, err := afero.ReadFile(fs, path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return opts, errors.Wrapf(err, "[controller] error reading options %s", path)
	}
	if err == nil {
		if err := yaml.Unmarshal(b, &opts); err != nil {
			return opts, errors.Wrapf(err, "[controller] error parsing options %s", path)
		}
	}
	opts.setDefaults()
	return opts, nil
}

func (o *Options) setDefaults() {
	if o.Elevation == nil {
		enabled := true
		o.Elevation = &enabled
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
}

// ElevationEnabled reports whether the pkexec fallback should be used
func (o Options) ElevationEnabled() bool {
	return o.Elevation == nil || *o.Elevation
}
