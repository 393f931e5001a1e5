package persist

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultSystemPath is where the supervisor keeps the last applied settings
const DefaultSystemPath = "/etc/gram-manager/state.yaml"

type document struct {
	Settings map[string]string `yaml:"settings"`
}

// FileConfigHelper contains a list of configurations to be loaded, saved, and applied.
// Values are kept in a YAML file
type FileConfigHelper struct {
	mu            sync.Mutex
	alreadyClosed bool
	fs            afero.Fs
	path          string
	order         []string
	configs       map[string]Registry
	// values read from the file, including names nobody registered
	stored map[string]string
}

var _ ConfigRegistry = &FileConfigHelper{}

// NewFileConfigHelper returns a helper to persist config to the YAML file at path
func NewFileConfigHelper(fs afero.Fs, path string) (*FileConfigHelper, error) {
	if fs == nil {
		return nil, errors.New("persist: nil fs is invalid")
	}
	if path == "" {
		return nil, errors.New("persist: empty path is invalid")
	}
	return &FileConfigHelper{
		fs:      fs,
		path:    path,
		configs: make(map[string]Registry),
		stored:  make(map[string]string),
	}, nil
}

// DefaultUserPath returns the per-user settings file location
func DefaultUserPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "gram-manager-state.yaml"
	}
	return filepath.Join(configDir, "gram-manager", "state.yaml")
}

// Path returns the location of the settings file
func (h *FileConfigHelper) Path() string {
	return h.path
}

// Register will add the config to the list. Configs are applied in registration order
func (h *FileConfigHelper) Register(config Registry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.configs[config.Name()]; !ok {
		h.order = append(h.order, config.Name())
	}
	h.configs[config.Name()] = config
}

// read returns the settings currently in the file, nil if there is no file yet
func (h *FileConfigHelper) read() (map[string]string, error) {
	b, err := afero.ReadFile(h.fs, h.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "persist: error reading %s", h.path)
	}

	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "persist: error parsing %s", h.path)
	}
	return doc.Settings, nil
}

// Load will retrieve and populate configs from the settings file
func (h *FileConfigHelper) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	settings, err := h.read()
	if err != nil {
		return err
	}
	for k, v := range settings {
		h.stored[k] = v
	}

	for _, name := range h.order {
		config := h.configs[name]
		v, ok := settings[name]
		if !ok {
			continue
		}
		log.Printf("persist: loading \"%s\" from %s\n", name, h.path)
		if err := config.Load(v); err != nil {
			log.Printf("persist: error loading \"%s\": %s\n", name, err)
			return err
		}
	}

	return nil
}

// Save will persist all the configs to the settings file. Values already in
// the file are kept unless a registered config has a value of its own
func (h *FileConfigHelper) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	onDisk, err := h.read()
	if err != nil {
		log.Printf("persist: %s, rewriting from memory\n", err)
	}
	for k, v := range onDisk {
		h.stored[k] = v
	}

	doc := document{
		Settings: make(map[string]string, len(h.stored)+len(h.configs)),
	}
	for k, v := range h.stored {
		doc.Settings[k] = v
	}
	for _, name := range h.order {
		v := h.configs[name].Value()
		if v == "" {
			continue
		}
		log.Printf("persist: saving \"%s\" to %s\n", name, h.path)
		doc.Settings[name] = v
		h.stored[name] = v
	}

	b, err := yaml.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "persist: error encoding settings")
	}

	if err := h.fs.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return errors.Wrapf(err, "persist: error creating directory for %s", h.path)
	}
	tmp := h.path + ".tmp"
	if err := afero.WriteFile(h.fs, tmp, b, 0644); err != nil {
		return errors.Wrapf(err, "persist: error writing %s", tmp)
	}
	if err := h.fs.Rename(tmp, h.path); err != nil {
		return errors.Wrapf(err, "persist: error replacing %s", h.path)
	}

	return nil
}

// Apply will apply each config accordingly. This is usually called after Load().
// A failing config does not stop the others, the errors are returned together
func (h *FileConfigHelper) Apply() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs error
	for _, name := range h.order {
		log.Printf("persist: applying \"%s\" config\n", name)
		if err := h.configs[name].Apply(); err != nil {
			log.Printf("persist: error applying \"%s\": %s\n", name, err)
			errs = multierr.Append(errs, errors.Wrapf(err, "persist: %s", name))
			continue
		}
		time.Sleep(time.Millisecond * 25) // allow time for hardware configuration to propagate
	}

	return errs
}

// Close will release resources of each config
func (h *FileConfigHelper) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.alreadyClosed {
		return
	}
	h.alreadyClosed = true

	for _, name := range h.order {
		log.Printf("persist: closing \"%s\"\n", name)
		if err := h.configs[name].Close(); err != nil {
			log.Printf("persist: error closing \"%s\": %s\n", name, err)
		}
	}
}
