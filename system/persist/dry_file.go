package persist

import (
	"log"

	"github.com/spf13/afero"
)

type dryConfigHelper struct {
	ConfigRegistry
}

var _ ConfigRegistry = &dryConfigHelper{}

// NewDryConfigHelper returns a helper that loads from the settings file but never saves
func NewDryConfigHelper(fs afero.Fs, path string) (ConfigRegistry, error) {
	helper, err := NewFileConfigHelper(fs, path)
	if err != nil {
		return nil, err
	}
	log.Println("[dry run] persist: initializing settings file without save IOs")
	return &dryConfigHelper{
		ConfigRegistry: helper,
	}, nil
}

// Save will do nothing
func (d *dryConfigHelper) Save() error {
	return nil
}
