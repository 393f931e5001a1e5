package shared

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidValue is returned when a feature is given a value it does not accept
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnavailable is returned when the feature's attribute is not present
	ErrUnavailable = errors.New("feature is not available on this system")
)

// Feature is a single hardware setting that can be read and changed
type Feature interface {
	// Key is the stable identifier, e.g. "fn_lock"
	Key() string
	Title() string
	Subtitle() string
	// Choices lists the values accepted by Set, in display order
	Choices() []string
	// Available reports whether the backing attribute exists
	Available() bool
	// Current returns the last value read from or written to hardware
	Current() string
	// Refresh re-reads the hardware and reports whether the value changed
	Refresh() (bool, error)
	Set(ctx context.Context, value string) error
}

// State is a snapshot of a Feature
type State struct {
	Key       string
	Title     string
	Subtitle  string
	Choices   []string
	Available bool
	Value     string
}

// Snapshot captures the current state of f
func Snapshot(f Feature) State {
	return State{
		Key:       f.Key(),
		Title:     f.Title(),
		Subtitle:  f.Subtitle(),
		Choices:   f.Choices(),
		Available: f.Available(),
		Value:     f.Current(),
	}
}
