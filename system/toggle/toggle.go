// Package toggle controls attributes that are either on or off, such as
// reader mode, FN lock, USB charge while off, and the touchpad LED
package toggle

import (
	"context"
	"strings"
	"sync"

	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
)

// Display values
const (
	On  = "on"
	Off = "off"
)

// Config describes a single on/off attribute
type Config struct {
	Key      string
	Title    string
	Subtitle string
	Node     *sysfs.Node
	// OnValue and OffValue are the raw attribute contents, "1" and "0" if empty
	OnValue  string
	OffValue string
}

// Toggle is an on/off hardware setting
type Toggle struct {
	Config

	// writeMu serializes writes, which may wait on an authentication prompt
	writeMu sync.Mutex
	mu      sync.RWMutex
	enabled bool
	desired string
}

var _ shared.Feature = &Toggle{}

// New returns a Toggle for the given attribute. The current state is read immediately if available
func New(conf Config) (*Toggle, error) {
	if conf.Node == nil {
		return nil, errors.New("toggle: nil Node is invalid")
	}
	if conf.Key == "" {
		return nil, errors.New("toggle: empty Key is invalid")
	}
	if conf.OnValue == "" {
		conf.OnValue = "1"
	}
	if conf.OffValue == "" {
		conf.OffValue = "0"
	}
	t := &Toggle{
		Config: conf,
	}
	if t.Available() {
		t.Refresh()
	}
	return t, nil
}

// Key satisfies shared.Feature
func (t *Toggle) Key() string { return t.Config.Key }

// Title satisfies shared.Feature
func (t *Toggle) Title() string { return t.Config.Title }

// Subtitle satisfies shared.Feature
func (t *Toggle) Subtitle() string { return t.Config.Subtitle }

// Choices satisfies shared.Feature
func (t *Toggle) Choices() []string { return []string{Off, On} }

// Available satisfies shared.Feature
func (t *Toggle) Available() bool { return t.Node.Exists() }

// Enabled returns whether the attribute was last seen on
func (t *Toggle) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.enabled
}

// Current satisfies shared.Feature
func (t *Toggle) Current() string {
	if t.Enabled() {
		return On
	}
	return Off
}

// Refresh satisfies shared.Feature. The toggle is on only if the attribute reads exactly the on value
func (t *Toggle) Refresh() (bool, error) {
	v, err := t.Node.Read()
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	enabled := v == t.OnValue
	changed := enabled != t.enabled
	t.enabled = enabled
	return changed, nil
}

// SetEnabled writes the on or off value. On failure the cached state is left untouched
func (t *Toggle) SetEnabled(ctx context.Context, enabled bool) error {
	if !t.Available() {
		return errors.Wrapf(shared.ErrUnavailable, "toggle: %s", t.Config.Key)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	raw := t.OffValue
	if enabled {
		raw = t.OnValue
	}
	if err := t.Node.Write(ctx, raw); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	t.desired = displayValue(enabled)
	return nil
}

// Set satisfies shared.Feature. Accepts on/off, 1/0, true/false, yes/no
func (t *Toggle) Set(ctx context.Context, value string) error {
	enabled, err := ParseValue(value)
	if err != nil {
		return err
	}
	return t.SetEnabled(ctx, enabled)
}

// ParseValue converts a user supplied value into a state
func ParseValue(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case On, "1", "true", "yes":
		return true, nil
	case Off, "0", "false", "no":
		return false, nil
	}
	return false, errors.Wrapf(shared.ErrInvalidValue, "toggle: %q is neither on nor off", value)
}

func displayValue(enabled bool) string {
	if enabled {
		return On
	}
	return Off
}

var _ persist.Registry = &Toggle{}

// Name satisfies persist.Registry
func (t *Toggle) Name() string {
	return t.Config.Key
}

// Value satisfies persist.Registry
func (t *Toggle) Value() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.desired
}

// Load satisfies persist.Registry
func (t *Toggle) Load(v string) error {
	if v == "" {
		return nil
	}
	enabled, err := ParseValue(v)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.desired = displayValue(enabled)
	return nil
}

// Apply satisfies persist.Registry
func (t *Toggle) Apply() error {
	v := t.Value()
	if v == "" || !t.Available() {
		return nil
	}
	return t.Set(context.Background(), v)
}

// Close satisfies persist.Registry
func (t *Toggle) Close() error {
	return nil
}
