package fan

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
)

const (
	persistKey = "fan_mode"
)

// Mode is the value understood by the fan_mode attribute
type Mode int

// Fan modes. The numbering is the driver's, not the display order
const (
	Unknown     Mode = -1
	Optimal     Mode = 0
	Silent      Mode = 1
	Performance Mode = 2
)

// Modes lists the selectable modes in display order
var Modes = []Mode{Silent, Optimal, Performance}

func (m Mode) String() string {
	switch m {
	case Optimal:
		return "optimal"
	case Silent:
		return "silent"
	case Performance:
		return "performance"
	}
	return "unknown"
}

// ParseMode accepts either the mode name or the raw attribute value
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes {
		if s == m.String() || s == strconv.Itoa(int(m)) {
			return m, nil
		}
	}
	return Unknown, errors.Wrapf(shared.ErrInvalidValue, "fan: unknown mode %q", s)
}

// Control selects the fan profile
type Control struct {
	node *sysfs.Node

	writeMu sync.Mutex
	mu      sync.RWMutex
	current Mode
	desired Mode
}

var _ shared.Feature = &Control{}

// NewControl returns a Control for the fan_mode attribute
func NewControl(node *sysfs.Node) (*Control, error) {
	if node == nil {
		return nil, errors.New("fan: nil Node is invalid")
	}
	c := &Control{
		node:    node,
		current: Unknown,
		desired: Unknown,
	}
	if c.Available() {
		c.Refresh()
	}
	return c, nil
}

// Key satisfies shared.Feature
func (c *Control) Key() string { return persistKey }

// Title satisfies shared.Feature
func (c *Control) Title() string { return "Fan Mode" }

// Subtitle satisfies shared.Feature
func (c *Control) Subtitle() string { return "Cooling profile" }

// Choices satisfies shared.Feature
func (c *Control) Choices() []string {
	choices := make([]string, 0, len(Modes))
	for _, m := range Modes {
		choices = append(choices, m.String())
	}
	return choices
}

// Available satisfies shared.Feature
func (c *Control) Available() bool { return c.node.Exists() }

// Mode returns the last known mode, Unknown if it has never been read
func (c *Control) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// Current satisfies shared.Feature
func (c *Control) Current() string {
	return c.Mode().String()
}

// Refresh satisfies shared.Feature. A value that does not parse leaves the mode unchanged
func (c *Control) Refresh() (bool, error) {
	v, err := c.node.Read()
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("fan: ignoring unexpected fan_mode value %q\n", v)
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changed := Mode(n) != c.current
	c.current = Mode(n)
	return changed, nil
}

// SetMode writes m. Selecting the mode already active does nothing
func (c *Control) SetMode(ctx context.Context, m Mode) error {
	if m.String() == "unknown" {
		return errors.Wrapf(shared.ErrInvalidValue, "fan: mode %d", int(m))
	}
	if !c.Available() {
		return errors.Wrap(shared.ErrUnavailable, "fan")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if m == c.Mode() {
		return nil
	}
	if err := c.node.Write(ctx, strconv.Itoa(int(m))); err != nil {
		return err
	}
	log.Printf("fan: mode set to %s\n", m)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = m
	c.desired = m
	return nil
}

// Set satisfies shared.Feature
func (c *Control) Set(ctx context.Context, value string) error {
	m, err := ParseMode(value)
	if err != nil {
		return err
	}
	return c.SetMode(ctx, m)
}

var _ persist.Registry = &Control{}

// Name satisfies persist.Registry
func (c *Control) Name() string {
	return persistKey
}

// Value satisfies persist.Registry
func (c *Control) Value() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.desired == Unknown {
		return ""
	}
	return c.desired.String()
}

// Load satisfies persist.Registry
func (c *Control) Load(v string) error {
	if v == "" {
		return nil
	}
	m, err := ParseMode(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.desired = m
	return nil
}

// Apply satisfies persist.Registry
func (c *Control) Apply() error {
	c.mu.RLock()
	m := c.desired
	c.mu.RUnlock()

	if m == Unknown || !c.Available() {
		return nil
	}
	return c.SetMode(context.Background(), m)
}

// Close satisfies persist.Registry
func (c *Control) Close() error {
	return nil
}
