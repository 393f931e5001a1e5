package battery

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/pkg/errors"
)

const (
	persistKey = "battery_limit"
)

// Charge limits accepted by the lg-laptop driver
const (
	LimitCare uint8 = 80
	LimitFull uint8 = 100
)

// ChargeLimit allows you to limit the full charge percentage on your laptop
type ChargeLimit struct {
	node *sysfs.Node

	writeMu      sync.Mutex
	mu           sync.RWMutex
	currentLimit uint8
	desiredLimit uint8
}

var _ shared.Feature = &ChargeLimit{}

// NewChargeLimit initializes the control interface and returns an instance of ChargeLimit
func NewChargeLimit(node *sysfs.Node) (*ChargeLimit, error) {
	if node == nil {
		return nil, errors.New("battery: nil Node is invalid")
	}
	c := &ChargeLimit{
		node:         node,
		currentLimit: LimitFull,
	}
	if c.Available() {
		c.Refresh()
	}
	return c, nil
}

// Key satisfies shared.Feature
func (c *ChargeLimit) Key() string { return persistKey }

// Title satisfies shared.Feature
func (c *ChargeLimit) Title() string { return "Battery Limit" }

// Subtitle satisfies shared.Feature
func (c *ChargeLimit) Subtitle() string { return "Limit charge to extend battery lifespan" }

// Choices satisfies shared.Feature
func (c *ChargeLimit) Choices() []string { return []string{"80", "100"} }

// Available satisfies shared.Feature
func (c *ChargeLimit) Available() bool { return c.node.Exists() }

// SetLimit will write the charge limit in percentage. Only 80 and 100 are supported by the firmware
func (c *ChargeLimit) SetLimit(ctx context.Context, pct uint8) error {
	if pct != LimitCare && pct != LimitFull {
		return errors.Wrapf(shared.ErrInvalidValue, "battery: charge limit must be %d or %d, got %d", LimitCare, LimitFull, pct)
	}
	if !c.Available() {
		return errors.Wrap(shared.ErrUnavailable, "battery")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.node.Write(ctx, strconv.Itoa(int(pct))); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentLimit = pct
	c.desiredLimit = pct
	return nil
}

// Set satisfies shared.Feature. A trailing percent sign is accepted
func (c *ChargeLimit) Set(ctx context.Context, value string) error {
	pct, err := parseLimit(value)
	if err != nil {
		return err
	}
	return c.SetLimit(ctx, pct)
}

func parseLimit(value string) (uint8, error) {
	v := strings.TrimSuffix(strings.TrimSpace(value), "%")
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, errors.Wrapf(shared.ErrInvalidValue, "battery: %q is not a percentage", value)
	}
	return uint8(n), nil
}

// CurrentLimit returns the last known charge limit
func (c *ChargeLimit) CurrentLimit() uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.currentLimit
}

// Current satisfies shared.Feature
func (c *ChargeLimit) Current() string {
	return strconv.Itoa(int(c.CurrentLimit()))
}

// Refresh satisfies shared.Feature. Exactly "80" is the care limit, anything else means full charge
func (c *ChargeLimit) Refresh() (bool, error) {
	v, err := c.node.Read()
	if err != nil {
		return false, err
	}
	if v == "" {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	limit := LimitFull
	if v == strconv.Itoa(int(LimitCare)) {
		limit = LimitCare
	}
	changed := limit != c.currentLimit
	c.currentLimit = limit
	return changed, nil
}

var _ persist.Registry = &ChargeLimit{}

// Name satisfies persist.Registry
func (c *ChargeLimit) Name() string {
	return persistKey
}

// Value satisfies persist.Registry
func (c *ChargeLimit) Value() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.desiredLimit == 0 {
		return ""
	}
	return strconv.Itoa(int(c.desiredLimit))
}

// Load satisfies persist.Registry
func (c *ChargeLimit) Load(v string) error {
	if len(v) == 0 {
		return nil
	}
	pct, err := parseLimit(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.desiredLimit = pct
	return nil
}

// Apply satisfies persist.Registry
func (c *ChargeLimit) Apply() error {
	c.mu.RLock()
	pct := c.desiredLimit
	c.mu.RUnlock()

	if pct == 0 || !c.Available() {
		return nil
	}
	return c.SetLimit(context.Background(), pct)
}

// Close satisfies persist.Registry
func (c *ChargeLimit) Close() error {
	return nil
}
