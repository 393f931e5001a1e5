package keyboard

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
	persistKey = "kbd_backlight"
)

// Relative values accepted by Set
const (
	StepUp   = "up"
	StepDown = "down"
)

// Level defines the different level of keyboard brightness
type Level int

// Brightness level
const (
	OFF Level = iota
	LOW
	HIGH
)

// raw brightness written for each level
var levelBrightness = [...]int{0, 127, 255}

func (l Level) String() string {
	return [...]string{"off", "low", "high"}[l]
}

// Brightness returns the raw LED brightness for the level
func (l Level) Brightness() int {
	return levelBrightness[l]
}

// LevelFromBrightness quantizes a raw LED brightness: 0 is off, up to 127 is low, anything above is high
func LevelFromBrightness(b int) Level {
	switch {
	case b <= 0:
		return OFF
	case b <= levelBrightness[LOW]:
		return LOW
	default:
		return HIGH
	}
}

// ParseLevel accepts a level name or a raw brightness value
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, l := range []Level{OFF, LOW, HIGH} {
		if s == l.String() {
			return l, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= levelBrightness[HIGH] {
		return LevelFromBrightness(n), nil
	}
	return OFF, errors.Wrapf(shared.ErrInvalidValue, "keyboard: unknown brightness %q", s)
}

// Brightness allows you to set the keyboard backlight through the LED class device
type Brightness struct {
	node *sysfs.Node

	writeMu           sync.Mutex
	mu                sync.RWMutex
	currentBrightness Level
	desired           string
}

var _ shared.Feature = &Brightness{}

// NewBrightnessControl returns a control for the keyboard backlight LED
func NewBrightnessControl(node *sysfs.Node) (*Brightness, error) {
	if node == nil {
		return nil, errors.New("keyboard: nil Node is invalid")
	}
	b := &Brightness{
		node:              node,
		currentBrightness: OFF,
	}
	if b.Available() {
		b.Refresh()
	}
	return b, nil
}

// Key satisfies shared.Feature
func (b *Brightness) Key() string { return persistKey }

// Title satisfies shared.Feature
func (b *Brightness) Title() string { return "Keyboard Light" }

// Subtitle satisfies shared.Feature
func (b *Brightness) Subtitle() string { return "Keyboard backlight brightness" }

// Choices satisfies shared.Feature
func (b *Brightness) Choices() []string { return []string{"off", "low", "high"} }

// Available satisfies shared.Feature
func (b *Brightness) Available() bool { return b.node.Exists() }

// Level returns the last known level
func (b *Brightness) Level() Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.currentBrightness
}

// Current satisfies shared.Feature
func (b *Brightness) Current() string {
	return b.Level().String()
}

// Refresh satisfies shared.Feature
func (b *Brightness) Refresh() (bool, error) {
	v, err := b.node.Read()
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	level := LevelFromBrightness(n)
	changed := level != b.currentBrightness
	b.currentBrightness = level
	return changed, nil
}

// SetLevel writes the given level
func (b *Brightness) SetLevel(ctx context.Context, v Level) error {
	if !b.Available() {
		return errors.Wrap(shared.ErrUnavailable, "keyboard")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.node.Write(ctx, strconv.Itoa(v.Brightness())); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.currentBrightness = v
	b.desired = v.String()
	return nil
}

// Set satisfies shared.Feature. Besides a level, "up" and "down" step one level from the current one
func (b *Brightness) Set(ctx context.Context, value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StepUp:
		return b.Up(ctx)
	case StepDown:
		return b.Down(ctx)
	}
	l, err := ParseLevel(value)
	if err != nil {
		return err
	}
	return b.SetLevel(ctx, l)
}

// Up increases the keyboard brightness by one level
func (b *Brightness) Up(ctx context.Context) error {
	var targetLevel Level
	switch b.Level() {
	case OFF:
		targetLevel = LOW
	case LOW:
		targetLevel = HIGH
	default:
		return nil
	}
	return b.SetLevel(ctx, targetLevel)
}

// Down decreases the keyboard brightness by one level
func (b *Brightness) Down(ctx context.Context) error {
	var targetLevel Level
	switch b.Level() {
	case HIGH:
		targetLevel = LOW
	case LOW:
		targetLevel = OFF
	default:
		return nil
	}
	return b.SetLevel(ctx, targetLevel)
}

var _ persist.Registry = &Brightness{}

// Name satisfies persist.Registry
func (b *Brightness) Name() string {
	return persistKey
}

// Value satisfies persist.Registry
func (b *Brightness) Value() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.desired
}

// Load satisfies persist.Registry
func (b *Brightness) Load(v string) error {
	if len(v) == 0 {
		return nil
	}
	l, err := ParseLevel(v)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.desired = l.String()
	return nil
}

// Apply satisfies persist.Registry
func (b *Brightness) Apply() error {
	v := b.Value()
	if v == "" || !b.Available() {
		return nil
	}
	return b.Set(context.Background(), v)
}

// Close satisfies persist.Registry
func (b *Brightness) Close() error {
	return nil
}
