// Package lglaptop describes the sysfs attributes exposed by the lg-laptop kernel module
package lglaptop

import (
	"sort"

	"github.com/gramlinux/GramManager/system/sysfs"
)

// DriverPath exists when the lg-laptop platform driver is loaded
const DriverPath = "/sys/devices/platform/lg-laptop"

// Feature keys
const (
	KeyReaderMode   = "reader_mode"
	KeyFnLock       = "fn_lock"
	KeyUSBCharge    = "usb_charge"
	KeyFanMode      = "fan_mode"
	KeyBatteryLimit = "battery_limit"
	KeyKbdBacklight = "kbd_backlight"
	KeyTpadLED      = "tpad_led"
)

// Attribute is a single attribute file, with alternative locations used by
// some kernel versions
type Attribute struct {
	Key        string
	Primary    string
	Alternates []string
}

var defaultAttributes = map[string]Attribute{
	KeyReaderMode: {
		Key:     KeyReaderMode,
		Primary: DriverPath + "/reader_mode",
	},
	KeyFnLock: {
		Key:     KeyFnLock,
		Primary: DriverPath + "/fn_lock",
	},
	KeyUSBCharge: {
		Key:     KeyUSBCharge,
		Primary: DriverPath + "/usb_charge",
	},
	KeyFanMode: {
		Key:     KeyFanMode,
		Primary: DriverPath + "/fan_mode",
	},
	KeyBatteryLimit: {
		Key:     KeyBatteryLimit,
		Primary: "/sys/class/power_supply/CMB0/charge_control_end_threshold",
		Alternates: []string{
			"/sys/class/power_supply/CMB1/charge_control_end_threshold",
			"/sys/class/power_supply/BAT0/charge_control_end_threshold",
			"/sys/class/power_supply/BAT1/charge_control_end_threshold",
		},
	},
	KeyKbdBacklight: {
		Key:        KeyKbdBacklight,
		Primary:    "/sys/class/leds/kbd_backlight/brightness",
		Alternates: []string{"/sys/class/leds/lg_laptop::kbd_backlight/brightness"},
	},
	KeyTpadLED: {
		Key:        KeyTpadLED,
		Primary:    "/sys/class/leds/tpad_led/brightness",
		Alternates: []string{"/sys/class/leds/lg_laptop::tpad/brightness"},
	},
}

// Layout maps feature keys to their attributes
type Layout map[string]Attribute

// DefaultLayout returns the attribute locations used by mainline kernels
func DefaultLayout() Layout {
	l := make(Layout, len(defaultAttributes))
	for k, v := range defaultAttributes {
		alts := make([]string, len(v.Alternates))
		copy(alts, v.Alternates)
		v.Alternates = alts
		l[k] = v
	}
	return l
}

// WithOverrides returns a copy of the layout where each overridden key points to
// exactly the given path. Unknown keys are ignored
func (l Layout) WithOverrides(overrides map[string]string) Layout {
	out := make(Layout, len(l))
	for k, v := range l {
		out[k] = v
	}
	for k, path := range overrides {
		attr, ok := out[k]
		if !ok || path == "" {
			continue
		}
		attr.Primary = path
		attr.Alternates = nil
		out[k] = attr
	}
	return out
}

// Keys returns the feature keys in a stable order
func (l Layout) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Node resolves the attribute for key against attrs
func (l Layout) Node(attrs *sysfs.Attributes, key string) *sysfs.Node {
	attr, ok := l[key]
	if !ok {
		return nil
	}
	return attrs.Node(attrs.Resolve(attr.Primary, attr.Alternates...))
}

// DriverLoaded reports whether the lg-laptop platform device is present
func DriverLoaded(attrs *sysfs.Attributes) bool {
	return attrs.Exists(DriverPath)
}
