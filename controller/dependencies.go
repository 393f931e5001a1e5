package controller

import (
	"log"

	"github.com/gramlinux/GramManager/system/battery"
	"github.com/gramlinux/GramManager/system/fan"
	"github.com/gramlinux/GramManager/system/keyboard"
	"github.com/gramlinux/GramManager/system/lglaptop"
	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/sysfs"
	"github.com/gramlinux/GramManager/system/toggle"
	"github.com/gramlinux/GramManager/util"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// RunConfig contains the start up configuration for the controller
type RunConfig struct {
	DryRun     bool
	NotifierCh chan<- util.Notification
	// StatePath is the settings file used to persist and restore values
	StatePath string
	Options   Options
}

// Dependencies holds every hardware control, shared by the controller and the gRPC servers
type Dependencies struct {
	Attributes *sysfs.Attributes
	Layout     lglaptop.Layout

	ReaderMode *toggle.Toggle
	FnLock     *toggle.Toggle
	USBCharge  *toggle.Toggle
	TpadLED    *toggle.Toggle
	Fan        *fan.Control
	Battery    *battery.ChargeLimit
	Keyboard   *keyboard.Brightness

	// Features lists all controls in display order
	Features       []shared.Feature
	ConfigRegistry persist.ConfigRegistry
}

// GetDependencies wires the controls against the real (or dry run) filesystem
func GetDependencies(conf RunConfig) (*Dependencies, error) {
	var attrs *sysfs.Attributes
	var config persist.ConfigRegistry
	var err error

	osFs := afero.NewOsFs()

	if conf.DryRun {
		attrs = sysfs.NewDryAttributes(osFs)
		config, err = persist.NewDryConfigHelper(osFs, conf.StatePath)
	} else {
		var elevator sysfs.Elevator
		if conf.Options.ElevationEnabled() {
			elevator = sysfs.NewPkexecElevator()
		}
		attrs, err = sysfs.NewAttributes(osFs, elevator)
		if err != nil {
			return nil, err
		}
		config, err = persist.NewFileConfigHelper(osFs, conf.StatePath)
	}
	if err != nil {
		return nil, err
	}

	layout := lglaptop.DefaultLayout().WithOverrides(conf.Options.Paths)
	if !lglaptop.DriverLoaded(attrs) {
		log.Printf("[controller] %s not found, is the lg-laptop module loaded?\n", lglaptop.DriverPath)
	}

	dep, err := NewDependencies(attrs, layout, config)
	if err != nil {
		return nil, err
	}
	if !conf.DryRun {
		dep.checkWritable(conf.Options.ElevationEnabled())
	}
	return dep, nil
}

// checkWritable logs attributes the process cannot write directly
func (d *Dependencies) checkWritable(elevation bool) {
	for _, key := range d.Layout.Keys() {
		node := d.Layout.Node(d.Attributes, key)
		if !node.Exists() || sysfs.Writable(node.Path()) {
			continue
		}
		if elevation {
			log.Printf("[controller] %s is not writable, changes will ask pkexec\n", node.Path())
		} else {
			log.Printf("[controller] %s is not writable and elevation is off, changes will fail\n", node.Path())
		}
	}
}

// NewDependencies builds every control from layout and registers them with config
func NewDependencies(attrs *sysfs.Attributes, layout lglaptop.Layout, config persist.ConfigRegistry) (*Dependencies, error) {
	if attrs == nil {
		return nil, errors.New("[controller] nil Attributes is invalid")
	}
	if config == nil {
		return nil, errors.New("[controller] nil ConfigRegistry is invalid")
	}

	node := func(key string) *sysfs.Node {
		return layout.Node(attrs, key)
	}

	var err error
	dep := &Dependencies{
		Attributes:     attrs,
		Layout:         layout,
		ConfigRegistry: config,
	}

	toggles := []struct {
		target   **toggle.Toggle
		key      string
		title    string
		subtitle string
	}{
		{&dep.ReaderMode, lglaptop.KeyReaderMode, "Reader Mode", "Reduces blue light for eye comfort"},
		{&dep.FnLock, lglaptop.KeyFnLock, "FN Lock", "Lock function keys as F1-F12"},
		{&dep.USBCharge, lglaptop.KeyUSBCharge, "USB Charge (Off)", "Enable USB charging when laptop is off"},
		{&dep.TpadLED, lglaptop.KeyTpadLED, "Touchpad LED", "Touchpad indicator LED"},
	}
	for _, t := range toggles {
		*t.target, err = toggle.New(toggle.Config{
			Key:      t.key,
			Title:    t.title,
			Subtitle: t.subtitle,
			Node:     node(t.key),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "[controller] cannot create %s control", t.key)
		}
	}

	if dep.Fan, err = fan.NewControl(node(lglaptop.KeyFanMode)); err != nil {
		return nil, errors.Wrap(err, "[controller] cannot create fan control")
	}
	if dep.Battery, err = battery.NewChargeLimit(node(lglaptop.KeyBatteryLimit)); err != nil {
		return nil, errors.Wrap(err, "[controller] cannot create battery control")
	}
	if dep.Keyboard, err = keyboard.NewBrightnessControl(node(lglaptop.KeyKbdBacklight)); err != nil {
		return nil, errors.Wrap(err, "[controller] cannot create keyboard control")
	}

	dep.Features = []shared.Feature{
		dep.ReaderMode,
		dep.FnLock,
		dep.USBCharge,
		dep.Battery,
		dep.Keyboard,
		dep.TpadLED,
		dep.Fan,
	}

	// battery first, so the charge limit is restored as early as possible
	config.Register(dep.Battery)
	config.Register(dep.Fan)
	config.Register(dep.ReaderMode)
	config.Register(dep.FnLock)
	config.Register(dep.USBCharge)
	config.Register(dep.Keyboard)
	config.Register(dep.TpadLED)

	return dep, nil
}

// DriverLoaded reports whether the lg-laptop platform driver is present
func (d *Dependencies) DriverLoaded() bool {
	return lglaptop.DriverLoaded(d.Attributes)
}
