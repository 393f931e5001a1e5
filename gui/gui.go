// Package gui is the GTK3 front end. Widgets are only touched from the GTK
// main loop; hardware writes run in goroutines and report back through glib.IdleAdd
package gui

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/gramlinux/GramManager/client"
	"github.com/gramlinux/GramManager/gui/model"
	"github.com/gramlinux/GramManager/system/lglaptop"
	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/system/toggle"

	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	"github.com/pkg/errors"
)

//go:embed manager.ui
var managerUI string

// writes may wait on the pkexec password prompt
const writeTimeout = time.Second * 70

type EventHandler map[string]interface{}

type Gui struct {
	backend      client.Backend
	model        *model.Model
	driverLoaded bool

	ctx    context.Context
	cancel context.CancelFunc

	builder      *gtk.Builder
	win          *gtk.Window
	status       *gtk.Label
	battery      *gtk.ComboBoxText
	batteryApply *gtk.Button

	switches map[string]*gtk.Switch
	groups   map[string]map[string]*gtk.ToggleButton

	// set while widgets are changed programmatically, so their signals are ignored
	updating bool
}

func guiEventHandler(g *Gui) EventHandler {
	return EventHandler{
		"on_main_destroy":          func() { g.cancel(); gtk.MainQuit() },
		"on_refresh_clicked":       func() { g.refresh() },
		"on_dark_clicked":          func() { g.toggleDarkMode() },
		"on_battery_apply_clicked": func() { g.applyBattery() },
	}
}

// New builds the window. driverLoaded false shows the driver dialog on Run
func New(backend client.Backend, driverLoaded bool) (*Gui, error) {
	if backend == nil {
		return nil, errors.New("gui: nil backend is invalid")
	}
	if err := gtk.InitCheck(nil); err != nil {
		return nil, errors.Wrap(err, "gui: cannot initialize gtk")
	}
	builder, err := gtk.BuilderNewFromString(managerUI)
	if err != nil {
		return nil, errors.Wrap(err, "gui: cannot load interface")
	}

	ctx, cancel := context.WithCancel(context.Background())
	states, err := backend.Features(ctx)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "gui: cannot read features")
	}

	g := &Gui{
		backend:      backend,
		model:        model.New(states),
		driverLoaded: driverLoaded,
		ctx:          ctx,
		cancel:       cancel,
		builder:      builder,
		win:          getWindow(builder, "main_window"),
		status:       getLabel(builder, "status_label"),
		battery:      getComboBoxText(builder, "battery_combo"),
		batteryApply: getButton(builder, "battery_apply"),
		switches: map[string]*gtk.Switch{
			lglaptop.KeyReaderMode: getSwitch(builder, "reader_mode_switch"),
			lglaptop.KeyFnLock:     getSwitch(builder, "fn_lock_switch"),
			lglaptop.KeyUSBCharge:  getSwitch(builder, "usb_charge_switch"),
			lglaptop.KeyTpadLED:    getSwitch(builder, "tpad_led_switch"),
		},
		groups: map[string]map[string]*gtk.ToggleButton{
			lglaptop.KeyKbdBacklight: {
				"off":  getToggleButton(builder, "kbd_off"),
				"low":  getToggleButton(builder, "kbd_low"),
				"high": getToggleButton(builder, "kbd_high"),
			},
			lglaptop.KeyFanMode: {
				"silent":      getToggleButton(builder, "fan_silent"),
				"optimal":     getToggleButton(builder, "fan_optimal"),
				"performance": getToggleButton(builder, "fan_performance"),
			},
		},
	}
	if g.win == nil || g.status == nil || g.battery == nil || g.batteryApply == nil {
		cancel()
		return nil, errors.New("gui: interface is missing widgets")
	}

	g.builder.ConnectSignals(guiEventHandler(g))
	g.connectSwitches()
	g.connectGroups()
	g.fillBattery()
	g.showAll()

	return g, nil
}

func (g *Gui) connectSwitches() {
	for key, sw := range g.switches {
		key, sw := key, sw
		if sw == nil {
			continue
		}
		sw.Connect("notify::active", func() {
			if g.updating {
				return
			}
			value := toggle.Off
			if sw.GetActive() {
				value = toggle.On
			}
			g.write(key, value)
		})
	}
}

func (g *Gui) connectGroups() {
	for key, buttons := range g.groups {
		for value, btn := range buttons {
			key, value, btn := key, value, btn
			if btn == nil {
				continue
			}
			btn.Connect("toggled", func() {
				if g.updating {
					return
				}
				if !btn.GetActive() {
					// clicking the active choice keeps it selected
					g.show(key, g.current(key))
					return
				}
				g.write(key, value)
			})
		}
	}
}

func (g *Gui) fillBattery() {
	s, ok := g.model.State(lglaptop.KeyBatteryLimit)
	if !ok {
		return
	}
	g.battery.RemoveAll()
	for _, c := range s.Choices {
		g.battery.Append(c, model.BatteryLabel(c))
	}
}

func (g *Gui) current(key string) string {
	s, _ := g.model.State(key)
	return s.Value
}

// show puts value into the widgets of key without triggering a write
func (g *Gui) show(key, value string) {
	g.updating = true
	defer func() { g.updating = false }()

	if sw, ok := g.switches[key]; ok && sw != nil {
		sw.SetActive(value == toggle.On)
	}
	if buttons, ok := g.groups[key]; ok {
		for v, btn := range buttons {
			if btn != nil {
				btn.SetActive(v == value)
			}
		}
	}
	if key == lglaptop.KeyBatteryLimit {
		g.battery.SetActiveID(value)
	}
}

func (g *Gui) setSensitive(key string) {
	sensitive := g.model.Available(key)
	if sw, ok := g.switches[key]; ok && sw != nil {
		sw.SetSensitive(sensitive)
	}
	for _, btn := range g.groups[key] {
		if btn != nil {
			btn.SetSensitive(sensitive)
		}
	}
	if key == lglaptop.KeyBatteryLimit {
		g.battery.SetSensitive(sensitive)
		g.batteryApply.SetSensitive(sensitive)
	}
}

func (g *Gui) showAll() {
	for _, key := range g.model.Keys() {
		g.show(key, g.current(key))
		g.setSensitive(key)
	}
}

func (g *Gui) setStatus(msg string) {
	g.status.SetText(msg)
}

func (g *Gui) applyBattery() {
	value := g.battery.GetActiveID()
	if value == "" {
		return
	}
	g.write(lglaptop.KeyBatteryLimit, value)
}

// write changes key off the main loop. The control is insensitive until the
// write finishes, and reverts if it fails
func (g *Gui) write(key, value string) {
	if !g.model.Begin(key, value) {
		g.show(key, g.current(key))
		return
	}
	g.show(key, value)
	g.setSensitive(key)
	title := key
	if s, ok := g.model.State(key); ok {
		title = s.Title
	}
	g.setStatus(fmt.Sprintf("Setting %s...", title))

	go func() {
		ctx, cancel := context.WithTimeout(g.ctx, writeTimeout)
		defer cancel()

		state, err := g.backend.Set(ctx, key, value)
		if err != nil {
			log.Printf("[gui] cannot set %s to %s: %v\n", key, value, err)
		}
		glib.IdleAdd(func() bool {
			shown := g.model.Finish(key, state, err)
			g.show(key, shown)
			g.setSensitive(key)
			if err != nil {
				g.setStatus(fmt.Sprintf("Could not change %s: %s", title, err))
			} else {
				g.setStatus(fmt.Sprintf("%s set to %s", title, shown))
			}
			return false
		})
	}()
}

func (g *Gui) refresh() {
	g.setStatus("Refreshing...")
	go func() {
		changed, err := g.backend.Refresh(g.ctx)
		var states []shared.State
		if err == nil {
			states, err = g.backend.Features(g.ctx)
		}
		glib.IdleAdd(func() bool {
			if err != nil {
				g.setStatus(fmt.Sprintf("Could not refresh: %s", err))
				return false
			}
			g.model.Update(states)
			g.showAll()
			g.setStatus(fmt.Sprintf("Refreshed, %d value(s) changed", len(changed)))
			return false
		})
	}()
}

// follow keeps the widgets in sync with changes made elsewhere, e.g. the FN lock hotkey
func (g *Gui) follow() {
	changes, err := g.backend.Watch(g.ctx)
	if err != nil {
		log.Printf("[gui] cannot watch for changes: %v\n", err)
		return
	}
	go func() {
		for change := range changes {
			if !change.External {
				continue
			}
			change := change
			glib.IdleAdd(func() bool {
				if g.model.Pending(change.Key) {
					return false
				}
				s, ok := g.model.State(change.Key)
				if !ok {
					return false
				}
				s.Value = change.Value
				g.model.Update([]shared.State{s})
				g.show(change.Key, change.Value)
				return false
			})
		}
	}()
}

func (g *Gui) toggleDarkMode() {
	settings, err := gtk.SettingsGetDefault()
	if err != nil {
		log.Printf("[gui] cannot get gtk settings: %v\n", err)
		return
	}
	v, err := settings.GetProperty("gtk-application-prefer-dark-theme")
	if err != nil {
		log.Printf("[gui] cannot read theme preference: %v\n", err)
		return
	}
	dark, _ := v.(bool)
	if err := settings.SetProperty("gtk-application-prefer-dark-theme", !dark); err != nil {
		log.Printf("[gui] cannot change theme preference: %v\n", err)
	}
}

func (g *Gui) showDriverDialog() {
	dlg := gtk.MessageDialogNew(g.win, gtk.DIALOG_MODAL, gtk.MESSAGE_WARNING, gtk.BUTTONS_OK, "%s", "Driver Not Found")
	dlg.FormatSecondaryText("%s was not found. Load the driver with:\n\nsudo modprobe lg-laptop", lglaptop.DriverPath)
	dlg.Run()
	dlg.Destroy()
}

// Run shows the window and blocks until it is closed
func (g *Gui) Run() {
	g.win.ShowAll()
	if !g.driverLoaded {
		g.showDriverDialog()
	}
	g.follow()
	gtk.Main()
}
