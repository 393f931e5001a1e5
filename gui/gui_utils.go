package gui

import (
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
)

func getObject(builder *gtk.Builder, name string) glib.IObject {
	obj, err := builder.GetObject(name)
	if err != nil {
		return nil
	}
	return obj
}

func getWindow(builder *gtk.Builder, name string) *gtk.Window {
	if w, ok := getObject(builder, name).(*gtk.Window); ok {
		return w
	}
	return nil
}

func getLabel(builder *gtk.Builder, name string) *gtk.Label {
	if w, ok := getObject(builder, name).(*gtk.Label); ok {
		return w
	}
	return nil
}

func getSwitch(builder *gtk.Builder, name string) *gtk.Switch {
	if w, ok := getObject(builder, name).(*gtk.Switch); ok {
		return w
	}
	return nil
}

func getToggleButton(builder *gtk.Builder, name string) *gtk.ToggleButton {
	if w, ok := getObject(builder, name).(*gtk.ToggleButton); ok {
		return w
	}
	return nil
}

func getComboBoxText(builder *gtk.Builder, name string) *gtk.ComboBoxText {
	if w, ok := getObject(builder, name).(*gtk.ComboBoxText); ok {
		return w
	}
	return nil
}

func getButton(builder *gtk.Builder, name string) *gtk.Button {
	if w, ok := getObject(builder, name).(*gtk.Button); ok {
		return w
	}
	return nil
}
