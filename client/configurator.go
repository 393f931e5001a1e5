package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gramlinux/GramManager/rpc/protocol"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const title = "LG Gram Manager Configurator"

type Configurator struct {
	address   string
	conn      *grpc.ClientConn
	gFeatures protocol.FeaturesClient

	ctx      context.Context
	cancelFn context.CancelFunc

	app    *tview.Application
	layers *tview.Pages

	connectModal *tview.Modal

	confirmationModal *tview.Modal
	confirmYes        func()
	confirmNo         string

	frame             *tview.Frame
	container         *tview.Flex
	containerLeftCol  *tview.Flex
	containerRightCol *tview.Flex

	configEditHolder *tview.Flex
	configView       *tview.TextView
	infoView         *tview.TextView

	featureEdit *tview.Form

	fnLists     *tview.List
	fnListItems []listItem

	dataBinding data
}

type data struct {
	features []shared.State
	selected string
}

type listItem struct {
	Main      string
	Secondary string
	Shortcut  rune
	Callback  func()
	// Editable items show featureEdit when (E) is pressed
	Editable bool
}

// NewInterface returns a configurator talking to the supervisor at address
func NewInterface(address string) *Configurator {
	if address == "" {
		address = shared.GRPCAddress
	}
	return &Configurator{
		address:           address,
		app:               tview.NewApplication(),
		layers:            tview.NewPages(),
		connectModal:      tview.NewModal(),
		confirmationModal: tview.NewModal(),
		container:         tview.NewFlex(),
		containerLeftCol:  tview.NewFlex(),
		containerRightCol: tview.NewFlex(),
		configEditHolder:  tview.NewFlex(),
		configView:        tview.NewTextView(),
		infoView:          tview.NewTextView(),
		featureEdit:       tview.NewForm(),
		fnLists:           tview.NewList(),
		dataBinding:       data{},
	}
}

func (i *Configurator) connect(haltCtx context.Context) error {
	ctx, cancel := context.WithTimeout(haltCtx, time.Second*1)
	defer cancel()
	c, err := grpc.DialContext(ctx, i.address, grpc.WithInsecure(), grpc.WithBlock())
	if err != nil {
		return err
	}
	i.conn = c
	i.gFeatures = protocol.NewFeaturesClient(c)

	if err := i.loadFeatures(); err != nil {
		return err
	}
	i.setupFnList()
	i.updateInfoView()

	go i.watch(i.ctx)
	return nil
}

func (i *Configurator) loadFeatures() error {
	list, err := i.gFeatures.List(i.ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	features, err := protocol.ListToFeatures(list)
	if err != nil {
		return err
	}
	i.dataBinding.features = features
	return nil
}

// watch keeps the current view in sync with changes made elsewhere
func (i *Configurator) watch(ctx context.Context) {
	stream, err := i.gFeatures.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		return
	}
	for {
		m, err := stream.Recv()
		if err != nil {
			return
		}
		key, value, external := protocol.StructToChange(m)
		i.app.QueueUpdateDraw(func() {
			for idx := range i.dataBinding.features {
				if i.dataBinding.features[idx].Key == key {
					i.dataBinding.features[idx].Value = value
				}
			}
			if external {
				i.showMessage(fmt.Sprintf("%s changed to %s", key, value), tcell.ColorYellow)
			}
			if i.dataBinding.selected == key {
				i.renderFeature(key)
			}
		})
	}
}

func (i *Configurator) setup() {
	i.layers.
		AddPage("connect", i.connectModal, true, true).
		AddPage("container", i.container, true, false).
		AddPage("confirmation", i.confirmationModal, true, false)

	i.setupModals()

	i.setupStyles()
	i.keyBindings()

	i.containerLeftCol.SetDirection(tview.FlexRow).
		AddItem(i.fnLists, 0, 8, true).
		AddItem(i.infoView, 0, 2, false)

	i.containerRightCol.SetDirection(tview.FlexRow).
		AddItem(i.configView, 0, 2, false).
		AddItem(i.configEditHolder, 0, 4, false)

	i.container.
		AddItem(i.containerLeftCol, 0, 3, true).
		AddItem(i.containerRightCol, 0, 7, false)

	i.configView.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyESC {
			i.app.SetFocus(i.fnLists)
		}
	})

	i.frame = tview.NewFrame(i.layers)

	i.clearMessage()

	i.app.SetRoot(i.frame, true)
}

func (i *Configurator) setupModals() {
	i.connectModal.SetText("Connect to GramManager Supervisor").
		AddButtons([]string{"Connect", "Quit"}).
		SetBackgroundColor(tcell.Color104).
		SetDoneFunc(func(index int, label string) {
			if label == "Connect" {
				err := i.connect(i.ctx)
				if err != nil {
					i.connectModal.SetText(fmt.Sprintf("Cannot connect to %s: %s", i.address, err))
					return
				}
				i.layers.SwitchToPage("container")
			} else {
				i.cancelFn()
			}
		})

	i.confirmationModal.SetText("Are you sure?").
		AddButtons([]string{"Yes", "No"}).
		SetBackgroundColor(tcell.Color104).
		SetDoneFunc(func(index int, label string) {
			switch label {
			case "Yes":
				i.confirmYes()
			case "No":
				i.layers.SwitchToPage(i.confirmNo)
			}
		})
}

func (i *Configurator) setupFnList() {
	i.fnLists.Clear()
	i.fnListItems = i.fnListItems[:0]

	for idx, f := range i.dataBinding.features {
		key := f.Key
		secondary := f.Subtitle
		if !f.Available {
			secondary = "Not available on this system"
		}
		i.fnListItems = append(i.fnListItems, listItem{
			Main:      f.Title,
			Secondary: secondary,
			Shortcut:  rune('1' + idx),
			Callback: func() {
				i.selectFeature(key)
			},
			Editable: f.Available,
		})
	}

	i.fnListItems = append(i.fnListItems,
		listItem{
			Main:      "Refresh",
			Secondary: "Re-read values from hardware",
			Shortcut:  'r',
			Callback:  i.selectRefresh,
		},
		listItem{
			Main:      "Save",
			Secondary: "Persist current settings",
			Shortcut:  's',
			Callback:  i.selectSave,
		},
		listItem{
			Main:      "Exit",
			Secondary: "Exit the Configurator",
			Shortcut:  'q',
			Callback: func() {
				i.confirmNo = "container"
				i.confirmYes = i.cancelFn
				i.layers.SwitchToPage("confirmation")
			},
		},
	)
	for index := range i.fnListItems {
		item := i.fnListItems[index]
		i.fnLists.AddItem(item.Main, item.Secondary, item.Shortcut, item.Callback)
	}
}

func (i *Configurator) clearConfigEdit() {
	i.configEditHolder.Clear()
	i.app.SetFocus(i.configView)
}

func (i *Configurator) feature(key string) (shared.State, bool) {
	for _, f := range i.dataBinding.features {
		if f.Key == key {
			return f, true
		}
	}
	return shared.State{}, false
}

// setupEditForm rebuilds the form with the choices of the selected feature
func (i *Configurator) setupEditForm(f shared.State) {
	initial := 0
	for idx, c := range f.Choices {
		if c == f.Value {
			initial = idx
		}
	}

	i.featureEdit.Clear(true).
		AddDropDown(fmt.Sprintf("New %s ", f.Title), f.Choices, initial, nil).
		AddButton("Cancel", func() {
			i.clearConfigEdit()
			i.showEditTooltip()
		}).
		AddButton("Save", func() {
			_, value := i.featureEdit.GetFormItem(0).(*tview.DropDown).GetCurrentOption()
			resp, err := i.gFeatures.Set(i.ctx, protocol.NewSetRequest(f.Key, value))
			if err != nil {
				i.showMessage(status.Convert(err).Message(), tcell.ColorRed)
				return
			}
			updated, err := protocol.StructToFeature(resp)
			if err != nil {
				i.showMessage(err.Error(), tcell.ColorRed)
				return
			}
			i.replaceFeature(updated)

			i.showMessage(fmt.Sprintf("%s updated!", f.Title), tcell.ColorGreen)
			i.clearConfigEdit()
			i.renderFeature(f.Key)
		}).
		SetButtonBackgroundColor(tcell.Color104).
		SetFieldBackgroundColor(tcell.Color104)
}

func (i *Configurator) replaceFeature(updated shared.State) {
	for idx := range i.dataBinding.features {
		if i.dataBinding.features[idx].Key == updated.Key {
			i.dataBinding.features[idx] = updated
		}
	}
}

func (i *Configurator) keyBindings() {
	// Right key on function list will select the item
	i.fnLists.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRight && len(i.fnListItems) > 0 {
			item := i.fnListItems[i.fnLists.GetCurrentItem()]
			item.Callback()
			return nil
		}
		return event
	})

	// Left key on configView will go back to function list
	i.configView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyLeft || event.Key() == tcell.KeyEsc {
			i.clearMessage()
			i.app.SetFocus(i.fnLists)
			return nil
		}
		if event.Key() == tcell.KeyRune && event.Rune() == 'e' {
			i.configEditHolder.Clear()
			currentItem := i.fnLists.GetCurrentItem()
			if currentItem >= len(i.fnListItems) || !i.fnListItems[currentItem].Editable {
				return event
			}
			f, ok := i.feature(i.dataBinding.selected)
			if !ok {
				return event
			}
			i.clearMessage()
			i.setupEditForm(f)
			i.configEditHolder.AddItem(i.featureEdit, 0, 1, true)
			i.app.SetFocus(i.featureEdit)
		}
		return event
	})
}

func (i *Configurator) setupStyles() {
	i.fnLists.Box.SetBorder(true).SetTitle(" Functions ")
	i.fnLists.SetSecondaryTextColor(tcell.ColorGray)
	i.configView.Box.SetBorder(true).SetBorderAttributes(tcell.AttrNone).SetTitle(" Current Settings ")
	i.configEditHolder.Box.SetBorder(true).SetTitle(" Edit Settings ")
	i.infoView.Box.SetBorder(true).SetTitle(" Information ")
}

func (i *Configurator) updateInfoView() {
	var txt string
	txt = fmt.Sprintf("%v\nSupervisor: %s", txt, i.address)
	txt = fmt.Sprintf("%v\nFeatures: %d", txt, len(i.dataBinding.features))
	txt = fmt.Sprintf("%v\nLogs: %s/debug/logs", txt, shared.WebAddress)
	i.infoView.SetText(txt[1:])
}

func (i *Configurator) showEditTooltip() {
	i.frame.Clear().AddText(title, true, tview.AlignCenter, tcell.ColorWhite).AddText("Press (E) to edit", false, tview.AlignLeft, tcell.ColorWhite)
}

func (i *Configurator) clearMessage() {
	i.frame.Clear().AddText(title, true, tview.AlignCenter, tcell.ColorWhite).AddText("", false, tview.AlignLeft, tcell.ColorWhite)
}

func (i *Configurator) showMessage(msg string, color tcell.Color) {
	i.frame.Clear().AddText(title, true, tview.AlignCenter, tcell.ColorWhite).AddText(msg, false, tview.AlignLeft, color)
	go func() {
		time.Sleep(time.Millisecond * 2500)
		i.app.QueueUpdateDraw(i.clearMessage)
	}()
}

func (i *Configurator) renderFeature(key string) {
	f, ok := i.feature(key)
	if !ok {
		return
	}
	var txt string
	txt = fmt.Sprintf("%s%s\n%s\n\n", txt, f.Title, f.Subtitle)
	if !f.Available {
		txt = fmt.Sprintf("%sThis feature is not available on this system\n", txt)
	} else {
		txt = fmt.Sprintf("%sCurrent value: %s\n", txt, f.Value)
		txt = fmt.Sprintf("%sChoices: %s\n", txt, strings.Join(f.Choices, ", "))
	}
	i.configView.SetText(txt)
}

func (i *Configurator) selectFeature(key string) {
	resp, err := i.gFeatures.Get(i.ctx, wrapperspb.String(key))
	if err != nil {
		i.configView.SetText(status.Convert(err).Message())
		return
	}
	f, err := protocol.StructToFeature(resp)
	if err != nil {
		i.configView.SetText(err.Error())
		return
	}
	i.replaceFeature(f)
	i.dataBinding.selected = key
	i.renderFeature(key)
	if f.Available {
		i.showEditTooltip()
	}
	i.app.SetFocus(i.configView)
}

func (i *Configurator) selectRefresh() {
	i.dataBinding.selected = ""
	changes, err := i.gFeatures.Refresh(i.ctx, &emptypb.Empty{})
	if err != nil {
		i.configView.SetText(status.Convert(err).Message())
		return
	}
	if err := i.loadFeatures(); err != nil {
		i.configView.SetText(err.Error())
		return
	}
	var txt string
	if len(changes.GetValues()) == 0 {
		txt = "Nothing changed since the last read\n"
	}
	for _, v := range changes.GetValues() {
		key, value, _ := protocol.StructToChange(v.GetStructValue())
		txt = fmt.Sprintf("%s%s is now %s\n", txt, key, value)
	}
	i.configView.SetText(txt)
	i.app.SetFocus(i.configView)
}

func (i *Configurator) selectSave() {
	i.dataBinding.selected = ""
	if _, err := i.gFeatures.Save(i.ctx, &emptypb.Empty{}); err != nil {
		i.showMessage(status.Convert(err).Message(), tcell.ColorRed)
		return
	}
	i.showMessage("Settings saved!", tcell.ColorGreen)
}

func (i *Configurator) Serve(haltCtx context.Context) error {

	i.ctx, i.cancelFn = context.WithCancel(haltCtx)
	defer i.cancelFn()

	i.setup()

	go func() {
		i.app.Run()
		i.cancelFn()
	}()

	<-i.ctx.Done()
	i.app.Stop()
	if i.conn != nil {
		i.conn.Close()
	}
	return nil
}
