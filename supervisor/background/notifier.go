package background

import (
	"context"
	"log"
	"time"

	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/util"
)

type Notifier struct {
	C chan util.Notification

	send func(appName string, n util.Notification) error
}

func NewNotifier() *Notifier {
	return &Notifier{
		C:    make(chan util.Notification, 10),
		send: util.SendDesktopNotification,
	}
}

func (n *Notifier) String() string {
	return "Notifier"
}

func (n *Notifier) Serve(haltCtx context.Context) error {
	log.Println("[notifier] starting notify loop")

	for {
		select {
		case msg := <-n.C:
			if msg.Delay == time.Duration(0) {
				msg.Delay = time.Millisecond * 2500
			}
			if err := n.send(shared.AppName, msg); err != nil {
				log.Printf("[notifier] cannot send desktop notification: %+v\n", err)
			}
		case <-haltCtx.Done():
			log.Println("[notifier] exiting notify loop")
			return nil
		}
	}
}
