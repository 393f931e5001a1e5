package supervisor

import (
	"fmt"
	"log"

	"github.com/gramlinux/GramManager/util"

	"github.com/thejerf/suture/v4"
)

// EventHook logs supervisor events and tells the user when a service fails
type EventHook struct {
	Notifier chan<- util.Notification
}

func (e *EventHook) Event(evt suture.Event) {
	log.Printf("[supervisor] event: %s\n", evt)

	var n util.Notification
	switch ev := evt.(type) {
	case suture.EventServicePanic:
		n = util.Notification{
			Title:   "Service Restarting",
			Message: fmt.Sprintf("%s crashed unexpectedly, restarting...", ev.ServiceName),
		}
	case suture.EventServiceTerminate:
		if ev.Restarting {
			n = util.Notification{
				Title:   "Service Restarting",
				Message: fmt.Sprintf("%s stopped unexpectedly, restarting...", ev.ServiceName),
			}
		} else {
			n = util.Notification{
				Title:   "Service Stopped",
				Message: fmt.Sprintf("%s stopped: %v", ev.ServiceName, ev.Err),
			}
		}
	case suture.EventBackoff:
		n = util.Notification{
			Title:     "Too Many Failures",
			Message:   fmt.Sprintf("%s is failing repeatedly, pausing restarts", ev.SupervisorName),
			Immediate: true,
		}
	default:
		return
	}

	select {
	case e.Notifier <- n:
	default:
		log.Printf("[supervisor] notifier is busy, dropping %q\n", n.Message)
	}
}
