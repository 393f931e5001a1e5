package supervisor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gramlinux/GramManager/controller"

	"github.com/pkg/errors"
	suture "github.com/thejerf/suture/v4"
)

// ReloadRequest asks the Reloader to rebuild the controller. Response may be nil
type ReloadRequest struct {
	Response chan error
}

// ControllerFactory builds a new controller, typically from freshly read options
type ControllerFactory func() (*controller.Controller, error)

// Reloader owns the controller service and swaps it for a new one on request
type Reloader struct {
	Supervisor *suture.Supervisor
	GRPCServer *Server
	ReloadCh   chan ReloadRequest
	Factory    ControllerFactory

	mu         sync.RWMutex
	childToken suture.ServiceToken
	current    *controller.Controller
}

// Start adds ctrl to the supervisor as the running controller
func (m *Reloader) Start(ctrl *controller.Controller) error {
	if m.Supervisor == nil {
		return errors.New("[reloader] nil supervisor is invalid")
	}
	if ctrl == nil {
		return errors.New("[reloader] nil controller is invalid")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = ctrl
	m.childToken = m.Supervisor.Add(ctrl)
	return nil
}

// Current returns the running controller
func (m *Reloader) Current() *controller.Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

func (m *Reloader) String() string {
	return "Reloader"
}

func (m *Reloader) Serve(haltCtx context.Context) error {
	log.Println("[reloader] starting responder loop")

	for {
		select {
		case req := <-m.ReloadCh:
			err := m.reload()
			if err != nil {
				log.Printf("[reloader] reload failed: %+v\n", err)
			} else {
				log.Println("[reloader] controller reloaded")
			}
			if req.Response != nil {
				req.Response <- err
			}
		case <-haltCtx.Done():
			log.Println("[reloader] exiting responder loop")
			return nil
		}
	}
}

func (m *Reloader) reload() error {
	if m.Factory == nil {
		return errors.New("[reloader] nil factory is invalid")
	}
	next, err := m.Factory()
	if err != nil {
		return errors.Wrap(err, "[reloader] cannot build controller")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		// the old controller flushes pending settings when it stops
		if err := m.Supervisor.RemoveAndWait(m.childToken, time.Second*2); err != nil {
			return errors.Wrap(err, "[reloader] cannot stop controller")
		}
		m.current.Dependencies().ConfigRegistry.Close()
	}

	// after the old controller flushed, so the new one saves on top of it
	if err := next.Load(); err != nil {
		log.Printf("[reloader] cannot load settings: %+v\n", err)
	}

	m.current = next
	m.childToken = m.Supervisor.Add(next)
	if m.GRPCServer != nil {
		m.GRPCServer.HotReload(next)
	}
	return nil
}
