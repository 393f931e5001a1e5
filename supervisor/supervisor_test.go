package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/system/lglaptop"
	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/sysfs"
	"github.com/gramlinux/GramManager/util"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	suture "github.com/thejerf/suture/v4"
)

func newController(t *testing.T, fs afero.Fs) *controller.Controller {
	attrs, err := sysfs.NewAttributes(fs, nil)
	require.NoError(t, err)
	config, err := persist.NewFileConfigHelper(fs, "/state.yaml")
	require.NoError(t, err)
	dep, err := controller.NewDependencies(attrs, lglaptop.DefaultLayout(), config)
	require.NoError(t, err)
	ctrl, err := controller.New(controller.RunConfig{}, dep)
	require.NoError(t, err)
	return ctrl
}

func TestReloaderSwapsController(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, lglaptop.DriverPath+"/fn_lock", []byte("0\n"), 0644))

	first := newController(t, fs)
	second := newController(t, fs)

	sup := suture.NewSimple("test")
	reloader := &Reloader{
		Supervisor: sup,
		ReloadCh:   make(chan ReloadRequest),
		Factory: func() (*controller.Controller, error) {
			return second, nil
		},
	}
	require.NoError(t, reloader.Start(first))
	sup.Add(reloader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := sup.ServeBackground(ctx)

	// a change made on the first controller must be flushed when it is replaced
	_, err := first.Set(ctx, lglaptop.KeyFnLock, "on")
	require.NoError(t, err)

	resp := make(chan error, 1)
	reloader.ReloadCh <- ReloadRequest{Response: resp}
	select {
	case err := <-resp:
		require.NoError(t, err)
	case <-time.After(time.Second * 5):
		t.Fatal("reload did not complete")
	}
	require.Equal(t, second, reloader.Current())

	saved, err := afero.ReadFile(fs, "/state.yaml")
	require.NoError(t, err)
	require.Contains(t, string(saved), "fn_lock: \"on\"")

	// the new controller picked up the flushed value, so saving it keeps it
	require.Equal(t, "on", second.Dependencies().FnLock.Value())
	require.NoError(t, second.Save())
	saved, err = afero.ReadFile(fs, "/state.yaml")
	require.NoError(t, err)
	require.Contains(t, string(saved), "fn_lock: \"on\"")

	cancel()
	<-errCh
}

func TestEventHookNotifiesOnCrash(t *testing.T) {
	ch := make(chan util.Notification, 1)
	hook := &EventHook{Notifier: ch}

	hook.Event(suture.EventServicePanic{
		SupervisorName: "root",
		ServiceName:    "Controller",
		PanicMsg:       "boom",
	})

	require.Len(t, ch, 1)
	require.Contains(t, (<-ch).Message, "Controller")
}

func TestEventHookBackoffAndStop(t *testing.T) {
	ch := make(chan util.Notification, 1)
	hook := &EventHook{Notifier: ch}

	hook.Event(suture.EventBackoff{SupervisorName: "grpc"})
	n := <-ch
	require.True(t, n.Immediate)
	require.Contains(t, n.Message, "grpc")

	hook.Event(suture.EventServiceTerminate{ServiceName: "Web", Restarting: false})
	require.Equal(t, "Service Stopped", (<-ch).Title)

	// events without a notification are only logged
	hook.Event(suture.EventResume{SupervisorName: "grpc"})
	require.Len(t, ch, 0)

	// a full notifier never blocks the supervisor
	ch <- util.Notification{}
	hook.Event(suture.EventServicePanic{ServiceName: "Controller"})
	require.Len(t, ch, 1)
}
