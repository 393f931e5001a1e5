package client

import (
	"context"
	"net"
	"testing"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/rpc/server"
	"github.com/gramlinux/GramManager/system/lglaptop"
	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/sysfs"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func newController(t *testing.T) *controller.Controller {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, lglaptop.DriverPath+"/reader_mode", []byte("0\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/leds/kbd_backlight/brightness", []byte("0\n"), 0644))

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

func newRemote(t *testing.T, ctrl *controller.Controller) *Remote {
	lis := bufconn.Listen(1 << 16)
	s := grpc.NewServer()
	server.RegisterFeaturesServer(s, ctrl)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.Dial("bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithInsecure(),
	)
	require.NoError(t, err)
	r := NewRemote(conn)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestBackendsAgree(t *testing.T) {
	ctx := context.Background()

	backends := map[string]Backend{
		"local":  &Local{Controller: newController(t)},
		"remote": newRemote(t, newController(t)),
	}

	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			states, err := b.Features(ctx)
			require.NoError(t, err)
			require.Len(t, states, 7)

			state, err := b.Set(ctx, lglaptop.KeyKbdBacklight, "high")
			require.NoError(t, err)
			require.Equal(t, "high", state.Value)

			state, err = b.Get(ctx, lglaptop.KeyReaderMode)
			require.NoError(t, err)
			require.Equal(t, "off", state.Value)

			_, err = b.Set(ctx, lglaptop.KeyReaderMode, "maybe")
			require.Error(t, err)

			changed, err := b.Refresh(ctx)
			require.NoError(t, err)
			require.Empty(t, changed)

			loaded, err := b.DriverLoaded(ctx)
			require.NoError(t, err)
			require.True(t, loaded)

			require.NoError(t, b.Save(ctx))
		})
	}
}
