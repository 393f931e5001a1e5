package background

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gramlinux/GramManager/util"

	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, tag string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/gramlinux/GramManager/releases/latest", r.URL.Path)
		fmt.Fprintf(w, `{"tag_name": %q}`, tag)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCheckNotifiesOnce(t *testing.T) {
	srv := releaseServer(t, "v1.2.0")
	ch := make(chan util.Notification, 2)

	v, err := NewVersionCheck("v1.1.0", "gramlinux/GramManager", ch)
	require.NoError(t, err)
	v.api = srv.URL

	v.check(context.Background())
	v.check(context.Background())

	require.Len(t, ch, 1)
	n := <-ch
	require.Contains(t, n.Message, "1.2.0")
}

func TestVersionCheckUpToDate(t *testing.T) {
	srv := releaseServer(t, "v1.1.0")
	ch := make(chan util.Notification, 1)

	v, err := NewVersionCheck("v1.1.0", "gramlinux/GramManager", ch)
	require.NoError(t, err)
	v.api = srv.URL

	v.check(context.Background())
	require.Len(t, ch, 0)
}

func TestVersionCheckInvalidCurrent(t *testing.T) {
	_, err := NewVersionCheck("dev", "gramlinux/GramManager", nil)
	require.Error(t, err)
}

func TestNotifierForwards(t *testing.T) {
	sent := make(chan util.Notification, 1)
	n := NewNotifier()
	n.send = func(appName string, msg util.Notification) error {
		sent <- msg
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Serve(ctx)

	n.C <- util.Notification{Message: "FN Lock changed to on"}

	select {
	case msg := <-sent:
		require.Equal(t, "FN Lock changed to on", msg.Message)
		require.Equal(t, time.Millisecond*2500, msg.Delay)
	case <-time.After(time.Second):
		t.Fatal("notification was not forwarded")
	}
}
