package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/gramlinux/GramManager/supervisor"
	"github.com/gramlinux/GramManager/system/shared"

	suture "github.com/thejerf/suture/v4"
)

type externalWeb struct {
	srv      *http.Server
	reloader *supervisor.Reloader
}

func NewWeb(reloader *supervisor.Reloader) *externalWeb {
	return &externalWeb{
		srv: &http.Server{
			Addr: shared.WebAddress,
		},
		reloader: reloader,
	}
}

func (g *externalWeb) String() string {
	return "externalWeb"
}

func (g *externalWeb) Serve(haltCtx context.Context) error {
	errCh := make(chan error)
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/logs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsDebug != "no" {
			fmt.Fprintf(w, "Logging is not enabled on debug build")
			return
		}
		osFile, err := os.Open(logLocation)
		if err != nil {
			fmt.Fprintf(w, "Unable to open log file: %+v", err)
			return
		}
		defer osFile.Close()
		io.Copy(w, osFile)
	}))
	mux.Handle("/features", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctrl := g.reloader.Current()
		if ctrl == nil {
			http.Error(w, "controller is not running", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ctrl.Features())
	}))

	g.srv.Handler = mux

	go func() {
		log.Printf("[externalWeb] externalWeb available at %s\n", g.srv.Addr)
		errCh <- g.srv.ListenAndServe()
	}()
	for {
		select {
		case <-haltCtx.Done():
			log.Println("[externalWeb] exiting externalWeb server")
			g.srv.Shutdown(context.Background())
			return nil
		case err := <-errCh:
			if err == nil || err == http.ErrServerClosed {
				return nil
			}
			log.Printf("[externalWeb] error channel: %s\n", err)
			return suture.ErrDoNotRestart
		}
	}
}
