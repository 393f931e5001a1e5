package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/supervisor"
	"github.com/gramlinux/GramManager/supervisor/background"
	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/util"

	"github.com/spf13/afero"
	suture "github.com/thejerf/suture/v4"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Compile time injected variables
var (
	Version     = "v0.0.0-dev"
	IsDebug     = "yes"
	logLocation = "/var/log/gram-manager/supervisor.log"
)

var (
	optionsPath = flag.String("config", controller.DefaultSystemOptionsPath, "options file (attribute paths, polling, elevation)")
	statePath   = flag.String("state", persist.DefaultSystemPath, "settings file restored on start up")
	checkUpdate = flag.Bool("check-update", true, "periodically check for a new release")
)

func main() {
	flag.Parse()

	if IsDebug == "no" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   logLocation,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		})
	}

	log.Printf("GramManager supervisor version: %s\n", Version)

	notifier := background.NewNotifier()

	versionChecker, err := background.NewVersionCheck(Version, "gramlinux/GramManager", notifier.C)
	if err != nil {
		log.Fatalf("[supervisor] cannot get version checker: %+v\n", err)
	}

	newController := func() (*controller.Controller, error) {
		opts, err := controller.LoadOptions(afero.NewOsFs(), *optionsPath)
		if err != nil {
			return nil, err
		}
		controllerConfig := controller.RunConfig{
			DryRun:     os.Getenv("DRY_RUN") != "",
			NotifierCh: notifier.C,
			StatePath:  *statePath,
			Options:    opts,
		}
		dep, err := controller.GetDependencies(controllerConfig)
		if err != nil {
			return nil, err
		}
		return controller.New(controllerConfig, dep)
	}

	control, err := newController()
	if err != nil {
		log.Fatalf("[supervisor] cannot create controller: %+v\n", err)
	}
	if err := control.Restore(); err != nil {
		log.Printf("[supervisor] cannot restore settings: %+v\n", err)
	}

	grpcServer, err := supervisor.NewGRPCServer(supervisor.GRPCRunConfig{
		Controller: control,
	})
	if err != nil {
		log.Fatalf("[supervisor] cannot create gRPCServer: %+v\n", err)
	}

	evtHook := &supervisor.EventHook{
		Notifier: notifier.C,
	}

	ctx, cancel := context.WithCancel(context.Background())

	/*
		How the supervisor tree is structured:
			gRPCSupervisor:		supervisor/grpc.go
			gRPCServer: 		rpc/server
			Reloader:			supervisor/responder.go
			versionChecker:		supervisor/background/version.go
			notifier:			supervisor/background/notifier.go
			controller:			controller

								rootSupervisor  +----+  externalWeb
									+    +
									|    |
									|    |
				gRPCSupervisor  +---+    +---+   backgroundSupervisor
				+ + +                            + +
				| | |                            | |
				| | +-> gRPCServer               | +-> versionChecker
				| |                              |
				| |                              |
				| +---> Reloader                 +---> notifier
				|
				|
				+-----> controllerSupervisor
							+
							|
							+-> Controller

		SIGUSR1 asks the Reloader to re-read the options file, then swap
		the Controller and point the gRPCServer at the new one.

	*/

	controllerSupervisor := suture.New("controllerSupervisor", suture.Spec{})
	reloader := &supervisor.Reloader{
		Supervisor: controllerSupervisor,
		GRPCServer: grpcServer,
		ReloadCh:   make(chan supervisor.ReloadRequest, 1),
		Factory:    newController,
	}
	if err := reloader.Start(control); err != nil {
		log.Fatalf("[supervisor] cannot start controller: %+v\n", err)
	}

	backgroundSupervisor := suture.New("backgroundSupervisor", suture.Spec{})
	if *checkUpdate {
		backgroundSupervisor.Add(versionChecker)
	}
	backgroundSupervisor.Add(notifier)

	grpcSupervisor := suture.New("gRPCSupervisor", suture.Spec{})
	grpcSupervisor.Add(grpcServer)
	grpcSupervisor.Add(reloader)
	grpcSupervisor.Add(controllerSupervisor)

	rootSupervisor := suture.New("Supervisor", suture.Spec{
		EventHook: evtHook.Event,
	})
	rootSupervisor.Add(grpcSupervisor)
	rootSupervisor.Add(backgroundSupervisor)
	rootSupervisor.Add(NewWeb(reloader))

	sigc := make(chan os.Signal, 1)

	go func() {
		notifier.C <- util.Notification{
			Message: "Starting up GramManager Supervisor",
			Delay:   time.Second * 2,
		}
		supervisorErr := rootSupervisor.Serve(ctx)
		if supervisorErr != nil {
			log.Printf("[supervisor] rootSupervisor returns error: %+v\n", supervisorErr)
			sigc <- syscall.SIGTERM
		}
	}()

	reloadc := make(chan os.Signal, 1)
	signal.Notify(reloadc, syscall.SIGUSR1)
	go func() {
		for range reloadc {
			log.Println("[supervisor] reload requested")
			reloader.ReloadCh <- supervisor.ReloadRequest{}
		}
	}()

	signal.Notify(
		sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigc
	log.Printf("[supervisor] signal received: %+v\n", sig)

	cancel()
	time.Sleep(time.Second) // 1 second for grace period
	if err := reloader.Current().Save(); err != nil {
		log.Printf("[supervisor] cannot save settings: %+v\n", err)
	}
	reloader.Current().Dependencies().ConfigRegistry.Close()
}
