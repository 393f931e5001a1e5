package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/gramlinux/GramManager/client"
	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/gui"
	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Compile time injected variables
var (
	Version = "v0.0.0-dev"
	IsDebug = "yes"
)

var (
	mode        = flag.String("mode", "auto", "auto: use the supervisor when it is running, local: write sysfs directly, remote: supervisor only")
	address     = flag.String("address", shared.GRPCAddress, "supervisor gRPC address")
	optionsPath = flag.String("config", controller.DefaultSystemOptionsPath, "options file used in local mode")
	statePath   = flag.String("state", persist.DefaultUserPath(), "settings file used in local mode")
)

func userLogLocation() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gram-manager", "manager.log")
}

func localBackend() (client.Backend, error) {
	opts, err := controller.LoadOptions(afero.NewOsFs(), *optionsPath)
	if err != nil {
		return nil, err
	}
	conf := controller.RunConfig{
		DryRun:    os.Getenv("DRY_RUN") != "",
		StatePath: *statePath,
		Options:   opts,
	}
	dep, err := controller.GetDependencies(conf)
	if err != nil {
		return nil, err
	}
	ctrl, err := controller.New(conf, dep)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Restore(); err != nil {
		log.Printf("[manager] cannot restore settings: %+v\n", err)
	}
	go ctrl.Serve(context.Background())
	return &client.Local{Controller: ctrl}, nil
}

func main() {
	flag.Parse()

	if IsDebug == "no" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   userLogLocation(),
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		})
	}

	log.Printf("GramManager version: %s\n", Version)

	var backend client.Backend
	var err error

	switch *mode {
	case "remote", "auto":
		backend, err = client.Dial(context.Background(), *address)
		if err == nil {
			log.Printf("[manager] using supervisor at %s\n", *address)
			break
		}
		if *mode == "remote" {
			log.Fatalf("[manager] %+v\n", err)
		}
		log.Printf("[manager] supervisor not available, falling back to local mode: %v\n", err)
		fallthrough
	case "local":
		backend, err = localBackend()
		if err != nil {
			log.Fatalf("[manager] cannot start local controller: %+v\n", err)
		}
	default:
		log.Fatalf("[manager] unknown mode %q\n", *mode)
	}
	defer backend.Close()

	driverLoaded, err := backend.DriverLoaded(context.Background())
	if err != nil {
		log.Printf("[manager] cannot check for the lg-laptop driver: %v\n", err)
		driverLoaded = true
	}

	window, err := gui.New(backend, driverLoaded)
	if err != nil {
		log.Fatalf("[manager] %+v\n", err)
	}
	window.Run()

	if err := backend.Save(context.Background()); err != nil {
		log.Printf("[manager] cannot save settings: %+v\n", err)
	}
}
