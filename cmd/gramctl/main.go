package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gramlinux/GramManager/client"
	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/system/persist"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Compile time injected variables
var (
	Version = "v0.0.0-dev"
	IsDebug = "yes"
)

// app holds the persistent flags and the backend built from them
type app struct {
	remote      bool
	address     string
	optionsPath string
	statePath   string

	controller *controller.Controller
	backend    client.Backend
}

// local builds an in-process controller. Saved settings are loaded but not applied
func (a *app) local() (*controller.Controller, error) {
	if a.controller != nil {
		return a.controller, nil
	}
	opts, err := controller.LoadOptions(afero.NewOsFs(), a.optionsPath)
	if err != nil {
		return nil, err
	}
	conf := controller.RunConfig{
		DryRun:    os.Getenv("DRY_RUN") != "",
		StatePath: a.statePath,
		Options:   opts,
	}
	dep, err := controller.GetDependencies(conf)
	if err != nil {
		return nil, err
	}
	if !dep.DriverLoaded() {
		log.Printf("[gramctl] lg-laptop driver is not loaded, features will be unavailable\n")
	}
	ctrl, err := controller.New(conf, dep)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Load(); err != nil {
		log.Printf("[gramctl] cannot load settings: %v\n", err)
	}
	a.controller = ctrl
	return a.controller, nil
}

func (a *app) Backend(ctx context.Context) (client.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	if a.remote {
		remote, err := client.Dial(ctx, a.address)
		if err != nil {
			return nil, err
		}
		a.backend = remote
		return a.backend, nil
	}
	ctrl, err := a.local()
	if err != nil {
		return nil, err
	}
	a.backend = &client.Local{Controller: ctrl}
	return a.backend, nil
}

func (a *app) Close() {
	if a.backend != nil {
		a.backend.Close()
	}
}

func rootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gramctl",
		Short:         "Control LG Gram hardware features",
		Long:          "Read and change the settings exposed by the lg-laptop kernel module, install the privilege rules, and build the Debian package",
		Version:       Version,
		SilenceErrors: true,
	}
	rootFlags := pflag.NewFlagSet("root", pflag.ContinueOnError)
	rootFlags.BoolVar(&a.remote, "remote", false, "talk to the running supervisor instead of writing sysfs directly")
	rootFlags.StringVar(&a.address, "address", shared.GRPCAddress, "supervisor gRPC address")
	rootFlags.StringVar(&a.optionsPath, "config", controller.DefaultUserOptionsPath(), "options file")
	rootFlags.StringVar(&a.statePath, "state", persist.DefaultUserPath(), "settings file")
	root.PersistentFlags().AddFlagSet(rootFlags)

	root.AddCommand(listCmd(a))
	root.AddCommand(getCmd(a))
	root.AddCommand(setCmd(a))
	root.AddCommand(saveCmd(a))
	root.AddCommand(applyCmd(a))
	root.AddCommand(watchCmd(a))
	root.AddCommand(installCmd(a))
	root.AddCommand(buildCmd(a))

	return root
}

func main() {
	log.SetFlags(0)
	if IsDebug == "yes" {
		log.SetFlags(log.LstdFlags)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	defer a.Close()

	if err := rootCmd(a).ExecuteContext(ctx); err != nil {
		log.Printf("gramctl: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}
