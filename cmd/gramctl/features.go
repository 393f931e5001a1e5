package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gramlinux/GramManager/provision"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func printStates(states []shared.State) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tTITLE\tVALUE\tCHOICES")
	for _, s := range states {
		value := s.Value
		if !s.Available {
			value = "unavailable"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Key, s.Title, value, strings.Join(s.Choices, "|"))
	}
	w.Flush()
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List features and their current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			backend, err := a.Backend(cmd.Context())
			if err != nil {
				return err
			}
			states, err := backend.Features(cmd.Context())
			if err != nil {
				return err
			}
			printStates(states)
			return nil
		},
	}
}

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <feature>",
		Short: "Print the current value of a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			backend, err := a.Backend(cmd.Context())
			if err != nil {
				return err
			}
			state, err := backend.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !state.Available {
				return errors.Wrap(shared.ErrUnavailable, state.Key)
			}
			fmt.Println(state.Value)
			return nil
		},
	}
}

func setCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <feature> <value>",
		Short: "Change a feature and remember the value",
		Long:  "Change a feature and remember the value. kbd_backlight also accepts up and down",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			backend, err := a.Backend(cmd.Context())
			if err != nil {
				return err
			}
			state, err := backend.Set(cmd.Context(), args[0], args[1])
			if err != nil {
				if !a.remote {
					if ok, gerr := provision.InGroup(shared.PrivilegeGroup); gerr == nil && !ok {
						log.Printf("%s is not in the %s group, run: sudo gramctl install --user %s\n", os.Getenv("USER"), shared.PrivilegeGroup, os.Getenv("USER"))
					}
				}
				return err
			}
			if err := backend.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("%s set to %s\n", state.Title, state.Value)
			return nil
		},
	}
}

func saveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the current values to the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			backend, err := a.Backend(cmd.Context())
			if err != nil {
				return err
			}
			return backend.Save(cmd.Context())
		},
	}
}

func applyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Write the saved values back to the hardware",
		Long:  "Write the saved values back to the hardware, e.g. after boot or resume. Always runs locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if a.remote {
				return errors.New("apply cannot be used with --remote, the supervisor applies settings on start")
			}
			ctrl, err := a.local()
			if err != nil {
				return err
			}
			err = ctrl.Restore()
			printStates(ctrl.Features())
			return err
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes as they happen until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if !a.remote {
				ctrl, err := a.local()
				if err != nil {
					return err
				}
				go ctrl.Serve(cmd.Context())
			}
			backend, err := a.Backend(cmd.Context())
			if err != nil {
				return err
			}
			changes, err := backend.Watch(cmd.Context())
			if err != nil {
				return err
			}
			for change := range changes {
				source := "local"
				if change.External {
					source = "external"
				}
				fmt.Printf("%s\t%s\t%s\n", change.Key, change.Value, source)
			}
			return nil
		},
	}
}
