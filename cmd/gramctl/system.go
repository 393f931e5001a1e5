package main

import (
	"fmt"

	"github.com/gramlinux/GramManager/controller"
	"github.com/gramlinux/GramManager/packaging"
	"github.com/gramlinux/GramManager/provision"
	"github.com/gramlinux/GramManager/system/lglaptop"
	"github.com/gramlinux/GramManager/system/shared"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func installCmd(a *app) *cobra.Command {
	var (
		username string
		group    string
		binDir   string
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Create the privilege group and install the udev, polkit and desktop files",
		Long:  "Create the privilege group and install the udev, polkit and desktop files. Must run as root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			opts, err := controller.LoadOptions(afero.NewOsFs(), a.optionsPath)
			if err != nil {
				return err
			}

			p := provision.New(lglaptop.DefaultLayout().WithOverrides(opts.Paths))
			p.Group = group
			p.BinDir = binDir
			p.Version = Version
			if err := p.Install(cmd.Context()); err != nil {
				return err
			}
			if username != "" {
				if err := p.AddUser(cmd.Context(), username); err != nil {
					return err
				}
				fmt.Printf("Added %s to %s, log out and back in for it to take effect\n", username, group)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "also add this user to the privilege group")
	cmd.Flags().StringVar(&group, "group", shared.PrivilegeGroup, "privilege group name")
	cmd.Flags().StringVar(&binDir, "bin-dir", "/usr/bin", "directory holding gram-manager")
	return cmd
}

func buildCmd(a *app) *cobra.Command {
	opts := packaging.Options{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the Debian package into dist/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			artifact, err := packaging.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Println(artifact)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.SourceDir, "source", ".", "source checkout")
	cmd.Flags().StringVar(&opts.Package, "package", packaging.DefaultPackage, "package name")
	cmd.Flags().StringVar(&opts.Version, "pkg-version", Version, "package version")
	cmd.Flags().StringVar(&opts.Maintainer, "maintainer", packaging.DefaultMaintainer, "maintainer field")
	return cmd
}
