package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localforge/localforge"
)

func openForge(gf *GlobalFlags) (*localforge.Forge, error) {
	cfg, err := localforge.LoadConfig(gf.ConfigPath)
	if err != nil {
		return nil, err
	}
	return localforge.New(cfg)
}

func newStartCmd(gf *GlobalFlags) *cobra.Command {
	var execPath string
	var args []string
	cmd := &cobra.Command{
		Use:   "start NAME",
		Short: "Start one service; resolves the executable automatically unless --exec is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			name := posArgs[0]
			var pid int
			if execPath != "" {
				pid, err = f.Start(cmd.Context(), name, execPath, args)
			} else {
				pid, err = f.StartAuto(cmd.Context(), name)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s started (pid %d)\n", name, pid)
			return nil
		},
	}
	cmd.Flags().StringVar(&execPath, "exec", "", "explicit executable path")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "extra argument (repeatable, used with --exec)")
	return cmd
}

func newStopCmd(gf *GlobalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stop [NAME]",
		Short: "Stop one service, or every tracked service with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if all {
				return f.StopAll(cmd.Context())
			}
			if len(posArgs) != 1 {
				return fmt.Errorf("service name required unless --all is set")
			}
			if err := f.Stop(cmd.Context(), posArgs[0]); err != nil {
				return err
			}
			fmt.Printf("%s stopped\n", posArgs[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "stop every tracked service")
	return cmd
}

func newStatusCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [NAME]",
		Short: "Show service state",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if len(posArgs) == 1 {
				fmt.Printf("%s: %s\n", posArgs[0], f.Status(posArgs[0]))
				return nil
			}
			for _, h := range f.Statuses() {
				if h.PID > 0 {
					fmt.Printf("%-14s %-9s pid=%d\n", h.Name, h.State, h.PID)
				} else {
					fmt.Printf("%-14s %s\n", h.Name, h.State)
				}
			}
			return nil
		},
	}
}

func newAutoStartCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "autostart [NAME...]",
		Short: "Start the configured (or given) services in order; failures are reported per service",
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			cfg, err := localforge.LoadConfig(gf.ConfigPath)
			if err != nil {
				return err
			}
			f, err := localforge.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			names := posArgs
			if len(names) == 0 {
				names = cfg.AutoStart
			}
			if len(names) == 0 {
				return fmt.Errorf("no services given and auto_start is empty in config")
			}
			for _, line := range f.AutoStartBatch(cmd.Context(), names) {
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newInstalledCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List services discovered under the install directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			list, err := f.InstalledServices()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("no services installed")
				return nil
			}
			for _, in := range list {
				fmt.Printf("%-14s %s\n", in.Name, in.ExecPath)
			}
			return nil
		},
	}
}
