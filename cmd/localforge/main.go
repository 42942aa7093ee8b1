package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	gf := &GlobalFlags{}
	root := &cobra.Command{
		Use:           "localforge",
		Short:         "Backend for the localforge developer-environment manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&gf.ConfigPath, "config", "c", "", "path to localforge.toml")

	root.AddCommand(newStartCmd(gf))
	root.AddCommand(newStopCmd(gf))
	root.AddCommand(newStatusCmd(gf))
	root.AddCommand(newAutoStartCmd(gf))
	root.AddCommand(newInstalledCmd(gf))
	root.AddCommand(newVersionsCmd(gf))
	root.AddCommand(newTunnelCmd(gf))
	root.AddCommand(newServeCmd(gf))
	return root
}
