package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newVersionsCmd(gf *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect and refresh available service versions",
	}
	cmd.AddCommand(newVersionsListCmd(gf))
	cmd.AddCommand(newVersionsRefreshCmd(gf))
	cmd.AddCommand(newVersionsClearCmd(gf))
	return cmd
}

func newVersionsListCmd(gf *GlobalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "list SERVICE",
		Short: "List available versions for a service (cache-first unless --force)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, posArgs []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			vs, err := f.GetAvailableVersions(cmd.Context(), posArgs[0], force)
			if err != nil {
				return err
			}
			for _, v := range vs {
				fmt.Printf("%-22s %-9s %s\n", v.Version, v.Source, v.DownloadURL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the cache and fetch live")
	return cmd
}

func newVersionsRefreshCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the version cache for every known service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			results := f.RefreshAllVersions(cmd.Context())
			names := make([]string, 0, len(results))
			for n := range results {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				if results[n] != nil {
					fmt.Printf("%-14s error: %v\n", n, results[n])
				} else {
					fmt.Printf("%-14s ok\n", n)
				}
			}
			return nil
		},
	}
}

func newVersionsClearCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the persisted version cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			return f.ClearVersionCache(cmd.Context())
		},
	}
}
