package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/localforge/localforge"
)

func newTunnelCmd(gf *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunnel",
		Short: "Manage the relay tunnel for public preview URLs",
	}
	cmd.AddCommand(newTunnelStartCmd(gf))
	cmd.AddCommand(newTunnelStopCmd(gf))
	cmd.AddCommand(newTunnelURLCmd(gf))
	return cmd
}

func newTunnelStartCmd(gf *GlobalFlags) *cobra.Command {
	var domain, token string
	var port int
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the tunnel client and wait for the public URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := localforge.LoadConfig(gf.ConfigPath)
			if err != nil {
				return err
			}
			if domain == "" {
				domain = cfg.Tunnel.Domain
			}
			if token == "" {
				token = cfg.Tunnel.AuthToken
			}
			if port <= 0 {
				port = cfg.Tunnel.Port
			}
			f, err := localforge.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if err := f.StartTunnel(cmd.Context(), domain, port, token); err != nil {
				return err
			}
			fmt.Println("tunnel client launched, waiting for endpoint...")
			// endpoint provisioning is asynchronous; poll until it appears
			deadline := time.Now().Add(wait)
			for {
				url, err := f.TunnelURL(cmd.Context())
				if err == nil {
					fmt.Println(url)
					return nil
				}
				if !errors.Is(err, localforge.ErrNoActiveTunnels) && time.Now().After(deadline) {
					return err
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("tunnel endpoint not ready after %s", wait)
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(500 * time.Millisecond):
				}
			}
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "custom tunnel domain")
	cmd.Flags().StringVar(&token, "authtoken", "", "relay auth token")
	cmd.Flags().IntVar(&port, "port", 0, "local port to expose")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the public URL")
	return cmd
}

func newTunnelStopCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Terminate the tunnel client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			return f.StopTunnel(cmd.Context())
		},
	}
}

func newTunnelURLCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the current public tunnel URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := openForge(gf)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			url, err := f.TunnelURL(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
}
