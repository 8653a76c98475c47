package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/config"
	"github.com/l1jgo/entpool/internal/data"
	"github.com/l1jgo/entpool/internal/hostsim"
	"github.com/l1jgo/entpool/internal/logging"
	"github.com/l1jgo/entpool/internal/metrics"
	"github.com/l1jgo/entpool/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand, filled in before any of
// them runs.
type app struct {
	cfgPath string

	cfg *config.Config
	log *zap.Logger
	reg *prometheus.Registry
	met *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:               "entpool",
		Short:             "Build, inspect, verify and archive entity pool save chunks",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (toml), defaults to $ENTPOOL_CONFIG")
	root.AddCommand(a.genCmd(), a.inspectCmd(), a.verifyCmd(), a.archiveCmd(), a.serveCmd())
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	path := a.cfgPath
	if path == "" {
		path = os.Getenv("ENTPOOL_CONFIG")
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg, a.log = cfg, log
	a.reg = prometheus.NewRegistry()
	a.met = metrics.New(a.reg)
	return nil
}

// newHost builds a fresh session behind a simulated host.
func (a *app) newHost() (*hostsim.Host, error) {
	caps := data.DefaultCapabilities()
	if p := a.cfg.Data.Capabilities; p != "" {
		loaded, err := data.LoadCapabilities(p)
		if err != nil {
			return nil, err
		}
		caps = loaded
	}
	return hostsim.New(session.Options{
		Pools:   a.cfg.Pools,
		Limits:  a.cfg.Limits,
		Caps:    caps,
		Metrics: a.met,
		Log:     a.log,
	}, a.cfg.Host.CodePage)
}
