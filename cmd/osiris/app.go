package main

import (
	"fmt"

	"github.com/osiris-data/osiris/internal/builtins"
	"github.com/osiris-data/osiris/internal/component"
	"github.com/osiris-data/osiris/internal/connection"
	"github.com/osiris-data/osiris/internal/driver"
	"github.com/osiris-data/osiris/internal/fscontract"
	"github.com/osiris-data/osiris/internal/osirislog"
	"github.com/osiris-data/osiris/internal/runtimeconfig"
)

// app bundles the process-wide singletons every subcommand needs:
// initialized once at startup and read-only thereafter, per the
// Concurrency & Resource Model's ownership rules.
type app struct {
	Config   runtimeconfig.Config
	Layout   fscontract.Layout
	Logger   *osirislog.Logger
	Registry *component.Registry
	Resolver *connection.Resolver
	Drivers  *driver.Registry
}

type rootOptions struct {
	componentsDir  string
	connectionsYML string
	basePath       string
	profile        string
	logLevel       string
	humanLogs      bool
}

func newApp(opts rootOptions) (*app, error) {
	logger, err := osirislog.New(osirislog.Options{
		Level: opts.logLevel, HumanReadable: opts.humanLogs, Component: "cli",
	})
	if err != nil {
		return nil, fmt.Errorf("construct logger: %w", err)
	}

	cfg, err := runtimeconfig.Load(runtimeconfig.Overrides{
		BasePath: opts.basePath,
		Profile:  opts.profile,
	})
	if err != nil {
		return nil, fmt.Errorf("load runtime config: %w", err)
	}

	reg, err := component.Load(opts.componentsDir)
	if err != nil {
		return nil, err
	}

	resolver := connection.NewEmpty()
	if opts.connectionsYML != "" {
		resolver, err = connection.Load(opts.connectionsYML)
		if err != nil {
			return nil, err
		}
	}

	drivers := driver.NewRegistry()
	drivers.Register(builtins.CSVExtractor{})
	drivers.Register(builtins.CSVWriter{})

	return &app{
		Config:   cfg,
		Layout:   fscontract.NewLayout(cfg.BasePath),
		Logger:   logger,
		Registry: reg,
		Resolver: resolver,
		Drivers:  drivers,
	}, nil
}
