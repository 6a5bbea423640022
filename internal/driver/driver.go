// Package driver defines the Driver contract that every component binds
// to via its x-runtime.driver field, and a name-keyed Registry that
// callers add drivers to explicitly. Narrowed from the teacher's
// internal/plugin.Plugin/PluginRegistry (Metadata/Schema/Check/Apply/
// DryRun/Verify) down to the single Run entry point the execution
// runtime actually needs — Osiris drivers have no reconciliation loop,
// only a one-shot read/write/transform call.
package driver

import (
	"context"

	"github.com/osiris-data/osiris/internal/model"
	streamyerrors "github.com/osiris-data/osiris/pkg/errors"
)

// Driver executes one step's logic against materialized config, resolved
// connection fields, and the outputs of the steps it depends on.
type Driver interface {
	// Name is the stable driver identifier named by a component's
	// x-runtime.driver field.
	Name() string

	// Run executes the step and returns its produced tables. Drivers
	// running in read mode ignore inputs; drivers running in write mode
	// return no outputs.
	Run(ctx context.Context, req Request) (Response, error)
}

// Request carries everything a driver needs to execute one step.
type Request struct {
	StepID     string
	Mode       model.Mode
	Config     model.Value
	Connection model.ResolvedConnection
	Inputs     model.Inputs
}

// Response carries a driver's outputs and the row count it produced or
// consumed, used for run-summary totals.
type Response struct {
	Outputs    model.Outputs
	RowsMoved  int64
}

// Registry is a map of driver name to Driver implementation. Drivers are
// added by explicit Register calls; no driver registers itself from an
// init function. The package-level functions operate on one global
// Registry.
type Registry struct {
	drivers map[string]Driver
}

var global = NewRegistry()

// NewRegistry constructs an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

// Register adds d to the global registry under d.Name(). Calling
// Register twice for the same name panics, since it indicates two
// drivers compiled into the same binary claim the same identity — a
// build-time defect, not a runtime one.
func Register(d Driver) {
	global.Register(d)
}

// Register adds d to r under d.Name().
func (r *Registry) Register(d Driver) {
	if _, exists := r.drivers[d.Name()]; exists {
		panic("driver: duplicate registration for " + d.Name())
	}
	r.drivers[d.Name()] = d
}

// Get looks up a driver by name.
func Get(name string) (Driver, error) {
	return global.Get(name)
}

// Get looks up a driver by name in r.
func (r *Registry) Get(name string) (Driver, error) {
	d, ok := r.drivers[name]
	if !ok {
		return nil, streamyerrors.NewExecutionError("", errUnknownDriver(name))
	}
	return d, nil
}

// Known reports whether name is registered, used by the component
// registry's strict validation pass to catch components bound to a
// driver that was never compiled in.
func (r *Registry) Known(name string) bool {
	_, ok := r.drivers[name]
	return ok
}

// Known reports whether name is registered in the global registry.
func Known(name string) bool {
	return global.Known(name)
}

func errUnknownDriver(name string) error {
	return &unknownDriverError{name: name}
}

type unknownDriverError struct{ name string }

func (e *unknownDriverError) Error() string {
	return "driver: unknown driver " + e.name
}
