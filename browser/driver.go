package browser

import (
	"context"
	"fmt"
	"sync"
)

// Driver is the boundary to the external automation engine. Implementations
// live outside this module and register themselves with RegisterDriver, in
// the manner of database/sql drivers.
type Driver interface {
	// NewPage opens a fresh page in the engine.
	NewPage(ctx context.Context) (Page, error)
	// Close shuts the engine down. It must be safe to call once per driver.
	Close(ctx context.Context) error
}

// Page is one live page of the automation engine.
type Page interface {
	Navigate(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	// Snapshot returns the page's accessibility snapshot as text, including
	// the element references that Click and Type accept.
	Snapshot(ctx context.Context) (string, error)
	Click(ctx context.Context, ref string) error
	Type(ctx context.Context, ref, text string, submit bool) error
	// Screenshot returns a PNG capture of the viewport.
	Screenshot(ctx context.Context) ([]byte, error)
	Close(ctx context.Context) error
}

// DriverFactory builds a driver for one Context from the active
// configuration.
type DriverFactory func(ctx context.Context, cfg *Config) (Driver, error)

var driverReg struct {
	sync.Mutex
	factory DriverFactory
}

// RegisterDriver installs the process-wide driver factory. Typically called
// from an init function of a driver package linked into the final binary.
// Registering twice panics.
func RegisterDriver(f DriverFactory) {
	driverReg.Lock()
	defer driverReg.Unlock()
	if driverReg.factory != nil {
		panic("browser: driver already registered")
	}
	driverReg.factory = f
}

// NewRegisteredDriver builds a driver from the registered factory.
func NewRegisteredDriver(ctx context.Context, cfg *Config) (Driver, error) {
	driverReg.Lock()
	f := driverReg.factory
	driverReg.Unlock()
	if f == nil {
		return nil, fmt.Errorf("browser: no automation driver registered")
	}
	return f(ctx, cfg)
}
