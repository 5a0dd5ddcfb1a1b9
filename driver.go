package pyext

import "context"

// Driver builds a native extension module from a BuildDescriptor.
//
// The Bridge hands every descriptor to exactly one Driver, exactly once.
// CCDriver is the production implementation; tests substitute a fake
// that records calls instead of invoking a compiler.
//
// # Example Implementation
//
//	type MyDriver struct{}
//
//	func (d *MyDriver) Name() string {
//	    return "MyToolchain"
//	}
//
//	func (d *MyDriver) Build(ctx context.Context, desc BuildDescriptor) (*BuildResult, error) {
//	    result := &BuildResult{Success: true}
//	    // ... compile and link ...
//	    return result, nil
//	}
//
//	func (d *MyDriver) Clean(ctx context.Context, desc BuildDescriptor) error {
//	    return nil
//	}
type Driver interface {
	// Name returns the human-readable name of this driver.
	//
	// This name is used in error messages and logs.
	Name() string

	// Build compiles and links the extension described by desc.
	//
	// Returns:
	//   - BuildResult with Success=true and Extensions list on success
	//   - BuildResult with Success=false and Error on failure
	//
	// Outputs of a previous build with the same descriptor are
	// overwritten, never reported as a conflict.
	Build(ctx context.Context, desc BuildDescriptor) (*BuildResult, error)

	// Clean removes build artifacts produced for desc.
	//
	// Returns nil if there is nothing to clean.
	Clean(ctx context.Context, desc BuildDescriptor) error
}
