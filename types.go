package pyext

import "context"

// BuildResult contains the output and status of a driver build.
//
// After a build completes, this structure provides:
//   - Success status indicating if the build completed without errors
//   - Output lines captured from the toolchain (stdout/stderr)
//   - Extensions list of built extension files (absolute paths)
//   - Error information if the build failed
type BuildResult struct {
	Success    bool     // True if build completed successfully
	Output     []string // Lines of output from the toolchain
	Extensions []string // Paths to built extension files
	Error      error    // Error if build failed, nil otherwise
}

// BuildSteps defines the three-step pipeline shared by drivers.
//
//  1. Configure: discover the host toolchain settings
//  2. Build: compile and link the extension
//  3. Find: locate the built extension files
type BuildSteps struct {
	// ConfigureFunc prepares the build (e.g., probe the host Python)
	ConfigureFunc func(ctx context.Context, desc BuildDescriptor, result *BuildResult) error

	// BuildFunc compiles and links the extension
	BuildFunc func(ctx context.Context, desc BuildDescriptor, result *BuildResult) error

	// FindFunc locates the built extension files after the build completes
	FindFunc func(desc BuildDescriptor) ([]string, error)
}
