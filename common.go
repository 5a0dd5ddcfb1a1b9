package pyext

import "context"

// runBuildSteps executes the standard 3-step build process.
//
// # Process Flow
//
//  1. Create empty BuildResult
//  2. Call ConfigureFunc to prepare the build
//  3. Call BuildFunc to compile and link the extension
//  4. Call FindFunc to locate built files
//  5. Return BuildResult with Success=true
//
// If any step fails, processing stops and the error is returned
// with Success=false. The BuildResult.Output field is populated by the
// step functions as they execute.
func runBuildSteps(ctx context.Context, desc BuildDescriptor, steps BuildSteps) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	// Step 1: Configure
	if err := steps.ConfigureFunc(ctx, desc, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 2: Compile and link
	if err := steps.BuildFunc(ctx, desc, result); err != nil {
		result.Error = err
		return result, err
	}

	// Step 3: Find the built extension files
	extensions, err := steps.FindFunc(desc)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Extensions = extensions
	result.Success = true
	return result, nil
}
