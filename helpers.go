package pyext

import (
	"fmt"
	"strings"
)

// extensionSuffixes are the file suffixes a built extension module can carry.
var extensionSuffixes = []string{".so", ".pyd", ".dylib", ".dll"}

// MatchesExtension checks if a filename has any of the given extensions.
//
// This is a case-insensitive check for file extensions, with or without a
// leading dot.
//
//	if MatchesExtension(filename, ".so", ".pyd") {
//	    // This is a built extension
//	}
func MatchesExtension(filename string, extensions ...string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(filename), strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// BuildError creates a standardized build error with output context.
//
// # Format
//
// With error and output:
//
//	Link build failed: exit status 1
//
//	Build output:
//	/usr/bin/ld: cannot find -lbbmputil
//
// With error but no output:
//
//	Link build failed: exit status 1
//
// With output but no error:
//
//	Link build failed
//
//	Build output:
//	... output lines ...
func BuildError(step string, output []string, err error) error {
	outputStr := strings.TrimRight(strings.Join(output, "\n"), "\n")

	var prefix string
	if err != nil {
		prefix = fmt.Sprintf("%s build failed: %v", step, err)
	} else {
		prefix = fmt.Sprintf("%s build failed", step)
	}

	if outputStr != "" {
		return fmt.Errorf("%s\n\nBuild output:\n%s", prefix, outputStr)
	}

	return fmt.Errorf("%s", prefix)
}

// splitOutput turns raw toolchain output into lines, dropping the empty
// trailing line left by a final newline.
func splitOutput(output []byte) []string {
	s := strings.TrimRight(string(output), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
