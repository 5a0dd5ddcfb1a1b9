package pyext

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Fixed layout of the bbmp_utils source tree and build products.
const (
	bindingSource   = "py3_bindings/module.c"
	includeSubdir   = "include"
	linkLibrary     = "bbmputil"
	noAsNeededFlag  = "-Wl,--no-as-needed"
	descriptionText = "Python3 bindings for the bbmp_utils library"
)

// BuildDescriptor describes one extension module build.
//
// It is created fresh per invocation by NewBuildDescriptor and passed by
// value; the slice accessors return copies so a driver cannot alter the
// caller's descriptor.
type BuildDescriptor struct {
	ModuleName    string
	ModuleVersion string
	Description   string

	// OutputDir receives the extension, object files and build metadata.
	OutputDir string

	sourcePaths        []string
	includeDirs        []string
	libraryDirs        []string
	runtimeLibraryDirs []string
	linkLibraries      []string
	extraLinkArgs      []string
}

// NewBuildDescriptor translates cfg into the bbmp_utils binding build.
//
// The binding source and headers come from the source root. The build
// root serves as link-time and run-time library path, since meson has
// just built libbbmputil there, and as the output directory.
func NewBuildDescriptor(cfg *Config) BuildDescriptor {
	return BuildDescriptor{
		ModuleName:         cfg.ModuleName,
		ModuleVersion:      cfg.ModuleVersion,
		Description:        descriptionText,
		OutputDir:          cfg.BuildRoot,
		sourcePaths:        []string{filepath.Join(cfg.SourceRoot, filepath.FromSlash(bindingSource))},
		includeDirs:        []string{filepath.Join(cfg.SourceRoot, includeSubdir)},
		libraryDirs:        []string{cfg.BuildRoot},
		runtimeLibraryDirs: []string{cfg.BuildRoot},
		linkLibraries:      []string{linkLibrary},
		extraLinkArgs:      []string{noAsNeededFlag},
	}
}

func (d BuildDescriptor) SourcePaths() []string        { return slices.Clone(d.sourcePaths) }
func (d BuildDescriptor) IncludeDirs() []string        { return slices.Clone(d.includeDirs) }
func (d BuildDescriptor) LibraryDirs() []string        { return slices.Clone(d.libraryDirs) }
func (d BuildDescriptor) RuntimeLibraryDirs() []string { return slices.Clone(d.runtimeLibraryDirs) }
func (d BuildDescriptor) LinkLibraries() []string      { return slices.Clone(d.linkLibraries) }
func (d BuildDescriptor) ExtraLinkArgs() []string      { return slices.Clone(d.extraLinkArgs) }

// Validate checks the descriptor invariants: name and version set, at
// least one source, and every path absolute.
func (d BuildDescriptor) Validate() error {
	if strings.TrimSpace(d.ModuleName) == "" {
		return fmt.Errorf("module name is empty")
	}
	if strings.TrimSpace(d.ModuleVersion) == "" {
		return fmt.Errorf("module version is empty")
	}
	if len(d.sourcePaths) == 0 {
		return fmt.Errorf("no source files for module %s", d.ModuleName)
	}
	if !filepath.IsAbs(d.OutputDir) {
		return fmt.Errorf("output directory %q is not absolute", d.OutputDir)
	}

	groups := []struct {
		name  string
		paths []string
	}{
		{"source", d.sourcePaths},
		{"include directory", d.includeDirs},
		{"library directory", d.libraryDirs},
		{"runtime library directory", d.runtimeLibraryDirs},
	}
	for _, g := range groups {
		for _, p := range g.paths {
			if !filepath.IsAbs(p) {
				return fmt.Errorf("%s %q is not absolute", g.name, p)
			}
		}
	}
	return nil
}

// TempDir is where object files for the module are written.
func (d BuildDescriptor) TempDir(platform string) string {
	return filepath.Join(d.OutputDir, "temp."+platform, d.ModuleName)
}
