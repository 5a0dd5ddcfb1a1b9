//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	pyext "github.com/bool3max/bbmp-pyext"
)

const binary = "bin/bbmp-pyext"

// Default target to run when none is specified
var Default = Build

// Build compiles the bbmp-pyext binary into bin/.
func Build() error {
	return sh.RunV("go", "build", "-o", binary, "./cmd/bbmp-pyext")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes bin/.
func Clean() error {
	return sh.Rm("bin")
}

// Extension builds the Python extension the way meson does, reading the
// source and build roots from BBMP_SOURCE_ROOT and BBMP_BUILD_ROOT
// (defaults: the parent directory and ../build).
func Extension() error {
	mg.Deps(Build)

	src := envOr("BBMP_SOURCE_ROOT", "..")
	build := envOr("BBMP_BUILD_ROOT", filepath.Join(src, "build"))
	env := map[string]string{
		pyext.EnvModuleName:    envOr("BBMP_MODULE_NAME", "bbmp_py"),
		pyext.EnvModuleVersion: envOr("BBMP_MODULE_VERSION", "1.0"),
		pyext.EnvSourceRoot:    src,
		pyext.EnvBuildRoot:     build,
	}
	if err := sh.RunWithV(env, binary); err != nil {
		return err
	}

	cfg, err := pyext.LoadConfig(pyext.MapLookup(env))
	if err != nil {
		return err
	}
	info, err := pyext.ReadBuildInfo(pyext.BuildInfoPath(pyext.NewBuildDescriptor(cfg)))
	if err != nil {
		return err
	}
	fmt.Printf("built %s %s: %s\n", info.Name, info.Version, info.Artifact)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
