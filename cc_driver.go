package pyext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// CCDriver builds the extension with the host C toolchain, using the
// compiler and flags the host Python reports through sysconfig.
type CCDriver struct {
	Toolchain Toolchain
	Logger    hclog.Logger

	// run executes toolchain commands; nil means execRunner.
	run commandRunner
}

// NewCCDriver creates a driver using the given overrides.
func NewCCDriver(tc Toolchain, logger hclog.Logger) *CCDriver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CCDriver{Toolchain: tc, Logger: logger, run: execRunner}
}

// Name returns the driver name
func (d *CCDriver) Name() string {
	return "cc"
}

// RequiredTools returns the tools needed to build the extension
func (d *CCDriver) RequiredTools() []ToolRequirement {
	compiler := ToolRequirement{
		Name:         "cc",
		Alternatives: []string{"gcc", "clang"},
		Purpose:      "C compiler for the extension module",
	}
	if cc := strings.Fields(d.Toolchain.CC); len(cc) > 0 {
		compiler = ToolRequirement{Name: cc[0], Purpose: "C compiler from $CC"}
	}
	return []ToolRequirement{
		{Name: d.Toolchain.python(), Purpose: "Python interpreter providing sysconfig and headers"},
		compiler,
	}
}

// CheckTools verifies that Python and a C compiler are available
func (d *CCDriver) CheckTools() error {
	return CheckRequiredTools(d.RequiredTools())
}

// Build compiles and links the extension module
func (d *CCDriver) Build(ctx context.Context, desc BuildDescriptor) (*BuildResult, error) {
	if err := desc.Validate(); err != nil {
		return &BuildResult{Error: err}, errors.Wrap(err, "invalid build descriptor")
	}
	var pycfg *PythonConfig
	return runBuildSteps(ctx, desc, BuildSteps{
		ConfigureFunc: func(ctx context.Context, desc BuildDescriptor, result *BuildResult) error {
			cfg, err := d.probePython(ctx, result)
			pycfg = cfg
			return err
		},
		BuildFunc: func(ctx context.Context, desc BuildDescriptor, result *BuildResult) error {
			return d.compileAndLink(ctx, pycfg, desc, result)
		},
		FindFunc: d.findBuiltExtensions,
	})
}

// Clean removes object files, the extension and its build metadata
func (d *CCDriver) Clean(ctx context.Context, desc BuildDescriptor) error {
	if err := os.RemoveAll(desc.TempDir(platformTag())); err != nil {
		return errors.Wrap(err, "removing object files")
	}
	built, err := d.findBuiltExtensions(desc)
	if err != nil {
		return err
	}
	for _, path := range append(built, BuildInfoPath(desc)) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing %s", path)
		}
	}
	return nil
}

func (d *CCDriver) runner() commandRunner {
	if d.run == nil {
		return execRunner
	}
	return d.run
}

// probePython asks the host Python how extensions are compiled
func (d *CCDriver) probePython(ctx context.Context, result *BuildResult) (*PythonConfig, error) {
	python := d.Toolchain.python()
	d.Logger.Debug("probing python", "interpreter", python)

	stdout, stderr, err := d.runner()(ctx, python, "-c", probeScript)
	result.Output = append(result.Output, splitOutput(stderr)...)
	if err != nil {
		return nil, BuildError("Configure", result.Output, err)
	}

	cfg, err := parsePythonConfig(stdout)
	if err != nil {
		return nil, BuildError("Configure", result.Output, err)
	}
	d.Toolchain.apply(cfg)

	d.Logger.Debug("python configuration",
		"include", cfg.IncludeDir,
		"suffix", cfg.ExtSuffix,
		"cc", strings.Join(cfg.CC, " "),
		"ldshared", strings.Join(cfg.LDShared, " "))
	return cfg, nil
}

// compileAndLink compiles every source to an object file and links them
func (d *CCDriver) compileAndLink(ctx context.Context, pycfg *PythonConfig, desc BuildDescriptor, result *BuildResult) error {
	tempDir := desc.TempDir(platformTag())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", tempDir)
	}

	var objects []string
	for _, src := range desc.SourcePaths() {
		obj := objectPath(tempDir, src)
		args := compileArgs(pycfg, desc, src, obj)
		d.Logger.Info("compiling", "source", src)
		if err := d.exec(ctx, "Compile", args, result); err != nil {
			return err
		}
		objects = append(objects, obj)
	}

	out := extensionPath(desc, pycfg)
	args := linkArgs(pycfg, desc, objects, out)
	d.Logger.Info("linking", "output", out)
	if err := d.exec(ctx, "Link", args, result); err != nil {
		return err
	}

	info := NewBuildInfo(desc, d.Name(), platformTag(), out)
	if err := WriteBuildInfo(BuildInfoPath(desc), info); err != nil {
		return err
	}
	return nil
}

func (d *CCDriver) exec(ctx context.Context, step string, args []string, result *BuildResult) error {
	d.Logger.Debug("running", "command", strings.Join(args, " "))
	stdout, stderr, err := d.runner()(ctx, args[0], args[1:]...)
	result.Output = append(result.Output, splitOutput(stdout)...)
	result.Output = append(result.Output, splitOutput(stderr)...)
	if err != nil {
		return BuildError(step, result.Output, err)
	}
	return nil
}

// findBuiltExtensions locates the module's extension files in the output directory
func (d *CCDriver) findBuiltExtensions(desc BuildDescriptor) ([]string, error) {
	pattern := filepath.Join(desc.OutputDir, desc.ModuleName+".*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob pattern %s: %v", pattern, err)
	}

	var extensions []string
	for _, match := range matches {
		if MatchesExtension(match, extensionSuffixes...) {
			extensions = append(extensions, match)
		}
	}
	return extensions, nil
}

// compileArgs is CC CFLAGS CCSHARED -I<include dirs> -I<python> -c src -o obj.
func compileArgs(cfg *PythonConfig, desc BuildDescriptor, src, obj string) []string {
	args := append([]string{}, cfg.CC...)
	args = append(args, cfg.CFlags...)
	args = append(args, cfg.CCShared...)
	for _, dir := range desc.IncludeDirs() {
		args = append(args, "-I"+dir)
	}
	args = append(args, "-I"+cfg.IncludeDir)
	return append(args, "-c", src, "-o", obj)
}

// linkArgs follows the distutils order: objects, library options, output,
// then the extra link arguments.
func linkArgs(cfg *PythonConfig, desc BuildDescriptor, objects []string, out string) []string {
	args := append([]string{}, cfg.LDShared...)
	args = append(args, objects...)
	for _, dir := range desc.LibraryDirs() {
		args = append(args, "-L"+dir)
	}
	for _, dir := range desc.RuntimeLibraryDirs() {
		args = append(args, "-Wl,-rpath,"+dir)
	}
	for _, lib := range desc.LinkLibraries() {
		args = append(args, "-l"+lib)
	}
	args = append(args, "-o", out)
	return append(args, desc.ExtraLinkArgs()...)
}

func objectPath(tempDir, src string) string {
	base := filepath.Base(src)
	return filepath.Join(tempDir, strings.TrimSuffix(base, filepath.Ext(base))+".o")
}

func extensionPath(desc BuildDescriptor, cfg *PythonConfig) string {
	return filepath.Join(desc.OutputDir, desc.ModuleName+cfg.ExtSuffix)
}

func platformTag() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}
