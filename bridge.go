package pyext

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// mesonOption is the meson option that enables the Python bindings build.
const mesonOption = "gen_py_bindings"

var (
	bold   = color.New(color.Bold).SprintFunc()
	italic = color.New(color.Italic).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Bridge turns the orchestrator's environment into one driver build.
type Bridge struct {
	Driver Driver
	Stderr io.Writer
	Logger hclog.Logger
}

// Run validates the environment, builds the descriptor and hands it to
// the driver. On a configuration error the diagnostic is written to
// Stderr, the driver is never called, and a *MissingEnvError is returned.
// Driver errors are returned with context; errors.Cause yields the
// driver's own error.
func (b *Bridge) Run(ctx context.Context, lookup LookupFunc) error {
	logger := b.logger()

	cfg, err := LoadConfig(lookup)
	if err != nil {
		var missing *MissingEnvError
		if errors.As(err, &missing) {
			logger.Debug("required environment missing", "variables", missing.Missing)
		}
		WriteDiagnostic(b.Stderr)
		return err
	}

	desc := NewBuildDescriptor(cfg)
	logger.Info("building extension",
		"module", desc.ModuleName,
		"version", desc.ModuleVersion,
		"driver", b.Driver.Name(),
		"output", desc.OutputDir)

	if checker, ok := b.Driver.(ToolChecker); ok {
		if err := checker.CheckTools(); err != nil {
			return errors.Wrap(err, "build tools missing")
		}
	}

	result, err := b.Driver.Build(ctx, desc)
	if err != nil {
		return errors.Wrapf(err, "%s driver", b.Driver.Name())
	}
	if result == nil || !result.Success {
		return fmt.Errorf("%s driver reported an unsuccessful build of %s", b.Driver.Name(), desc.ModuleName)
	}

	for _, ext := range result.Extensions {
		logger.Info("built extension", "path", ext)
	}
	return nil
}

func (b *Bridge) logger() hclog.Logger {
	if b.Logger == nil {
		return hclog.NewNullLogger()
	}
	return b.Logger
}

// WriteDiagnostic prints the message shown when the bridge is run outside
// the meson build.
func WriteDiagnostic(w io.Writer) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "%s Do not call bbmp-pyext manually! If you wish to build the python extension, "+
		"set the %s meson option to %s, and re-run the build system. Quitting...\n",
		red("error:"), italic(mesonOption), italic("true"))
	fmt.Fprintf(w, "%s meson configure -D%s=true\n", bold("hint:"), mesonOption)
}
