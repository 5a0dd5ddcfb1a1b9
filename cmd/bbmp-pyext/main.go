// bbmp-pyext builds the bbmp_utils Python extension on behalf of meson.
//
// It takes no arguments; everything comes from the _MESON_* environment
// variables. Running it by hand prints a pointer to the meson option and
// exits with status 1.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	pyext "github.com/bool3max/bbmp-pyext"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

func newRootCommand(lookup pyext.LookupFunc, stderr io.Writer, newDriver func(hclog.Logger) pyext.Driver) *cobra.Command {
	return &cobra.Command{
		Use:   "bbmp-pyext",
		Short: "Build the bbmp_utils Python extension (invoked by meson)",
		// Flags are not parsed so that --help is rejected like any other argument.
		DisableFlagParsing: true,
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := hclog.New(&hclog.LoggerOptions{
				Name:   "bbmp-pyext",
				Level:  pyext.LogLevelFromEnv(lookup),
				Output: stderr,
			})
			bridge := &pyext.Bridge{
				Driver: newDriver(logger),
				Stderr: stderr,
				Logger: logger,
			}
			return bridge.Run(cmd.Context(), lookup)
		},
	}
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, lookup pyext.LookupFunc, stderr io.Writer, newDriver func(hclog.Logger) pyext.Driver) int {
	cmd := newRootCommand(lookup, stderr, newDriver)
	// A nil slice would make cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case pyext.IsMissingEnv(err):
		// The bridge already printed the diagnostic.
		return 1
	case len(args) > 0:
		pyext.WriteDiagnostic(stderr)
		return 1
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.LookupEnv, os.Stderr, func(logger hclog.Logger) pyext.Driver {
		return pyext.NewCCDriver(pyext.ToolchainFromEnv(os.LookupEnv), logger)
	})
	stop()
	os.Exit(code)
}
