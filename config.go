package pyext

import (
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// Environment variables set by the meson build before it invokes the bridge.
// They mirror meson's project values.
const (
	EnvModuleName    = "_MESON_MODULE_NAME"
	EnvModuleVersion = "_MESON_MODULE_VERSION"
	EnvSourceRoot    = "_MESON_SOURCE_ROOT"
	EnvBuildRoot     = "_MESON_BUILD_ROOT"

	// EnvLogLevel is optional and selects the hclog level (default "info").
	EnvLogLevel = "BBMP_PYEXT_LOG_LEVEL"
)

// RequiredEnv lists the variables the orchestrator must provide, in the
// order they are checked.
var RequiredEnv = []string{EnvModuleName, EnvModuleVersion, EnvSourceRoot, EnvBuildRoot}

// LookupFunc reads one environment value. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// Config is the typed form of the orchestrator's environment.
type Config struct {
	ModuleName    string
	ModuleVersion string
	SourceRoot    string // absolute
	BuildRoot     string // absolute
}

// MissingEnvError reports that the bridge was not invoked by the orchestrator.
//
// Missing is kept for debug logging; Error() intentionally does not name
// the variables.
type MissingEnvError struct {
	Missing []string
}

func (e *MissingEnvError) Error() string {
	return "required build environment not provided; invoke through the meson build"
}

// IsMissingEnv reports whether err, or its cause, is a *MissingEnvError.
func IsMissingEnv(err error) bool {
	_, ok := errors.Cause(err).(*MissingEnvError)
	return ok
}

// LoadConfig reads and validates the required environment.
//
// Every variable in RequiredEnv must be present and non-blank. Nothing
// else is read. Relative roots are made absolute against the working
// directory.
func LoadConfig(lookup LookupFunc) (*Config, error) {
	values := make(map[string]string, len(RequiredEnv))
	var missing []string
	for _, key := range RequiredEnv {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		return nil, &MissingEnvError{Missing: missing}
	}

	srcRoot, err := filepath.Abs(values[EnvSourceRoot])
	if err != nil {
		return nil, errors.Wrap(err, "resolving source root")
	}
	buildRoot, err := filepath.Abs(values[EnvBuildRoot])
	if err != nil {
		return nil, errors.Wrap(err, "resolving build root")
	}

	return &Config{
		ModuleName:    values[EnvModuleName],
		ModuleVersion: values[EnvModuleVersion],
		SourceRoot:    srcRoot,
		BuildRoot:     buildRoot,
	}, nil
}

// LogLevelFromEnv returns the log level requested through EnvLogLevel.
// Unknown or absent values fall back to Info.
func LogLevelFromEnv(lookup LookupFunc) hclog.Level {
	v, ok := lookup(EnvLogLevel)
	if !ok {
		return hclog.Info
	}
	if level := hclog.LevelFromString(v); level != hclog.NoLevel {
		return level
	}
	return hclog.Info
}
