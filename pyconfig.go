package pyext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Optional toolchain overrides, honored the same way distutils does.
const (
	EnvPython   = "PYTHON"
	EnvCC       = "CC"
	EnvCFlags   = "CFLAGS"
	EnvLDShared = "LDSHARED"
	EnvLDFlags  = "LDFLAGS"
)

const defaultPython = "python3"

// probeScript prints the sysconfig values the build needs as KEY='value'
// lines. Single quotes keep godotenv from expanding $ references.
const probeScript = `import sysconfig
v = sysconfig.get_config_vars()
for k in ("INCLUDEPY", "EXT_SUFFIX", "CC", "CFLAGS", "CCSHARED", "LDSHARED"):
    print(k + "='" + str(v.get(k) or "").replace("'", "") + "'")
`

// Toolchain holds the optional overrides read from the environment.
// Empty fields mean "use what the host Python was built with".
type Toolchain struct {
	Python   string
	CC       string
	CFlags   string
	LDShared string
	LDFlags  string
}

// ToolchainFromEnv reads the optional toolchain overrides.
func ToolchainFromEnv(lookup LookupFunc) Toolchain {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	return Toolchain{
		Python:   get(EnvPython),
		CC:       get(EnvCC),
		CFlags:   get(EnvCFlags),
		LDShared: get(EnvLDShared),
		LDFlags:  get(EnvLDFlags),
	}
}

func (t Toolchain) python() string {
	if t.Python != "" {
		return t.Python
	}
	return defaultPython
}

// PythonConfig is the host Python's view of how extensions are compiled.
type PythonConfig struct {
	IncludeDir string   // INCLUDEPY, location of Python.h
	ExtSuffix  string   // EXT_SUFFIX, e.g. ".cpython-312-x86_64-linux-gnu.so"
	CC         []string // compiler command
	CFlags     []string
	CCShared   []string // flags for position independent code
	LDShared   []string // linker command for shared objects
}

// parsePythonConfig decodes the probe output.
func parsePythonConfig(out []byte) (*PythonConfig, error) {
	vars, err := godotenv.Unmarshal(string(out))
	if err != nil {
		return nil, errors.Wrap(err, "parsing python sysconfig output")
	}

	cfg := &PythonConfig{
		IncludeDir: vars["INCLUDEPY"],
		ExtSuffix:  vars["EXT_SUFFIX"],
		CC:         strings.Fields(vars["CC"]),
		CFlags:     strings.Fields(vars["CFLAGS"]),
		CCShared:   strings.Fields(vars["CCSHARED"]),
		LDShared:   strings.Fields(vars["LDSHARED"]),
	}
	if cfg.IncludeDir == "" {
		return nil, errors.New("python sysconfig did not report INCLUDEPY")
	}
	if cfg.ExtSuffix == "" {
		return nil, errors.New("python sysconfig did not report EXT_SUFFIX")
	}
	if len(cfg.CC) == 0 {
		cfg.CC = []string{"cc"}
	}
	if len(cfg.LDShared) == 0 {
		cfg.LDShared = append(append([]string{}, cfg.CC...), "-shared")
	}
	return cfg, nil
}

// apply layers the environment overrides on top of the sysconfig values.
// A CC override also replaces the compiler at the head of LDSHARED unless
// LDSHARED is overridden itself.
func (t Toolchain) apply(cfg *PythonConfig) {
	if t.CC != "" {
		newCC := strings.Fields(t.CC)
		if t.LDShared == "" && hasPrefix(cfg.LDShared, cfg.CC) {
			cfg.LDShared = append(append([]string{}, newCC...), cfg.LDShared[len(cfg.CC):]...)
		}
		cfg.CC = newCC
	}
	if t.LDShared != "" {
		cfg.LDShared = strings.Fields(t.LDShared)
	}
	if t.CFlags != "" {
		cfg.CFlags = append(cfg.CFlags, strings.Fields(t.CFlags)...)
	}
	if t.LDFlags != "" {
		cfg.LDShared = append(cfg.LDShared, strings.Fields(t.LDFlags)...)
	}
}

func hasPrefix(s, prefix []string) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// commandRunner runs one toolchain command and returns its stdout and
// stderr separately.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
