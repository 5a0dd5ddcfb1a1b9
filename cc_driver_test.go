package pyext

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner answers the python probe with sampleProbeOutput, records
// every toolchain command, and touches the -o target of each command to
// stand in for the compiler.
type recordingRunner struct {
	commands [][]string
	failOn   string // fail the first command whose name contains this
	stderr   string
}

func (r *recordingRunner) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.commands = append(r.commands, append([]string{name}, args...))
	if len(args) > 0 && args[0] == "-c" && strings.Contains(args[1], "sysconfig") {
		return []byte(sampleProbeOutput), nil, nil
	}
	if r.failOn != "" && strings.Contains(name, r.failOn) {
		return nil, []byte(r.stderr), errors.New("exit status 1")
	}
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			if err := os.WriteFile(args[i+1], []byte("built"), 0o755); err != nil {
				return nil, nil, err
			}
		}
	}
	return nil, nil, nil
}

func testDescriptor(t *testing.T) BuildDescriptor {
	t.Helper()
	root := t.TempDir()
	build := filepath.Join(root, "build")
	require.NoError(t, os.MkdirAll(build, 0o755))
	return NewBuildDescriptor(&Config{
		ModuleName:    "bbmp_py",
		ModuleVersion: "1.0",
		SourceRoot:    root,
		BuildRoot:     build,
	})
}

func TestCCDriverBuild(t *testing.T) {
	desc := testDescriptor(t)
	runner := &recordingRunner{}
	driver := NewCCDriver(Toolchain{}, nil)
	driver.run = runner.run

	result, err := driver.Build(context.Background(), desc)
	require.NoError(t, err)
	require.True(t, result.Success)

	artifact := filepath.Join(desc.OutputDir, "bbmp_py.cpython-312-x86_64-linux-gnu.so")
	assert.Equal(t, []string{artifact}, result.Extensions)

	require.Len(t, runner.commands, 3, "probe, compile, link")
	assert.Equal(t, "python3", runner.commands[0][0])

	obj := filepath.Join(desc.TempDir(platformTag()), "module.o")
	src := desc.SourcePaths()[0]
	compile := runner.commands[1]
	assert.Equal(t, []string{"x86_64-linux-gnu-gcc", "-pthread"}, compile[:2])
	assert.Contains(t, compile, "-fPIC")
	assert.Contains(t, compile, "-I"+desc.IncludeDirs()[0])
	assert.Contains(t, compile, "-I/usr/include/python3.12")
	assert.Equal(t, []string{"-c", src, "-o", obj}, compile[len(compile)-4:])

	link := runner.commands[2]
	wantTail := []string{
		obj,
		"-L" + desc.OutputDir,
		"-Wl,-rpath," + desc.OutputDir,
		"-lbbmputil",
		"-o", artifact,
		"-Wl,--no-as-needed",
	}
	assert.Equal(t, []string{"x86_64-linux-gnu-gcc", "-pthread", "-shared", "-Wl,-O1"}, link[:4])
	assert.Equal(t, wantTail, link[4:])

	info, err := ReadBuildInfo(BuildInfoPath(desc))
	require.NoError(t, err)
	assert.Equal(t, "bbmp_py", info.Name)
	assert.Equal(t, "1.0", info.Version)
	assert.Equal(t, artifact, info.Artifact)
	assert.Equal(t, "cc", info.Driver)
	assert.Equal(t, []string{"bbmputil"}, info.Libraries)
}

func TestCCDriverBuildTwiceOverwrites(t *testing.T) {
	desc := testDescriptor(t)
	runner := &recordingRunner{}
	driver := NewCCDriver(Toolchain{}, nil)
	driver.run = runner.run

	first, err := driver.Build(context.Background(), desc)
	require.NoError(t, err)
	second, err := driver.Build(context.Background(), desc)
	require.NoError(t, err)

	assert.Equal(t, first.Extensions, second.Extensions)
	assert.Len(t, second.Extensions, 1)

	entries, err := os.ReadDir(desc.OutputDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"bbmp_py.cpython-312-x86_64-linux-gnu.so",
		"bbmp_py-1.0.buildinfo.yaml",
		"temp." + platformTag(),
	}, names)
}

func TestCCDriverCompileFailure(t *testing.T) {
	desc := testDescriptor(t)
	runner := &recordingRunner{failOn: "gcc", stderr: "module.c: No such file or directory\n"}
	driver := NewCCDriver(Toolchain{}, nil)
	driver.run = runner.run

	result, err := driver.Build(context.Background(), desc)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, err, result.Error)
	assert.Contains(t, err.Error(), "Compile build failed: exit status 1")
	assert.Contains(t, err.Error(), "No such file or directory")
	assert.Len(t, runner.commands, 2, "link must not run after a failed compile")

	_, statErr := os.Stat(BuildInfoPath(desc))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCCDriverProbeFailure(t *testing.T) {
	desc := testDescriptor(t)
	driver := NewCCDriver(Toolchain{Python: "python-missing"}, nil)
	driver.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("python-missing: command not found"), errors.New("exec: not found")
	}

	result, err := driver.Build(context.Background(), desc)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, err.Error(), "Configure build failed")
}

func TestCCDriverRejectsInvalidDescriptor(t *testing.T) {
	driver := NewCCDriver(Toolchain{}, nil)
	driver.run = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		t.Fatalf("no command should run, got %s", name)
		return nil, nil, nil
	}

	_, err := driver.Build(context.Background(), BuildDescriptor{ModuleName: "bbmp_py"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid build descriptor")
}

func TestCCDriverClean(t *testing.T) {
	desc := testDescriptor(t)
	runner := &recordingRunner{}
	driver := NewCCDriver(Toolchain{}, nil)
	driver.run = runner.run

	_, err := driver.Build(context.Background(), desc)
	require.NoError(t, err)
	require.NoError(t, driver.Clean(context.Background(), desc))

	entries, err := os.ReadDir(desc.OutputDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "bbmp_py-1.0.buildinfo.yaml", e.Name())
		assert.False(t, strings.HasPrefix(e.Name(), "bbmp_py."), "extension left behind: %s", e.Name())
	}

	// Cleaning an already clean tree is fine.
	require.NoError(t, driver.Clean(context.Background(), desc))
}

func TestCCDriverRequiredTools(t *testing.T) {
	tools := NewCCDriver(Toolchain{}, nil).RequiredTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "python3", tools[0].Name)
	assert.Equal(t, "cc", tools[1].Name)
	assert.Equal(t, []string{"gcc", "clang"}, tools[1].Alternatives)

	tools = NewCCDriver(Toolchain{Python: "python3.12", CC: "clang -m64"}, nil).RequiredTools()
	assert.Equal(t, "python3.12", tools[0].Name)
	assert.Equal(t, "clang", tools[1].Name)
	assert.Empty(t, tools[1].Alternatives)
}

// TestCCDriverRealToolchain builds a tiny extension against a stub
// libbbmputil with the host compiler and Python headers.
func TestCCDriverRealToolchain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping toolchain build in short mode")
	}
	if runtime.GOOS != "linux" {
		t.Skip("--no-as-needed is a GNU ld flag")
	}
	driver := NewCCDriver(Toolchain{}, nil)
	if err := driver.CheckTools(); err != nil {
		t.Skipf("toolchain not available: %v", err)
	}
	probe, _, err := execRunner(context.Background(), "python3", "-c", probeScript)
	if err != nil {
		t.Skipf("python probe failed: %v", err)
	}
	pycfg, err := parsePythonConfig(probe)
	if err != nil {
		t.Skipf("python probe unusable: %v", err)
	}
	if _, err := os.Stat(filepath.Join(pycfg.IncludeDir, "Python.h")); err != nil {
		t.Skip("Python development headers not installed")
	}
	for _, tool := range []string{pycfg.CC[0], pycfg.LDShared[0]} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("compiler %s from python sysconfig not installed", tool)
		}
	}

	desc := testDescriptor(t)
	root := filepath.Dir(desc.OutputDir)
	writeFile(t, filepath.Join(root, "include", "bbmp_stub.h"), "int bbmp_answer(void);\n")
	writeFile(t, filepath.Join(root, "lib", "bbmp_stub.c"), "int bbmp_answer(void) { return 42; }\n")
	writeFile(t, filepath.Join(root, "py3_bindings", "module.c"), `#define PY_SSIZE_T_CLEAN
#include <Python.h>
#include "bbmp_stub.h"

static PyObject *answer(PyObject *self, PyObject *args) {
    return PyLong_FromLong(bbmp_answer());
}

static PyMethodDef methods[] = {
    {"answer", answer, METH_NOARGS, NULL},
    {NULL, NULL, 0, NULL}
};

static struct PyModuleDef module = {PyModuleDef_HEAD_INIT, "bbmp_py", NULL, -1, methods};

PyMODINIT_FUNC PyInit_bbmp_py(void) { return PyModule_Create(&module); }
`)

	lib := exec.Command(pycfg.CC[0], "-shared", "-fPIC",
		"-o", filepath.Join(desc.OutputDir, "libbbmputil.so"),
		filepath.Join(root, "lib", "bbmp_stub.c"))
	if out, err := lib.CombinedOutput(); err != nil {
		t.Skipf("cannot build stub library: %v\n%s", err, out)
	}

	for i := 0; i < 2; i++ {
		result, err := driver.Build(context.Background(), desc)
		require.NoError(t, err, "run %d", i+1)
		require.Len(t, result.Extensions, 1)
		assert.FileExists(t, result.Extensions[0])
	}
}

func TestCCDriverRealToolchainMissingSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping toolchain build in short mode")
	}
	driver := NewCCDriver(Toolchain{}, nil)
	if err := driver.CheckTools(); err != nil {
		t.Skipf("toolchain not available: %v", err)
	}
	if _, _, err := execRunner(context.Background(), "python3", "-c", probeScript); err != nil {
		t.Skipf("python probe failed: %v", err)
	}

	desc := testDescriptor(t)
	_, err := driver.Build(context.Background(), desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Compile build failed")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
