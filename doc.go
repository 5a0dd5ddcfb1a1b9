// Package pyext builds the Python 3 extension module that binds the
// bbmp_utils library.
//
// It is the Go counterpart of the project's distutils setup script and is
// run by the meson build, never by hand. Meson passes its project values
// through four environment variables:
//
//	_MESON_MODULE_NAME     name of the extension module (e.g. bbmp_py)
//	_MESON_MODULE_VERSION  project version
//	_MESON_SOURCE_ROOT     project source tree
//	_MESON_BUILD_ROOT      meson build directory holding libbbmputil
//
// # Basic Usage
//
//	bridge := &pyext.Bridge{
//	    Driver: pyext.NewCCDriver(pyext.ToolchainFromEnv(os.LookupEnv), logger),
//	    Stderr: os.Stderr,
//	    Logger: logger,
//	}
//	if err := bridge.Run(ctx, os.LookupEnv); err != nil {
//	    os.Exit(1)
//	}
//
// # Architecture
//
//	Bridge
//	├── LoadConfig          environment -> Config (fails on any missing value)
//	├── NewBuildDescriptor  Config -> BuildDescriptor
//	└── Driver.Build        BuildDescriptor -> extension artifact
//	    └── CCDriver        probe python, compile, link, write build info
//
// The driver sits behind the Driver interface so the bridge can be tested
// against a fake that records calls instead of running a compiler.
//
// # Platform Support
//
// Linux and macOS with a C compiler and the Python development headers.
package pyext
