package pyext

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BuildInfo is the metadata record written next to a built extension.
type BuildInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Driver      string `yaml:"driver"`
	Platform    string `yaml:"platform"`
	Artifact    string `yaml:"artifact"`

	Sources            []string `yaml:"sources"`
	IncludeDirs        []string `yaml:"include_dirs"`
	LibraryDirs        []string `yaml:"library_dirs"`
	RuntimeLibraryDirs []string `yaml:"runtime_library_dirs"`
	Libraries          []string `yaml:"libraries"`
	ExtraLinkArgs      []string `yaml:"extra_link_args"`
}

// NewBuildInfo captures desc and the artifact produced for it.
func NewBuildInfo(desc BuildDescriptor, driver, platform, artifact string) BuildInfo {
	return BuildInfo{
		Name:               desc.ModuleName,
		Version:            desc.ModuleVersion,
		Description:        desc.Description,
		Driver:             driver,
		Platform:           platform,
		Artifact:           artifact,
		Sources:            desc.SourcePaths(),
		IncludeDirs:        desc.IncludeDirs(),
		LibraryDirs:        desc.LibraryDirs(),
		RuntimeLibraryDirs: desc.RuntimeLibraryDirs(),
		Libraries:          desc.LinkLibraries(),
		ExtraLinkArgs:      desc.ExtraLinkArgs(),
	}
}

// BuildInfoPath is where the metadata for desc lives.
func BuildInfoPath(desc BuildDescriptor) string {
	return filepath.Join(desc.OutputDir, desc.ModuleName+"-"+desc.ModuleVersion+".buildinfo.yaml")
}

// WriteBuildInfo writes info to path, replacing any previous record.
func WriteBuildInfo(path string, info BuildInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "encoding build info")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// ReadBuildInfo loads a record written by WriteBuildInfo.
func ReadBuildInfo(path string) (*BuildInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var info BuildInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return &info, nil
}
