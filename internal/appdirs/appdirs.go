// Package appdirs decides where vidset keeps its config, logs, job outputs and caches.
package appdirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// HomeEnv pins every directory below one data root, e.g. a dataset volume.
	HomeEnv = "VIDSET_HOME"
	// PortableEnv keeps the data root next to the executable.
	PortableEnv = "VIDSET_PORTABLE"

	appName        = "vidset"
	configFileName = "config.toml"
)

type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	OutputDir  string
	CacheDir   string
}

// platform holds the OS lookups resolve needs; tests replace them.
type platform struct {
	goos       string
	getenv     func(string) string
	executable func() (string, error)
	configHome func() (string, error)
	cacheHome  func() (string, error)
}

func hostPlatform() platform {
	return platform{
		goos:       runtime.GOOS,
		getenv:     os.Getenv,
		executable: os.Executable,
		configHome: os.UserConfigDir,
		cacheHome:  os.UserCacheDir,
	}
}

func (p platform) complete() platform {
	host := hostPlatform()
	if p.goos == "" {
		p.goos = host.goos
	}
	if p.getenv == nil {
		p.getenv = host.getenv
	}
	if p.executable == nil {
		p.executable = host.executable
	}
	if p.configHome == nil {
		p.configHome = host.configHome
	}
	if p.cacheHome == nil {
		p.cacheHome = host.cacheHome
	}
	return p
}

// Resolve picks the layout in order: VIDSET_HOME, portable mode, per-user dirs on
// Windows, and paths relative to the working directory elsewhere.
func Resolve() (Paths, error) {
	return resolve(hostPlatform())
}

func resolve(p platform) (Paths, error) {
	p = p.complete()

	if home := strings.TrimSpace(p.getenv(HomeEnv)); home != "" {
		return rootedAt(filepath.Clean(home), false), nil
	}
	if isPortableEnabled(p.getenv(PortableEnv)) {
		exe, err := p.executable()
		if err != nil {
			return Paths{}, fmt.Errorf("locate executable for portable mode: %w", err)
		}
		return rootedAt(filepath.Join(filepath.Dir(exe), "data"), true), nil
	}
	if p.goos == "windows" {
		return perUser(p)
	}
	return workingDirLayout(), nil
}

// rootedAt places every directory below dataDir.
func rootedAt(dataDir string, portable bool) Paths {
	paths := split(filepath.Join(dataDir, "config"), dataDir)
	paths.Portable = portable
	return paths
}

func perUser(p platform) (Paths, error) {
	configRoot, err := userDir(p.configHome, "user config dir")
	if err != nil {
		return Paths{}, err
	}
	cacheRoot, err := userDir(p.cacheHome, "user cache dir")
	if err != nil {
		return Paths{}, err
	}
	return split(filepath.Join(configRoot, appName), filepath.Join(cacheRoot, appName)), nil
}

func userDir(lookup func() (string, error), what string) (string, error) {
	dir, err := lookup()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New(what + " is empty")
	}
	return dir, nil
}

func split(configDir, dataDir string) Paths {
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(dataDir, "logs"),
		OutputDir:  filepath.Join(dataDir, "output"),
		CacheDir:   filepath.Join(dataDir, "cache"),
	}
}

func workingDirLayout() Paths {
	return Paths{
		ConfigDir:  "config",
		ConfigFile: filepath.Join("config", configFileName),
		LogDir:     ".",
		OutputDir:  "output",
		CacheDir:   "cache",
	}
}

func isPortableEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
