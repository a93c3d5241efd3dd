package appdirs

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform records which lookups resolve used.
type fakePlatform struct {
	env        map[string]string
	exe        string
	configRoot string
	cacheRoot  string
	calls      []string
}

func (f *fakePlatform) platform(goos string) platform {
	return platform{
		goos:   goos,
		getenv: func(key string) string { return f.env[key] },
		executable: func() (string, error) {
			f.calls = append(f.calls, "executable")
			return f.exe, nil
		},
		configHome: func() (string, error) {
			f.calls = append(f.calls, "config")
			return f.configRoot, nil
		},
		cacheHome: func() (string, error) {
			f.calls = append(f.calls, "cache")
			return f.cacheRoot, nil
		},
	}
}

func TestResolveLayouts(t *testing.T) {
	exe := filepath.Join("/", "opt", "vidset", "vidset")
	portableRoot := filepath.Join("/", "opt", "vidset", "data")
	home := filepath.Join("/", "mnt", "datasets", "vidset")
	roaming := filepath.Join("C:", "Users", "kim", "AppData", "Roaming")
	local := filepath.Join("C:", "Users", "kim", "AppData", "Local")

	tests := []struct {
		name      string
		goos      string
		fake      fakePlatform
		want      Paths
		wantCalls []string
	}{
		{
			name: "home root",
			goos: "linux",
			fake: fakePlatform{env: map[string]string{HomeEnv: home + "/"}},
			want: Paths{
				ConfigDir:  filepath.Join(home, "config"),
				ConfigFile: filepath.Join(home, "config", "config.toml"),
				LogDir:     filepath.Join(home, "logs"),
				OutputDir:  filepath.Join(home, "output"),
				CacheDir:   filepath.Join(home, "cache"),
			},
		},
		{
			name: "home beats portable",
			goos: "windows",
			fake: fakePlatform{env: map[string]string{HomeEnv: home, PortableEnv: "1"}, exe: exe},
			want: rootedAt(home, false),
		},
		{
			name: "portable next to executable",
			goos: "darwin",
			fake: fakePlatform{env: map[string]string{PortableEnv: "yes"}, exe: exe},
			want: Paths{
				Portable:   true,
				ConfigDir:  filepath.Join(portableRoot, "config"),
				ConfigFile: filepath.Join(portableRoot, "config", "config.toml"),
				LogDir:     filepath.Join(portableRoot, "logs"),
				OutputDir:  filepath.Join(portableRoot, "output"),
				CacheDir:   filepath.Join(portableRoot, "cache"),
			},
			wantCalls: []string{"executable"},
		},
		{
			name: "windows per-user dirs",
			goos: "windows",
			fake: fakePlatform{configRoot: roaming, cacheRoot: local},
			want: Paths{
				ConfigDir:  filepath.Join(roaming, "vidset"),
				ConfigFile: filepath.Join(roaming, "vidset", "config.toml"),
				LogDir:     filepath.Join(local, "vidset", "logs"),
				OutputDir:  filepath.Join(local, "vidset", "output"),
				CacheDir:   filepath.Join(local, "vidset", "cache"),
			},
			wantCalls: []string{"config", "cache"},
		},
		{
			name: "working directory elsewhere",
			goos: "linux",
			want: Paths{
				ConfigDir:  "config",
				ConfigFile: filepath.Join("config", "config.toml"),
				LogDir:     ".",
				OutputDir:  "output",
				CacheDir:   "cache",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := tt.fake
			got, err := resolve(fake.platform(tt.goos))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, fake.calls)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name    string
		p       platform
		wantErr string
	}{
		{
			name: "portable without executable",
			p: platform{
				goos:       "linux",
				getenv:     func(k string) string { return map[string]string{PortableEnv: "true"}[k] },
				executable: func() (string, error) { return "", errors.New("no executable") },
			},
			wantErr: "no executable",
		},
		{
			name: "blank config root",
			p: platform{
				goos:       "windows",
				getenv:     func(string) string { return "" },
				configHome: func() (string, error) { return " ", nil },
			},
			wantErr: "user config dir is empty",
		},
		{
			name: "cache lookup fails",
			p: platform{
				goos:       "windows",
				getenv:     func(string) string { return "" },
				configHome: func() (string, error) { return `C:\cfg`, nil },
				cacheHome:  func() (string, error) { return "", errors.New("no cache dir") },
			},
			wantErr: "no cache dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(tt.p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsPortableEnabled(t *testing.T) {
	for value, want := range map[string]bool{
		"":         false,
		"0":        false,
		"false":    false,
		"1":        true,
		"TRUE":     true,
		"  true  ": true,
		"on":       true,
	} {
		assert.Equal(t, want, isPortableEnabled(value), "value %q", value)
	}
}
