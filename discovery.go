// FILE: lixenwraith/propcfg/discovery.go
package propcfg

import (
	"os"
	"path/filepath"
	"strings"
)

// DiscoveryOptions configures properties file discovery
type DiscoveryOptions struct {
	// Base name of the properties file (without extension)
	Name string

	// Extensions to try, in order
	Extensions []string

	// Custom search paths, searched before the defaults
	Paths []string

	// Environment variable holding an explicit path
	EnvVar string

	// Argument holding an explicit path ("--properties=x" or "--properties x")
	Flag string

	// Whether to search XDG config directories
	UseXDG bool

	// Whether to search the current directory
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns discovery options for an application name
func DefaultDiscoveryOptions(appName string) DiscoveryOptions {
	return DiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json"},
		EnvVar:        UpperSnake(strings.ReplaceAll(appName, "-", "_")) + "_PROPERTIES",
		Flag:          "--properties",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// DiscoverProperties locates a properties file. An explicit argument wins,
// then the environment variable, then the first existing file on the search path.
// A nil lookup reads the process environment.
func DiscoverProperties(opts DiscoveryOptions, args []string, lookup LookupFunc) (string, bool) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if opts.Flag != "" {
		for i, arg := range args {
			if arg == opts.Flag && i+1 < len(args) {
				return args[i+1], true
			}
			if path, ok := strings.CutPrefix(arg, opts.Flag+"="); ok && path != "" {
				return path, true
			}
		}
	}

	if opts.EnvVar != "" {
		if path, ok := lookup(opts.EnvVar); ok && path != "" {
			return path, true
		}
	}

	searchPaths := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			searchPaths = append(searchPaths, cwd)
		}
	}
	if opts.UseXDG {
		searchPaths = append(searchPaths, xdgConfigPaths(opts.Name, lookup)...)
	}

	for _, dir := range searchPaths {
		for _, ext := range opts.Extensions {
			path := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}

// WithFileDiscovery adds the discovered properties file, if any
func (b *Builder) WithFileDiscovery(opts DiscoveryOptions, args []string) *Builder {
	if path, ok := DiscoverProperties(opts, args, b.lookup); ok {
		b.files = append(b.files, path)
	}
	return b
}

// xdgConfigPaths returns XDG-compliant search directories for appName
func xdgConfigPaths(appName string, lookup LookupFunc) []string {
	var paths []string

	if xdgHome, ok := lookup("XDG_CONFIG_HOME"); ok && xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home, ok := lookup("HOME"); ok && home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs, ok := lookup("XDG_CONFIG_DIRS"); ok && xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}
	return paths
}
