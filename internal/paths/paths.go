// Package paths resolves the filesystem locations fresco cares about: the
// control socket, the config file, and wallpaper images given by relative
// path.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SearchDirsEnv lists extra wallpaper directories, colon separated, highest
// priority first.
const SearchDirsEnv = "FRESCO_DIRS"

// Canonical expands a leading ~ to the user's home directory.
func Canonical(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(path, "~/") {
		return strings.Replace(path, "~", os.Getenv("HOME"), 1)
	}
	return path
}

// Socket returns the control socket path under the user's runtime
// directory, falling back to /tmp when XDG_RUNTIME_DIR is unset.
func Socket() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "fresco.sock")
}

// ConfigDir returns the directory holding fresco.toml.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "fresco")
}

// SearchDirs returns the wallpaper search path: FRESCO_DIRS entries first,
// then the user's standard picture locations.
func SearchDirs() []string {
	var dirs []string
	if env := os.Getenv(SearchDirsEnv); env != "" {
		for _, d := range strings.Split(env, ":") {
			if d = Canonical(strings.TrimSpace(d)); d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	home := os.Getenv("HOME")
	if home != "" {
		dirs = append(dirs,
			filepath.Join(home, "Pictures", "wallpapers"),
			filepath.Join(home, "Pictures"),
		)
	}
	return dirs
}

// ResolveImage turns a user-supplied image argument into an absolute path.
// Absolute and ~ paths are used as given; bare relative paths are searched
// through SearchDirs before falling back to the working directory.
func ResolveImage(arg string) (string, error) {
	path := Canonical(arg)
	if filepath.IsAbs(path) {
		return checkFile(path)
	}
	if strings.ContainsRune(path, os.PathSeparator) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		return checkFile(abs)
	}
	for _, dir := range SearchDirs() {
		candidate := filepath.Join(dir, path)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := checkFile(abs); err == nil {
		return abs, nil
	}
	return "", fmt.Errorf("image %q not found in %s or the current directory", arg, SearchDirsEnv)
}

func checkFile(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}
