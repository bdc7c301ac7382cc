//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.memoraxx.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "memoraxx-data"
	}
	return filepath.Join(home, "Library", "Application Support", "memoraxx")
}

// newPlatformBackend keeps settings in the user defaults database unless
// MEMORAXX_CONFIG_FILE points at a JSON file.
func newPlatformBackend() Backend {
	if p := os.Getenv("MEMORAXX_CONFIG_FILE"); p != "" {
		return newFileBackend(p)
	}
	return userDefaults(defaultsDomain)
}

// userDefaults reads and writes one domain through the defaults(1) tool.
type userDefaults string

func (d userDefaults) run(args ...string) (string, error) {
	out, err := exec.Command("defaults", append([]string{args[0], string(d)}, args[1:]...)...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (d userDefaults) GetString(key string) (string, bool, error) {
	out, err := d.run("read", key)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out, true, nil
	case errors.As(err, &exitErr) && exitErr.ExitCode() == 1:
		// defaults exits 1 when the key does not exist.
		return "", false, nil
	default:
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, out)
	}
}

func (d userDefaults) GetInt(key string) (int, bool, error) {
	s, ok, err := d.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("%s: not an integer: %q", key, s)
	}
	return n, true, nil
}

func (d userDefaults) SetString(key, val string) error {
	if out, err := d.run("write", key, "-string", val); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}

func (d userDefaults) SetInt(key string, val int) error {
	if out, err := d.run("write", key, "-int", strconv.Itoa(val)); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}
