// Package common provides shared constants, types, and utilities
// used across the Next Generation Tracker client.
package common

import (
	"os"
	"path/filepath"
)

// DataDirEnv overrides the per-user data directory when set.
const DataDirEnv = "NGT_DATA_DIR"

// GetDataDir returns the application data directory, creating it if needed.
// It lives under the platform config directory, next to other desktop apps.
func GetDataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", WrapError(err, "failed to create data directory")
		}
		return dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", WrapError(err, "failed to locate user config directory")
	}

	dataDir := filepath.Join(base, ConfigDirName)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", WrapError(err, "failed to create data directory")
	}

	return dataDir, nil
}

// GetLogDir returns the log directory path inside the data directory.
func GetLogDir() string {
	dir, err := GetDataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "logs")
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFileAtomic writes data to a temporary sibling and renames it over
// path, so readers never observe a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
