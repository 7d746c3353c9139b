package storage

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidName indicates an artifact name that would escape its sink.
var ErrInvalidName = errors.New("invalid artifact name")

// ValidateName checks that name is a plain relative file name: non-empty,
// no parent references and no absolute path.
func ValidateName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	clean := path.Clean(filepath.ToSlash(name))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return ErrInvalidName
	}
	return nil
}

// ComputePath joins name onto basePath after validating it.
//
// Example:
//
//	basePath: "/var/lib/ballotbox"
//	name: "backup_users_20260301_080509.txt"
//	result: "/var/lib/ballotbox/backup_users_20260301_080509.txt"
func ComputePath(basePath, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(basePath, filepath.FromSlash(path.Clean(filepath.ToSlash(name)))), nil
}

// ObjectKey joins name onto an S3 key prefix.
func ObjectKey(prefix, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	name = path.Clean(filepath.ToSlash(name))
	if prefix == "" {
		return name, nil
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name, nil
}
