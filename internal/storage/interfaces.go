// Package storage defines sinks for the write-only artifacts: result exports
// and backups. The local filesystem sink is always present; an S3 sink can
// mirror every artifact off-host.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Backend defines the interface for artifact sinks.
type Backend interface {
	// Put writes data under name, replacing any existing artifact of that name.
	//
	// Returns:
	//   - location: where the artifact ended up (file path or s3:// URI)
	//   - err: Error if the write fails
	Put(ctx context.Context, name string, data []byte) (location string, err error)

	// Name identifies the backend in logs.
	Name() string
}

// Multi writes every artifact to all of its backends.
type Multi struct {
	backends []Backend
}

// NewMulti creates a fan-out sink. Nil backends are skipped.
func NewMulti(backends ...Backend) *Multi {
	m := &Multi{}
	for _, b := range backends {
		if b != nil {
			m.backends = append(m.backends, b)
		}
	}
	return m
}

// Backends returns the wrapped backends.
func (m *Multi) Backends() []Backend {
	return m.backends
}

// PutAll writes data to every backend. It keeps going after a failure and
// returns the locations that succeeded together with the joined errors.
func (m *Multi) PutAll(ctx context.Context, name string, data []byte) ([]string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, b := range m.backends {
		loc, err := b.Put(ctx, name, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		locations = append(locations, loc)
	}
	return locations, errors.Join(errs...)
}
