package repository

import "errors"

// Repository errors
var (
	// ErrUnknownDriver indicates no store is registered for the configured driver.
	ErrUnknownDriver = errors.New("unknown storage driver")

	// ErrStoreClosed indicates the store was used after Close.
	ErrStoreClosed = errors.New("store closed")
)
