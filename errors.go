package fesomdata

import "errors"

// Sentinel errors returned by the dataset registry. Use errors.Is to
// check for them; they may arrive wrapped with additional context.
var (
	// ErrDatasetNotFound indicates the requested name is not registered.
	ErrDatasetNotFound = errors.New("fesomdata: dataset not found")

	// ErrConfigNotFound indicates the dataset carries no cmorization
	// config for the requested CMIP version.
	ErrConfigNotFound = errors.New("fesomdata: config not found")
)
