package config

import "context"

// Loader reads a fit description from one or more paths.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Fit, error)
}
